package services

import (
	"fmt"
	"time"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/internal/repositories"
	"github.com/evsite/tankleague/pkg/errors"
	"github.com/evsite/tankleague/pkg/logger"
	"github.com/evsite/tankleague/pkg/utils"
	"gorm.io/gorm"
)

// The weekly offer window opens Thursday 17:00 UTC and runs until the
// next Thursday.
const importWindowHour = 17

// ImportService generates the weekly import offers and handles the two
// row-locked purchase flows (imports and boxes).
type ImportService struct {
	db        *gorm.DB
	teams     *repositories.TeamRepository
	tanks     *repositories.TankRepository
	imports   *repositories.ImportRepository
	ledger    *LedgerService
	batchSize int
}

func NewImportService(
	db *gorm.DB,
	teams *repositories.TeamRepository,
	tanks *repositories.TankRepository,
	imports *repositories.ImportRepository,
	ledger *LedgerService,
	batchSize int,
) *ImportService {
	return &ImportService{
		db:        db,
		teams:     teams,
		tanks:     tanks,
		imports:   imports,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// importWindowStart returns the most recent Thursday 17:00 UTC at or
// before t.
func importWindowStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), importWindowHour, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) - int(time.Thursday) + 7) % 7
	start := day.AddDate(0, 0, -offset)
	if start.After(t) {
		start = start.AddDate(0, 0, -7)
	}
	return start
}

// GenerateWeeklyImports creates the current week's import batch if it does
// not exist yet. The active criteria selects candidate tanks, tanks
// offered in the previous window are excluded, required tanks are seeded
// first and the rest of the batch is filled by uniform sampling.
func (s *ImportService) GenerateWeeklyImports(now time.Time) error {
	windowStart := importWindowStart(now)
	windowEnd := windowStart.AddDate(0, 0, 7)

	exists, err := s.imports.HasBatchFrom(windowStart)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	criteria, err := s.imports.GetActiveCriteria()
	if err != nil {
		return err
	}
	if criteria == nil {
		logger.Warn("no active import criteria, skipping batch generation")
		return nil
	}

	recent, err := s.imports.RecentTankIDs(windowStart.AddDate(0, 0, -7))
	if err != nil {
		return err
	}

	allTanks, err := s.tanks.ListAll()
	if err != nil {
		return err
	}

	required := map[uint]bool{}
	var batch []models.Tank
	count := 0
	for _, rt := range criteria.RequiredTanks {
		if count >= criteria.RequiredTankCount || count >= s.batchSize {
			break
		}
		for i := range allTanks {
			if allTanks[i].ID == rt.ID {
				required[rt.ID] = true
				batch = append(batch, allTanks[i])
				count++
				break
			}
		}
	}

	var pool []models.Tank
	for i := range allTanks {
		t := &allTanks[i]
		if required[t.ID] || recent[t.ID] || !criteria.Matches(t) {
			continue
		}
		pool = append(pool, *t)
	}
	fill := s.batchSize - len(batch)
	if fill > len(pool) {
		fill = len(pool)
	}
	for _, idx := range utils.SampleIndices(len(pool), fill) {
		batch = append(batch, pool[idx])
	}

	for _, tank := range batch {
		discount := criteria.Discount
		if required[tank.ID] {
			discount += criteria.RequiredTankDiscount
		}
		if discount > 100 {
			discount = 100
		}
		if err := s.imports.CreateImportTank(&models.ImportTank{
			TankID:         tank.ID,
			CriteriaID:     criteria.ID,
			Discount:       discount,
			AvailableFrom:  windowStart,
			AvailableUntil: windowEnd,
		}); err != nil {
			return err
		}
	}

	logger.Info("weekly import batch generated",
		"criteria", criteria.Name, "offers", len(batch), "window_start", windowStart)
	return nil
}

// PurchaseImport buys a one-time import offer. The offer row is locked
// for the check-and-mark sequence so concurrent purchases cannot both
// redeem it.
func (s *ImportService) PurchaseImport(teamName string, importID uint, user string) (string, error) {
	now := time.Now().UTC()
	var msg string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		offer, err := s.imports.GetImportForUpdate(tx, importID)
		if err != nil {
			return err
		}
		if !offer.IsAvailable(now) {
			return errors.New(errors.ErrCodeValidationFailed, "this import offer is not currently available")
		}
		if offer.IsPurchased {
			return errors.New(errors.ErrCodeStateConflict, "this import offer has already been purchased")
		}

		price := offer.PriceFor(offer.Tank.HasManufacturer(team.ManufacturerIDs()))
		if price > team.Balance {
			return errors.New(errors.ErrCodeInsufficientFunds, "insufficient balance for this import")
		}

		before, err := s.ledger.Snapshot(tx, team)
		if err != nil {
			return err
		}

		team.Balance -= price
		team.TotalMoneySpent += price
		offer.IsPurchased = true
		offer.PurchasedByID = &team.ID

		if err := s.teams.CreateTeamTank(tx, &models.TeamTank{
			TeamID: team.ID,
			TankID: offer.TankID,
			Value:  offer.Tank.Price,
		}); err != nil {
			return err
		}
		if err := s.imports.SaveImport(tx, offer); err != nil {
			return err
		}
		if err := s.teams.Save(tx, team); err != nil {
			return err
		}

		msg = fmt.Sprintf("Imported %s for %d. Remaining balance: %d", offer.Tank.Name, price, team.Balance)
		return s.ledger.WriteChange(tx, team, before, user, models.MethodImportPurchase, nil)
	})
	return msg, err
}

// PurchaseBox buys copies of a box, stacking them on the team's holding.
func (s *ImportService) PurchaseBox(teamName string, boxID uint, amount int, user string) (string, error) {
	if amount <= 0 {
		return "", errors.New(errors.ErrCodeValidation, "box amount must be positive")
	}
	var msg string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		box, err := s.imports.GetBox(boxID)
		if err != nil {
			return err
		}

		total := box.Price * int64(amount)
		if total > team.Balance {
			return errors.New(errors.ErrCodeInsufficientFunds, "insufficient balance for these boxes")
		}

		before, err := s.ledger.Snapshot(tx, team)
		if err != nil {
			return err
		}

		team.Balance -= total
		team.TotalMoneySpent += total
		if _, err := s.imports.UpsertTeamBox(tx, team.ID, box.ID, amount); err != nil {
			return err
		}
		if err := s.teams.Save(tx, team); err != nil {
			return err
		}

		msg = fmt.Sprintf("Purchased %d x %s. Remaining balance: %d", amount, box.Name, team.Balance)
		return s.ledger.WriteChange(tx, team, before, user, models.MethodBoxPurchase, nil)
	})
	return msg, err
}

// OpenBox opens one copy of a held box under a row lock and awards a
// uniformly random tank from the box set.
func (s *ImportService) OpenBox(teamName string, teamBoxID uint, user string) (string, error) {
	var msg string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		tb, err := s.imports.GetTeamBoxForUpdate(tx, teamBoxID)
		if err != nil {
			return err
		}
		if tb.TeamID != team.ID {
			return errors.New(errors.ErrCodeOwnershipViolation, "this box does not belong to your team")
		}
		if tb.Amount <= 0 {
			return errors.New(errors.ErrCodeInsufficientInventory, "no unopened copies of this box remain")
		}
		if len(tb.Box.Tanks) == 0 {
			return errors.New(errors.ErrCodeStateConflict, "this box has no tanks configured")
		}

		before, err := s.ledger.Snapshot(tx, team)
		if err != nil {
			return err
		}

		won := tb.Box.Tanks[utils.RandInt(len(tb.Box.Tanks))]
		tb.Amount--

		if err := s.teams.CreateTeamTank(tx, &models.TeamTank{
			TeamID: team.ID,
			TankID: won.ID,
			Value:  won.Price,
		}); err != nil {
			return err
		}
		if err := s.imports.SaveTeamBox(tx, tb); err != nil {
			return err
		}

		msg = fmt.Sprintf("Opened %s and won %s. %d box(es) remaining", tb.Box.Name, won.Name, tb.Amount)
		return s.ledger.WriteChange(tx, team, before, user, models.MethodBoxOpen, nil)
	})
	return msg, err
}

func (s *ImportService) lockTeamByName(tx *gorm.DB, name string) (*models.Team, error) {
	team, err := s.teams.GetByName(name)
	if err != nil {
		return nil, err
	}
	return s.teams.GetForUpdate(tx, team.ID)
}
