package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/evsite/tankleague/internal/audit"
	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/internal/repositories"
	"github.com/evsite/tankleague/pkg/errors"
	"gorm.io/gorm"
)

// Sale refunds 60% of the tank's value. Business constant, preserved
// exactly.
const sellRefundPercent = 60

// Progressive tax brackets on the receiving side of a money transfer.
const (
	transferHighTaxThreshold = 25000
	transferMidTaxThreshold  = 10000
	transferHighKeepPercent  = 80
	transferMidKeepPercent   = 90
	transferLowKeepPercent   = 95
)

// LedgerService executes team balance/kit/ownership mutations. Every
// operation captures a before/after snapshot pair and persists a TeamLog
// when the diff is non-empty; failed validations never write anything.
type LedgerService struct {
	db       *gorm.DB
	teams    *repositories.TeamRepository
	tanks    *repositories.TankRepository
	logs     *repositories.LogRepository
	matches  *repositories.MatchRepository
	boosters *repositories.BoosterRepository
	resolver *ResolverService
}

func NewLedgerService(
	db *gorm.DB,
	teams *repositories.TeamRepository,
	tanks *repositories.TankRepository,
	logs *repositories.LogRepository,
	matches *repositories.MatchRepository,
	boosters *repositories.BoosterRepository,
	resolver *ResolverService,
) *LedgerService {
	return &LedgerService{
		db:       db,
		teams:    teams,
		tanks:    tanks,
		logs:     logs,
		matches:  matches,
		boosters: boosters,
		resolver: resolver,
	}
}

// Snapshot captures a team's auditable state inside the given
// transaction.
func (s *LedgerService) Snapshot(tx *gorm.DB, team *models.Team) (audit.TeamSnapshot, error) {
	names, err := s.teams.OwnedTankNames(tx, team.ID)
	if err != nil {
		return audit.TeamSnapshot{}, err
	}
	booster, err := s.boosters.GetForTeam(tx, team.ID)
	if err != nil {
		return audit.TeamSnapshot{}, err
	}
	return audit.Capture(team, names, booster), nil
}

// WriteChange diffs the before snapshot against the team's current state
// and appends a TeamLog when anything changed. No-op mutations leave no
// trace.
func (s *LedgerService) WriteChange(tx *gorm.DB, team *models.Team, before audit.TeamSnapshot, user, method string, matchID *uint) error {
	after, err := s.Snapshot(tx, team)
	if err != nil {
		return err
	}
	cs := audit.Diff(before, after)
	if cs.IsEmpty() {
		return nil
	}
	return s.logs.Create(tx, &models.TeamLog{
		TeamID:        team.ID,
		UserName:      user,
		MethodName:    method,
		Description:   cs.Describe(before, after),
		PreviousState: before.Marshal(),
		NewState:      after.Marshal(),
		MatchID:       matchID,
	})
}

// PurchaseTank buys one tank off the list for a team.
func (s *LedgerService) PurchaseTank(teamName, tankName, user string) (string, error) {
	var msg string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		tank, err := s.tanks.GetByName(tankName)
		if err != nil {
			return err
		}

		if tank.Price > team.Balance {
			return errors.New(errors.ErrCodeInsufficientFunds, "insufficient balance to purchase this tank")
		}
		if !tank.HasManufacturer(team.ManufacturerIDs()) {
			return errors.New(errors.ErrCodeOwnershipViolation, "this tank is not available from your manufacturers")
		}

		before, err := s.Snapshot(tx, team)
		if err != nil {
			return err
		}

		team.Balance -= tank.Price
		team.TotalMoneySpent += tank.Price
		if err := s.teams.Save(tx, team); err != nil {
			return err
		}
		if err := s.teams.CreateTeamTank(tx, &models.TeamTank{
			TeamID: team.ID,
			TankID: tank.ID,
			Value:  tank.Price,
		}); err != nil {
			return err
		}

		msg = fmt.Sprintf("Tank %s purchased successfully. Remaining balance: %d", tank.Name, team.Balance)
		return s.WriteChange(tx, team, before, user, models.MethodPurchaseTank, nil)
	})
	return msg, err
}

// SellTeamTank sells a specific ownership record.
func (s *LedgerService) SellTeamTank(teamName string, teamTankID uint, user string) (string, error) {
	var msg string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		tt, err := s.teams.GetTeamTank(tx, teamTankID)
		if err != nil {
			return err
		}
		if tt.TeamID != team.ID {
			return errors.New(errors.ErrCodeOwnershipViolation, "you do not own this tank")
		}
		msg, err = s.sellLocked(tx, team, tt, user)
		return err
	})
	return msg, err
}

// SellTank sells a free copy of the given tank type: not
// traditional-only, not auction-sourced, not committed to an unplayed
// match.
func (s *LedgerService) SellTank(teamName, tankName, user string) (string, error) {
	var msg string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		copies, err := s.teams.FindTeamTanksByTankName(tx, team.ID, tankName)
		if err != nil {
			return err
		}
		if len(copies) == 0 {
			return errors.New(errors.ErrCodeOwnershipViolation, "you do not own this tank")
		}

		for i := range copies {
			tt := &copies[i]
			if tt.IsTrad || tt.FromAuctions {
				continue
			}
			committed, err := s.matches.IsTeamTankCommitted(tx, tt.ID)
			if err != nil {
				return err
			}
			if committed {
				continue
			}
			msg, err = s.sellLocked(tx, team, tt, user)
			return err
		}
		return errors.New(errors.ErrCodeOwnershipViolation, "every copy of this tank is committed or restricted")
	})
	return msg, err
}

// sellLocked performs the sale of a concrete ownership record with the
// team row already locked.
func (s *LedgerService) sellLocked(tx *gorm.DB, team *models.Team, tt *models.TeamTank, user string) (string, error) {
	committed, err := s.matches.IsTeamTankCommitted(tx, tt.ID)
	if err != nil {
		return "", err
	}
	if committed {
		return "", errors.New(errors.ErrCodeOwnershipViolation, "this tank is committed to an unplayed match")
	}

	before, err := s.Snapshot(tx, team)
	if err != nil {
		return "", err
	}

	credit := tt.SalePrice() * sellRefundPercent / 100
	team.Balance += credit
	team.TotalMoneyEarned += credit

	if err := s.teams.DeleteTeamTank(tx, tt.ID); err != nil {
		return "", err
	}
	if err := s.teams.Save(tx, team); err != nil {
		return "", err
	}
	if err := s.WriteChange(tx, team, before, user, models.MethodSellTank, nil); err != nil {
		return "", err
	}

	return fmt.Sprintf("Tank %s sold successfully. New balance: %d", tt.Tank.Name, team.Balance), nil
}

// UpgradeOrDowngradeTank moves an ownership record along the best resolved
// path to the requested destination. Extra player-chosen kit tiers are
// consumed on top of the path's required kits and discount the total
// independently.
func (s *LedgerService) UpgradeOrDowngradeTank(teamName string, teamTankID uint, toTankName string, extraKitTiers []string, user string) (string, error) {
	var msg string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		tt, err := s.teams.GetTeamTank(tx, teamTankID)
		if err != nil {
			return err
		}
		if tt.TeamID != team.ID {
			return errors.New(errors.ErrCodeOwnershipViolation, "you do not own this tank")
		}
		committed, err := s.matches.IsTeamTankCommitted(tx, tt.ID)
		if err != nil {
			return err
		}
		if committed {
			return errors.New(errors.ErrCodeOwnershipViolation, "this tank is committed to an unplayed match")
		}

		toTank, err := s.tanks.GetByName(toTankName)
		if err != nil {
			return err
		}
		opt, err := s.resolver.FindUpgradeOption(team.ID, tt.ID, toTank.ID, true)
		if err != nil {
			return err
		}

		msg, err = s.applyUpgrade(tx, team, tt, toTank, opt, extraKitTiers, user, models.MethodUpgradeTank, true)
		return err
	})
	return msg, err
}

// DoDirectUpgrade is the single-hop variant. A source still committed to
// an unplayed match is kept in place alongside the new record until the
// match resolves.
func (s *LedgerService) DoDirectUpgrade(teamName string, teamTankID uint, toTankName string, extraKitTiers []string, user string) (string, error) {
	var msg string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		tt, err := s.teams.GetTeamTank(tx, teamTankID)
		if err != nil {
			return err
		}
		if tt.TeamID != team.ID {
			return errors.New(errors.ErrCodeOwnershipViolation, "you do not own this tank")
		}

		toTank, err := s.tanks.GetByName(toTankName)
		if err != nil {
			return err
		}
		opt, err := s.resolver.FindDirectOption(team.ID, tt.ID, toTank.ID)
		if err != nil {
			return err
		}

		committed, err := s.matches.IsTeamTankCommitted(tx, tt.ID)
		if err != nil {
			return err
		}

		msg, err = s.applyUpgrade(tx, team, tt, toTank, opt, extraKitTiers, user, models.MethodDirectUpgrade, !committed)
		return err
	})
	return msg, err
}

// applyUpgrade charges kits and money for a resolved upgrade option and
// swaps the ownership records. deleteSource false leaves the source record
// in place (tolerated temporary double ownership).
func (s *LedgerService) applyUpgrade(tx *gorm.DB, team *models.Team, tt *models.TeamTank, toTank *models.Tank, opt *UpgradeOption, extraKitTiers []string, user, method string, deleteSource bool) (string, error) {
	cost := opt.TotalCost
	if opt.AvailableInManufacturer && opt.ManuCost != nil {
		cost = *opt.ManuCost
	}

	needed := opt.RequiredKits
	for _, tier := range extraKitTiers {
		if models.KitPrice(tier) == 0 {
			return "", errors.New(errors.ErrCodeValidation, fmt.Sprintf("invalid kit tier %q", tier))
		}
		needed.Add(tier, 1)
		cost -= models.KitPrice(tier)
	}
	if cost < 0 {
		cost = 0
	}

	var missing []string
	for _, tier := range []string{models.KitTierT1, models.KitTierT2, models.KitTierT3} {
		if team.KitQty(tier) < needed.Get(tier) {
			missing = append(missing, tier)
		}
	}
	if len(missing) > 0 {
		return "", errors.New(errors.ErrCodeInsufficientInventory,
			"missing upgrade kits: "+strings.Join(missing, ", "))
	}
	if cost > team.Balance {
		return "", errors.New(errors.ErrCodeInsufficientFunds, "insufficient balance for this upgrade or downgrade")
	}

	before, err := s.Snapshot(tx, team)
	if err != nil {
		return "", err
	}

	for _, tier := range []string{models.KitTierT1, models.KitTierT2, models.KitTierT3} {
		if n := needed.Get(tier); n > 0 {
			team.AddKits(tier, -n)
		}
	}
	team.Balance -= cost
	team.TotalMoneySpent += cost

	if deleteSource {
		if err := s.teams.DeleteTeamTank(tx, tt.ID); err != nil {
			return "", err
		}
	}
	if err := s.teams.CreateTeamTank(tx, &models.TeamTank{
		TeamID: team.ID,
		TankID: toTank.ID,
		Value:  toTank.Price,
	}); err != nil {
		return "", err
	}
	if err := s.teams.Save(tx, team); err != nil {
		return "", err
	}
	if err := s.WriteChange(tx, team, before, user, method, nil); err != nil {
		return "", err
	}

	return fmt.Sprintf("Tank %s upgraded/downgraded to %s. Total cost: %d. Remaining balance: %d",
		tt.Tank.Name, toTank.Name, cost, team.Balance), nil
}

// SplitMergeKit converts kits between adjacent tiers.
func (s *LedgerService) SplitMergeKit(teamName, action, tier string, amount int, user string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		team, err := s.lockTeamByName(tx, teamName)
		if err != nil {
			return err
		}
		before, err := s.Snapshot(tx, team)
		if err != nil {
			return err
		}
		if !team.SplitMergeKits(action, tier, amount) {
			return errors.New(errors.ErrCodeValidationFailed,
				fmt.Sprintf("cannot %s %d %s kit(s)", action, amount, tier))
		}
		if err := s.teams.Save(tx, team); err != nil {
			return err
		}
		return s.WriteChange(tx, team, before, user, models.MethodSplitMergeKit, nil)
	})
}

// MoneyTransfer moves money between teams. The receiver pays a progressive
// tax on the amount; the sender is limited to one outgoing transfer per
// calendar week (Monday start).
func (s *LedgerService) MoneyTransfer(fromName, toName string, amount int64, user string) error {
	if amount <= 0 {
		return errors.New(errors.ErrCodeValidation, "transfer amount must be positive")
	}
	if fromName == toName {
		return errors.New(errors.ErrCodeValidation, "cannot transfer to the same team")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		fromInfo, err := s.teams.GetByName(fromName)
		if err != nil {
			return err
		}
		toInfo, err := s.teams.GetByName(toName)
		if err != nil {
			return err
		}

		// lock in ID order so concurrent transfers cannot deadlock
		firstID, secondID := fromInfo.ID, toInfo.ID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}
		locked := map[uint]*models.Team{}
		for _, id := range []uint{firstID, secondID} {
			team, err := s.teams.GetForUpdate(tx, id)
			if err != nil {
				return err
			}
			locked[id] = team
		}
		from, to := locked[fromInfo.ID], locked[toInfo.ID]

		sent, err := s.logs.HasTransferOutSince(tx, from.ID, weekStart(time.Now().UTC()))
		if err != nil {
			return err
		}
		if sent {
			return errors.New(errors.ErrCodeRateLimited, "only one outgoing transfer per week is allowed")
		}
		if amount > from.Balance {
			return errors.New(errors.ErrCodeInsufficientFunds, "insufficient balance for this transfer")
		}

		beforeFrom, err := s.Snapshot(tx, from)
		if err != nil {
			return err
		}
		beforeTo, err := s.Snapshot(tx, to)
		if err != nil {
			return err
		}

		received := receiveAfterTax(amount)
		from.Balance -= amount
		to.Balance += received
		to.TotalMoneyEarned += received

		if err := s.teams.Save(tx, from); err != nil {
			return err
		}
		if err := s.teams.Save(tx, to); err != nil {
			return err
		}

		if err := s.WriteChange(tx, from, beforeFrom, user, models.MethodMoneyTransferOut, nil); err != nil {
			return err
		}
		return s.WriteChange(tx, to, beforeTo, user, models.MethodMoneyTransferIn, nil)
	})
}

// ReverseChange restores a team's numeric state from a log entry's
// previous-value snapshot. Non-reward entries also restore kit quantities
// wholesale and replay tank additions/removals from the structured diff.
func (s *LedgerService) ReverseChange(logID uint, user string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		entry, err := s.logs.GetByID(logID)
		if err != nil {
			return err
		}
		if entry.MethodName == models.MethodReverted {
			return errors.New(errors.ErrCodeStateConflict, "log entry has already been reverted")
		}

		prev, err := audit.UnmarshalSnapshot(entry.PreviousState)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "corrupt previous snapshot")
		}
		next, err := audit.UnmarshalSnapshot(entry.NewState)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "corrupt new snapshot")
		}

		team, err := s.teams.GetForUpdate(tx, entry.TeamID)
		if err != nil {
			return err
		}
		before, err := s.Snapshot(tx, team)
		if err != nil {
			return err
		}

		team.Balance = prev.Balance

		if !models.RewardMethods[entry.MethodName] {
			team.KitT1Qty = prev.Kits.T1
			team.KitT2Qty = prev.Kits.T2
			team.KitT3Qty = prev.Kits.T3

			cs := audit.Diff(prev, next)
			for _, name := range cs.AddedTanks {
				copies, err := s.teams.FindTeamTanksByTankName(tx, team.ID, name)
				if err != nil {
					return err
				}
				if len(copies) == 0 {
					continue
				}
				if err := s.teams.DeleteTeamTank(tx, copies[len(copies)-1].ID); err != nil {
					return err
				}
			}
			for _, name := range cs.RemovedTanks {
				tank, err := s.tanks.GetByName(name)
				if err != nil {
					return err
				}
				if err := s.teams.CreateTeamTank(tx, &models.TeamTank{
					TeamID: team.ID,
					TankID: tank.ID,
					Value:  tank.Price,
				}); err != nil {
					return err
				}
			}
		}

		if err := s.teams.Save(tx, team); err != nil {
			return err
		}
		return s.WriteChange(tx, team, before, user, models.MethodReverseChange, nil)
	})
}

func (s *LedgerService) lockTeamByName(tx *gorm.DB, name string) (*models.Team, error) {
	team, err := s.teams.GetByName(name)
	if err != nil {
		return nil, err
	}
	return s.teams.GetForUpdate(tx, team.ID)
}

// receiveAfterTax applies the progressive receiving tax to a transfer
// amount.
func receiveAfterTax(amount int64) int64 {
	switch {
	case amount > transferHighTaxThreshold:
		return amount * transferHighKeepPercent / 100
	case amount > transferMidTaxThreshold:
		return amount * transferMidKeepPercent / 100
	default:
		return amount * transferLowKeepPercent / 100
	}
}

// weekStart returns the Monday 00:00 UTC opening the calendar week of t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}
