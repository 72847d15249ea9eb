package repositories

import (
	"time"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ImportRepository struct {
	db *gorm.DB
}

func NewImportRepository(db *gorm.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// GetActiveCriteria returns the single active criteria, or nil when none
// is active. Having no active criteria is a normal state, not an error.
func (r *ImportRepository) GetActiveCriteria() (*models.ImportCriteria, error) {
	var criteria models.ImportCriteria
	err := r.db.Preload("RequiredTanks").Where("is_active = ?", true).First(&criteria).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get active criteria")
	}
	return &criteria, nil
}

// ActivateCriteria makes the given criteria the single active one,
// deactivating any other in the same transaction.
func (r *ImportRepository) ActivateCriteria(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ImportCriteria{}).
			Where("is_active = ? AND id <> ?", true, id).
			Update("is_active", false).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to deactivate criteria")
		}
		res := tx.Model(&models.ImportCriteria{}).Where("id = ?", id).Update("is_active", true)
		if res.Error != nil {
			return errors.Wrap(res.Error, errors.ErrCodeInternalError, "failed to activate criteria")
		}
		if res.RowsAffected == 0 {
			return errors.New(errors.ErrCodeNotFound, "import criteria not found")
		}
		return nil
	})
}

// RecentTankIDs lists tanks that appeared in an import batch whose window
// ended at or after the given instant.
func (r *ImportRepository) RecentTankIDs(since time.Time) (map[uint]bool, error) {
	var ids []uint
	err := r.db.Model(&models.ImportTank{}).
		Where("available_until >= ?", since).
		Pluck("tank_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list recent imports")
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// HasBatchFrom reports whether a batch already exists for the given window
// start, making weekly generation idempotent.
func (r *ImportRepository) HasBatchFrom(from time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.ImportTank{}).
		Where("available_from = ?", from).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternalError, "failed to check import batch")
	}
	return count > 0, nil
}

func (r *ImportRepository) CreateImportTank(it *models.ImportTank) error {
	if err := r.db.Create(it).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create import tank")
	}
	return nil
}

// GetImportForUpdate locks the offer row so the one-time purchase check
// cannot race.
func (r *ImportRepository) GetImportForUpdate(tx *gorm.DB, id uint) (*models.ImportTank, error) {
	var it models.ImportTank
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&it, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "import offer not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock import offer")
	}
	if err := tx.Preload("Manufacturers").First(&it.Tank, it.TankID).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to load import tank")
	}
	return &it, nil
}

func (r *ImportRepository) SaveImport(tx *gorm.DB, it *models.ImportTank) error {
	if err := tx.Save(it).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save import offer")
	}
	return nil
}

func (r *ImportRepository) GetBox(id uint) (*models.TankBox, error) {
	var box models.TankBox
	err := r.db.Preload("Tanks").First(&box, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "tank box not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get tank box")
	}
	return &box, nil
}

// GetTeamBoxForUpdate locks a team's box row for the open/decrement
// sequence.
func (r *ImportRepository) GetTeamBoxForUpdate(tx *gorm.DB, id uint) (*models.TeamBox, error) {
	var tb models.TeamBox
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tb, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "team box not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock team box")
	}
	if err := tx.Preload("Tanks").First(&tb.Box, tb.BoxID).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to load box")
	}
	return &tb, nil
}

// UpsertTeamBox adds purchased copies to a team's box stack.
func (r *ImportRepository) UpsertTeamBox(tx *gorm.DB, teamID, boxID uint, add int) (*models.TeamBox, error) {
	var tb models.TeamBox
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("team_id = ? AND box_id = ?", teamID, boxID).
		First(&tb).Error
	if err == gorm.ErrRecordNotFound {
		tb = models.TeamBox{TeamID: teamID, BoxID: boxID, Amount: add}
		if err := tx.Create(&tb).Error; err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to create team box")
		}
		return &tb, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock team box")
	}
	tb.Amount += add
	if err := tx.Save(&tb).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to save team box")
	}
	return &tb, nil
}

func (r *ImportRepository) SaveTeamBox(tx *gorm.DB, tb *models.TeamBox) error {
	if err := tx.Save(tb).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save team box")
	}
	return nil
}
