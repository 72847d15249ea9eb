package repositories

import (
	"time"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/pkg/errors"
	"gorm.io/gorm"
)

type BoosterRepository struct {
	db *gorm.DB
}

func NewBoosterRepository(db *gorm.DB) *BoosterRepository {
	return &BoosterRepository{db: db}
}

// GetActiveForTeam returns the team's booster if it is neither expired nor
// exhausted, nil otherwise.
func (r *BoosterRepository) GetActiveForTeam(tx *gorm.DB, teamID uint, now time.Time) (*models.Booster, error) {
	var booster models.Booster
	err := tx.Where("team_id = ?", teamID).First(&booster).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get booster")
	}
	if !booster.IsActive(now) {
		return nil, nil
	}
	return &booster, nil
}

func (r *BoosterRepository) GetForTeam(tx *gorm.DB, teamID uint) (*models.Booster, error) {
	var booster models.Booster
	err := tx.Where("team_id = ?", teamID).First(&booster).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get booster")
	}
	return &booster, nil
}

func (r *BoosterRepository) Save(tx *gorm.DB, booster *models.Booster) error {
	if err := tx.Save(booster).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save booster")
	}
	return nil
}

func (r *BoosterRepository) Delete(tx *gorm.DB, id uint) error {
	if err := tx.Delete(&models.Booster{}, id).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to delete booster")
	}
	return nil
}

func (r *BoosterRepository) Create(tx *gorm.DB, booster *models.Booster) error {
	if err := tx.Create(booster).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create booster")
	}
	return nil
}
