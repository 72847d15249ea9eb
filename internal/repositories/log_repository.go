package repositories

import (
	"time"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/pkg/errors"
	"gorm.io/gorm"
)

type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Create(tx *gorm.DB, log *models.TeamLog) error {
	if err := tx.Create(log).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create team log")
	}
	return nil
}

func (r *LogRepository) GetByID(id uint) (*models.TeamLog, error) {
	var log models.TeamLog
	err := r.db.First(&log, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "log entry not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get log entry")
	}
	return &log, nil
}

// ListByMatch returns every log row written for a match's reward
// calculation.
func (r *LogRepository) ListByMatch(tx *gorm.DB, matchID uint) ([]models.TeamLog, error) {
	var logs []models.TeamLog
	err := tx.Where("match_id = ?", matchID).Order("id").Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list match logs")
	}
	return logs, nil
}

func (r *LogRepository) Update(tx *gorm.DB, log *models.TeamLog) error {
	if err := tx.Save(log).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update team log")
	}
	return nil
}

// HasTransferOutSince reports whether the team already sent a money
// transfer at or after the given instant (weekly rate limit check).
func (r *LogRepository) HasTransferOutSince(tx *gorm.DB, teamID uint, since time.Time) (bool, error) {
	var count int64
	err := tx.Model(&models.TeamLog{}).
		Where("team_id = ? AND method_name = ? AND created_at >= ?",
			teamID, models.MethodMoneyTransferOut, since).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count transfers")
	}
	return count > 0, nil
}

func (r *LogRepository) ListByTeam(teamID uint, limit int) ([]models.TeamLog, error) {
	var logs []models.TeamLog
	err := r.db.Where("team_id = ?", teamID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list team logs")
	}
	return logs, nil
}
