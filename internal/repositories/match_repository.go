package repositories

import (
	"time"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/pkg/errors"
	"gorm.io/gorm"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetMatch(id uint) (*models.Match, error) {
	var match models.Match
	err := r.db.First(&match, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "match not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get match")
	}
	return &match, nil
}

func (r *MatchRepository) SaveMatch(match *models.Match) error {
	if err := r.db.Save(match).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save match")
	}
	return nil
}

// ListUnannouncedScheduleIDs returns IDs of unplayed matches that have
// no schedule card yet.
func (r *MatchRepository) ListUnannouncedScheduleIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Match{}).
		Where("was_played = ? AND webhook_id_schedule = ''", false).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list unannounced matches")
	}
	return ids, nil
}

// ListUnannouncedResultIDs returns IDs of matches whose result is
// recorded but has no result card yet.
func (r *MatchRepository) ListUnannouncedResultIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Match{}).
		Joins("JOIN match_results ON match_results.match_id = matches.id").
		Where("matches.webhook_id_result = ''").
		Order("matches.id").
		Pluck("matches.id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list unannounced results")
	}
	return ids, nil
}

// ListUncalcedMatchIDs returns IDs of played matches whose results have
// not had rewards applied yet.
func (r *MatchRepository) ListUncalcedMatchIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.MatchResult{}).
		Joins("JOIN matches ON matches.id = match_results.match_id").
		Where("match_results.is_calced = ? AND matches.was_played = ?", false, true).
		Order("match_results.match_id").
		Pluck("match_results.match_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list uncalced matches")
	}
	return ids, nil
}

// GetResultByMatch loads a match result with its match and all child
// collections.
func (r *MatchRepository) GetResultByMatch(tx *gorm.DB, matchID uint) (*models.MatchResult, error) {
	var result models.MatchResult
	err := tx.Preload("Match").
		Preload("TeamResults").
		Preload("TanksLost").Preload("TanksLost.Tank").
		Preload("Substitutes").
		Where("match_id = ?", matchID).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "match result not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get match result")
	}
	return &result, nil
}

func (r *MatchRepository) SaveResult(tx *gorm.DB, result *models.MatchResult) error {
	if err := tx.Save(result).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save match result")
	}
	return nil
}

// ListTeamMatches returns the side assignments of a match with committed
// tanks loaded.
func (r *MatchRepository) ListTeamMatches(tx *gorm.DB, matchID uint) ([]models.TeamMatch, error) {
	var tms []models.TeamMatch
	err := tx.Preload("Team").
		Preload("Tanks").Preload("Tanks.Tank").
		Where("match_id = ?", matchID).
		Find(&tms).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list team matches")
	}
	return tms, nil
}

// IsTeamTankCommitted reports whether an ownership record is attached to
// any match that has not been played yet (the active-match guard).
func (r *MatchRepository) IsTeamTankCommitted(tx *gorm.DB, teamTankID uint) (bool, error) {
	var count int64
	err := tx.Table("team_match_tanks").
		Joins("JOIN team_matches ON team_matches.id = team_match_tanks.team_match_id").
		Joins("JOIN matches ON matches.id = team_matches.match_id").
		Where("team_match_tanks.team_tank_id = ? AND matches.was_played = ?", teamTankID, false).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternalError, "failed to check match commitment")
	}
	return count > 0, nil
}

// CountKitBonusMatches counts the traditional or domination matches a team
// has played since the given instant; the weekly T1-kit bonus caps at two.
func (r *MatchRepository) CountKitBonusMatches(tx *gorm.DB, teamID uint, since time.Time) (int64, error) {
	var count int64
	err := tx.Table("team_matches").
		Joins("JOIN matches ON matches.id = team_matches.match_id").
		Where("team_matches.team_id = ? AND matches.was_played = ? AND matches.datetime >= ?", teamID, true, since).
		Where("matches.mode = ? OR matches.gamemode = ?", models.ModeTraditional, models.GamemodeDomination).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternalError, "failed to count weekly matches")
	}
	return count, nil
}
