package repositories

import (
	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByName(name string) (*models.Team, error) {
	var team models.Team
	err := r.db.Preload("Manufacturers").Where("name = ?", name).First(&team).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "team not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get team")
	}
	return &team, nil
}

func (r *TeamRepository) GetByID(id uint) (*models.Team, error) {
	var team models.Team
	err := r.db.Preload("Manufacturers").First(&team, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "team not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get team")
	}
	return &team, nil
}

// GetForUpdate loads a team row under SELECT FOR UPDATE inside the given
// transaction. Every balance mutation goes through this.
func (r *TeamRepository) GetForUpdate(tx *gorm.DB, id uint) (*models.Team, error) {
	var team models.Team
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Manufacturers").
		First(&team, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "team not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to lock team")
	}
	return &team, nil
}

func (r *TeamRepository) Save(tx *gorm.DB, team *models.Team) error {
	if err := tx.Save(team).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save team")
	}
	return nil
}

// ListTeamTanks returns a team's ownership records with tank data loaded.
func (r *TeamRepository) ListTeamTanks(tx *gorm.DB, teamID uint) ([]models.TeamTank, error) {
	var tanks []models.TeamTank
	err := tx.Preload("Tank").Preload("Tank.Manufacturers").
		Where("team_id = ?", teamID).
		Order("id").
		Find(&tanks).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list team tanks")
	}
	return tanks, nil
}

// OwnedTankNames returns the names of every tank a team owns, one entry
// per copy, for audit snapshots.
func (r *TeamRepository) OwnedTankNames(tx *gorm.DB, teamID uint) ([]string, error) {
	var names []string
	err := tx.Model(&models.TeamTank{}).
		Joins("JOIN tanks ON tanks.id = team_tanks.tank_id").
		Where("team_tanks.team_id = ?", teamID).
		Order("tanks.name").
		Pluck("tanks.name", &names).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list owned tank names")
	}
	return names, nil
}

func (r *TeamRepository) GetTeamTank(tx *gorm.DB, id uint) (*models.TeamTank, error) {
	var tt models.TeamTank
	err := tx.Preload("Tank").Preload("Tank.Manufacturers").First(&tt, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "team tank not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get team tank")
	}
	return &tt, nil
}

func (r *TeamRepository) CreateTeamTank(tx *gorm.DB, tt *models.TeamTank) error {
	if err := tx.Create(tt).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create team tank")
	}
	return nil
}

func (r *TeamRepository) DeleteTeamTank(tx *gorm.DB, id uint) error {
	if err := tx.Delete(&models.TeamTank{}, id).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to delete team tank")
	}
	return nil
}

// FindTankByName finds one of a team's copies of the named tank type.
func (r *TeamRepository) FindTeamTanksByTankName(tx *gorm.DB, teamID uint, tankName string) ([]models.TeamTank, error) {
	var tanks []models.TeamTank
	err := tx.Preload("Tank").
		Joins("JOIN tanks ON tanks.id = team_tanks.tank_id").
		Where("team_tanks.team_id = ? AND tanks.name = ?", teamID, tankName).
		Find(&tanks).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to find team tanks")
	}
	return tanks, nil
}
