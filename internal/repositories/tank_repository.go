package repositories

import (
	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/pkg/errors"
	"gorm.io/gorm"
)

type TankRepository struct {
	db *gorm.DB
}

func NewTankRepository(db *gorm.DB) *TankRepository {
	return &TankRepository{db: db}
}

func (r *TankRepository) GetByName(name string) (*models.Tank, error) {
	var tank models.Tank
	err := r.db.Preload("Manufacturers").Where("name = ?", name).First(&tank).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "tank not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get tank")
	}
	return &tank, nil
}

func (r *TankRepository) GetByID(id uint) (*models.Tank, error) {
	var tank models.Tank
	err := r.db.Preload("Manufacturers").First(&tank, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "tank not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get tank")
	}
	return &tank, nil
}

// UpdatePrice writes a new list price and recomputes the derived cost of
// every upgrade path touching the tank, in one transaction.
func (r *TankRepository) UpdatePrice(tankID uint, price int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Tank{}).Where("id = ?", tankID).
			Update("price", price).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update tank price")
		}

		var paths []models.UpgradePath
		if err := tx.Preload("FromTank").Preload("ToTank").
			Where("from_tank_id = ? OR to_tank_id = ?", tankID, tankID).
			Find(&paths).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to load touching paths")
		}

		for i := range paths {
			paths[i].RecalculateCost()
			if err := tx.Model(&paths[i]).Update("cost", paths[i].Cost).Error; err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update path cost")
			}
		}
		return nil
	})
}

// ListGraphEdges returns every in-graph upgrade edge with both tank sides
// loaded, for the path search.
func (r *TankRepository) ListGraphEdges() ([]models.UpgradePath, error) {
	var paths []models.UpgradePath
	err := r.db.Preload("FromTank").Preload("ToTank").Preload("ToTank.Manufacturers").
		Where("in_graph = ?", true).
		Find(&paths).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list upgrade paths")
	}
	return paths, nil
}

// ListOutgoingPaths returns the original single-hop edges from a tank,
// in-graph or not.
func (r *TankRepository) ListOutgoingPaths(fromTankID uint) ([]models.UpgradePath, error) {
	var paths []models.UpgradePath
	err := r.db.Preload("FromTank").Preload("ToTank").Preload("ToTank.Manufacturers").
		Where("from_tank_id = ?", fromTankID).
		Find(&paths).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list outgoing paths")
	}
	return paths, nil
}

func (r *TankRepository) ListAll() ([]models.Tank, error) {
	var tanks []models.Tank
	if err := r.db.Preload("Manufacturers").Find(&tanks).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list tanks")
	}
	return tanks, nil
}
