package models

import (
	"math"
	"time"
)

// ImportCriteria filters which tanks qualify for a weekly import batch.
// At most one criteria row is active at a time; activation deactivates
// the previous one in the same transaction.
type ImportCriteria struct {
	ID                   uint    `gorm:"primaryKey"`
	Name                 string  `gorm:"type:varchar(50);not null"`
	MinRank              int     `gorm:"default:1"`
	MaxRank              int     `gorm:"default:5"`
	TankType             string  `gorm:"type:varchar(50)"` // empty matches all
	MinBattleRating      float64 `gorm:"default:0"`
	MaxBattleRating      float64 `gorm:"default:0"` // 0 means unbounded
	Discount             int     `gorm:"default:0"` // percent off list price
	RequiredTankDiscount int     `gorm:"default:0"`
	RequiredTankCount    int     `gorm:"default:0"`
	RequiredTanks        []Tank  `gorm:"many2many:import_criteria_required_tanks"`
	IsActive             bool    `gorm:"default:false;not null;index"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
}

func (ImportCriteria) TableName() string {
	return "import_criteria"
}

// Matches reports whether a tank satisfies the criteria filters.
func (c *ImportCriteria) Matches(t *Tank) bool {
	if t.Rank < c.MinRank || t.Rank > c.MaxRank {
		return false
	}
	if c.TankType != "" && t.Type != c.TankType {
		return false
	}
	if t.BattleRating < c.MinBattleRating {
		return false
	}
	if c.MaxBattleRating > 0 && t.BattleRating > c.MaxBattleRating {
		return false
	}
	return true
}

// Import price multipliers, tiered by manufacturer affiliation and battle
// rating. Business constants, preserved exactly.
const (
	importManuLowBRMult    = 0.8
	importManuHighBRMult   = 0.9
	importNoManuLowBRMult  = 1.25
	importNoManuHighBRMult = 1.35
	importBRThreshold      = 6.0
)

// ImportTank is a one-time-purchasable, time-windowed discounted offer.
type ImportTank struct {
	ID             uint      `gorm:"primaryKey"`
	TankID         uint      `gorm:"not null;index"`
	Tank           Tank      `gorm:"foreignKey:TankID;constraint:OnDelete:CASCADE"`
	CriteriaID     uint      `gorm:"not null;index"`
	Criteria       ImportCriteria `gorm:"foreignKey:CriteriaID"`
	Discount       int       `gorm:"default:0;not null"`
	AvailableFrom  time.Time `gorm:"not null;index"`
	AvailableUntil time.Time `gorm:"not null;index"`
	IsPurchased    bool      `gorm:"default:false;not null"`
	PurchasedByID  *uint     `gorm:"index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (ImportTank) TableName() string {
	return "import_tanks"
}

// IsAvailable reports whether the offer window covers the given instant.
func (it *ImportTank) IsAvailable(now time.Time) bool {
	return !now.Before(it.AvailableFrom) && now.Before(it.AvailableUntil)
}

// PriceFor computes the discounted import price with the manufacturer and
// battle-rating multiplier applied. The tank side must be loaded.
func (it *ImportTank) PriceFor(hasManufacturer bool) int64 {
	base := float64(it.Tank.Price) * (1 - float64(it.Discount)/100)

	var mult float64
	lowBR := it.Tank.BattleRating < importBRThreshold
	switch {
	case hasManufacturer && lowBR:
		mult = importManuLowBRMult
	case hasManufacturer:
		mult = importManuHighBRMult
	case lowBR:
		mult = importNoManuLowBRMult
	default:
		mult = importNoManuHighBRMult
	}

	return int64(math.Round(base * mult))
}

// TankBox is a purchasable random-reward container.
type TankBox struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"type:varchar(50);not null"`
	Price      int64  `gorm:"default:0;not null"`
	IsNational bool   `gorm:"default:false;not null"`
	Tanks      []Tank `gorm:"many2many:tank_box_tanks"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (TankBox) TableName() string {
	return "tank_boxes"
}

// TeamBox tracks how many unopened copies of a box a team holds.
type TeamBox struct {
	ID        uint    `gorm:"primaryKey"`
	TeamID    uint    `gorm:"not null;index:idx_team_box,unique"`
	Team      Team    `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	BoxID     uint    `gorm:"not null;index:idx_team_box,unique"`
	Box       TankBox `gorm:"foreignKey:BoxID;constraint:OnDelete:CASCADE"`
	Amount    int     `gorm:"default:0;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (TeamBox) TableName() string {
	return "team_boxes"
}
