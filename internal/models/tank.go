package models

import (
	"time"
)

type Manufacturer struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(50);uniqueIndex;not null"`
}

func (Manufacturer) TableName() string {
	return "manufacturers"
}

type Tank struct {
	ID            uint           `gorm:"primaryKey"`
	Name          string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	BattleRating  float64        `gorm:"default:1.0;not null"`
	Price         int64          `gorm:"default:0;not null"`
	Rank          int            `gorm:"default:1;not null"`
	Type          string         `gorm:"type:varchar(50);default:'MT'"`
	Manufacturers []Manufacturer `gorm:"many2many:tank_manufacturers"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

func (Tank) TableName() string {
	return "tanks"
}

// HasManufacturer reports whether any of the given manufacturer IDs sells
// this tank.
func (t *Tank) HasManufacturer(ids map[uint]bool) bool {
	for _, m := range t.Manufacturers {
		if ids[m.ID] {
			return true
		}
	}
	return false
}

// UpgradePath is a directed, costed edge between two tank types. Cost is
// derived from the price difference, never set by hand.
type UpgradePath struct {
	ID              uint   `gorm:"primaryKey"`
	FromTankID      uint   `gorm:"not null;index:idx_upgrade_edge"`
	FromTank        Tank   `gorm:"foreignKey:FromTankID;constraint:OnDelete:CASCADE"`
	ToTankID        uint   `gorm:"not null;index:idx_upgrade_edge"`
	ToTank          Tank   `gorm:"foreignKey:ToTankID;constraint:OnDelete:CASCADE"`
	RequiredKitTier string `gorm:"type:varchar(2)"` // "", T1, T2 or T3
	Cost            int64  `gorm:"default:0;not null"`
	InGraph         bool   `gorm:"default:true;not null"`
}

func (UpgradePath) TableName() string {
	return "upgrade_paths"
}

// equalPriceCost is the fallback upgrade cost when both tanks carry the
// same price, keyed by the destination tank's rank.
var equalPriceCost = map[int]int64{
	1: 3500,
	2: 7500,
	3: 10000,
	4: 15000,
	5: 20000,
}

// UpgradeCost derives the cost of moving between two prices: the full
// difference when upgrading, half when downgrading, and the rank-indexed
// fallback when prices match.
func UpgradeCost(fromPrice, toPrice int64, toRank int) int64 {
	diff := toPrice - fromPrice
	switch {
	case diff > 0:
		return diff
	case diff < 0:
		return -diff / 2
	default:
		return equalPriceCost[toRank]
	}
}

// RecalculateCost refreshes the derived edge cost. Both tank sides must be
// loaded.
func (p *UpgradePath) RecalculateCost() {
	p.Cost = UpgradeCost(p.FromTank.Price, p.ToTank.Price, p.ToTank.Rank)
}
