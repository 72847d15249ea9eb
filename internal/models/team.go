package models

import (
	"time"
)

// Upgrade kit tiers. The tier set is fixed; quantities live as plain
// columns on the team row instead of a free-form JSON mapping.
const (
	KitTierT1 = "T1"
	KitTierT2 = "T2"
	KitTierT3 = "T3"
)

// Fixed kit prices. The price doubles as the flat per-step discount a kit
// grants on an upgrade path.
const (
	KitPriceT1 int64 = 25000
	KitPriceT2 int64 = 50000
	KitPriceT3 int64 = 100000
)

// KitPrice returns the fixed price/discount of a tier, 0 for unknown tiers.
func KitPrice(tier string) int64 {
	switch tier {
	case KitTierT1:
		return KitPriceT1
	case KitTierT2:
		return KitPriceT2
	case KitTierT3:
		return KitPriceT3
	}
	return 0
}

// KitWeight is the ordering weight of a tier used by the minimize-kits
// upgrade search.
func KitWeight(tier string) int {
	switch tier {
	case KitTierT1:
		return 1
	case KitTierT2:
		return 2
	case KitTierT3:
		return 4
	}
	return 0
}

// KitCounts is a per-tier quantity vector.
type KitCounts struct {
	T1 int `json:"T1"`
	T2 int `json:"T2"`
	T3 int `json:"T3"`
}

func (k KitCounts) Get(tier string) int {
	switch tier {
	case KitTierT1:
		return k.T1
	case KitTierT2:
		return k.T2
	case KitTierT3:
		return k.T3
	}
	return 0
}

func (k *KitCounts) Add(tier string, n int) {
	switch tier {
	case KitTierT1:
		k.T1 += n
	case KitTierT2:
		k.T2 += n
	case KitTierT3:
		k.T3 += n
	}
}

// Weight is the summed ordering weight of the whole vector.
func (k KitCounts) Weight() int {
	return k.T1*KitWeight(KitTierT1) + k.T2*KitWeight(KitTierT2) + k.T3*KitWeight(KitTierT3)
}

type Team struct {
	ID               uint           `gorm:"primaryKey"`
	Name             string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	Color            string         `gorm:"type:varchar(7);default:'#000000'"`
	Balance          int64          `gorm:"default:0;not null"`
	Score            float64        `gorm:"default:0;not null"`
	TotalMoneyEarned int64          `gorm:"default:0;not null"`
	TotalMoneySpent  int64          `gorm:"default:0;not null"`
	Alliance         *string        `gorm:"type:varchar(50)"`
	Manufacturers    []Manufacturer `gorm:"many2many:team_manufacturers"`
	KitT1Qty         int            `gorm:"default:0;not null"`
	KitT2Qty         int            `gorm:"default:0;not null"`
	KitT3Qty         int            `gorm:"default:0;not null"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
}

func (Team) TableName() string {
	return "teams"
}

func (t *Team) KitQty(tier string) int {
	switch tier {
	case KitTierT1:
		return t.KitT1Qty
	case KitTierT2:
		return t.KitT2Qty
	case KitTierT3:
		return t.KitT3Qty
	}
	return 0
}

func (t *Team) setKitQty(tier string, qty int) {
	switch tier {
	case KitTierT1:
		t.KitT1Qty = qty
	case KitTierT2:
		t.KitT2Qty = qty
	case KitTierT3:
		t.KitT3Qty = qty
	}
}

// AddKits adjusts a tier's quantity by n (n may be negative). The update is
// rejected when it would drive the quantity negative.
func (t *Team) AddKits(tier string, n int) bool {
	if KitPrice(tier) == 0 {
		return false
	}
	next := t.KitQty(tier) + n
	if next < 0 {
		return false
	}
	t.setKitQty(tier, next)
	return true
}

func (t *Team) Kits() KitCounts {
	return KitCounts{T1: t.KitT1Qty, T2: t.KitT2Qty, T3: t.KitT3Qty}
}

// ManufacturerIDs returns the team's manufacturer set as a lookup map.
func (t *Team) ManufacturerIDs() map[uint]bool {
	ids := make(map[uint]bool, len(t.Manufacturers))
	for _, m := range t.Manufacturers {
		ids[m.ID] = true
	}
	return ids
}

// Split/merge actions for upgrade kits.
const (
	KitActionMerge = "merge"
	KitActionSplit = "split"
)

// SplitMergeKits converts kits between adjacent tiers: merge turns 2 units
// of a tier into 1 of the tier above, split turns 1 unit into 2 of the tier
// below. Returns false when the direction is invalid or the source
// quantity is insufficient; the team is unchanged in that case.
func (t *Team) SplitMergeKits(action, tier string, amount int) bool {
	if amount <= 0 {
		return false
	}
	switch action {
	case KitActionMerge:
		var target string
		switch tier {
		case KitTierT1:
			target = KitTierT2
		case KitTierT2:
			target = KitTierT3
		default:
			return false
		}
		if t.KitQty(tier) < 2*amount {
			return false
		}
		t.setKitQty(tier, t.KitQty(tier)-2*amount)
		t.setKitQty(target, t.KitQty(target)+amount)
		return true
	case KitActionSplit:
		var target string
		switch tier {
		case KitTierT3:
			target = KitTierT2
		case KitTierT2:
			target = KitTierT1
		default:
			return false
		}
		if t.KitQty(tier) < amount {
			return false
		}
		t.setKitQty(tier, t.KitQty(tier)-amount)
		t.setKitQty(target, t.KitQty(target)+2*amount)
		return true
	}
	return false
}

// TeamTank is an ownership record. Value freezes the purchase price at
// creation; resale and auction-sourced upgrade costs read it instead of
// the tank's live price.
type TeamTank struct {
	ID           uint      `gorm:"primaryKey"`
	TeamID       uint      `gorm:"not null;index"`
	Team         Team      `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	TankID       uint      `gorm:"not null;index"`
	Tank         Tank      `gorm:"foreignKey:TankID;constraint:OnDelete:CASCADE"`
	IsTrad       bool      `gorm:"default:false;not null"`
	IsUpgradable bool      `gorm:"default:true;not null"`
	FromAuctions bool      `gorm:"default:false;not null"`
	Value        int64     `gorm:"default:0;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (TeamTank) TableName() string {
	return "team_tanks"
}

// SalePrice is the frozen value when set, otherwise the tank's current
// price.
func (tt *TeamTank) SalePrice() int64 {
	if tt.Value > 0 {
		return tt.Value
	}
	return tt.Tank.Price
}
