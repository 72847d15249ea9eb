package models

import (
	"time"
)

// Booster multiplies a team's match rewards until it expires by date or
// runs out of matches.
type Booster struct {
	ID          uint       `gorm:"primaryKey"`
	TeamID      uint       `gorm:"not null;index"`
	Team        Team       `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	Multiplier  float64    `gorm:"default:1.0;not null"`
	ExpiresAt   *time.Time `gorm:"index"`
	MatchesLeft *int
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Booster) TableName() string {
	return "boosters"
}

func (b *Booster) IsActive(now time.Time) bool {
	if b.ExpiresAt != nil && now.After(*b.ExpiresAt) {
		return false
	}
	if b.MatchesLeft != nil && *b.MatchesLeft <= 0 {
		return false
	}
	return true
}
