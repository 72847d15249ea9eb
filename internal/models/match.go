package models

import (
	"time"
)

// Match modes
const (
	ModeTraditional = "traditional"
	ModeAdvanced    = "advanced"
	ModeEvolved     = "evolved"
)

// Game modes
const (
	GamemodeAnnihilation = "annihilation"
	GamemodeDomination   = "domination"
	GamemodeFlagTank     = "flag_tank"
)

// Money rules
const (
	MoneyRulesNone      = "none"
	MoneyRulesMoneyRule = "money_rule"
	MoneyRulesEvenSplit = "even_split"
)

// Sides
const (
	SideTeam1 = "team_1"
	SideTeam2 = "team_2"
)

// OtherSide returns the opposing side identifier.
func OtherSide(side string) string {
	if side == SideTeam1 {
		return SideTeam2
	}
	return SideTeam1
}

type Match struct {
	ID            uint      `gorm:"primaryKey"`
	Datetime      time.Time `gorm:"not null;index"`
	Mode          string    `gorm:"type:varchar(50);not null"`
	Gamemode      string    `gorm:"type:varchar(50);not null"`
	BestOfNumber  int       `gorm:"not null"`
	MapSelection  string    `gorm:"type:varchar(255)"`
	MoneyRules    string    `gorm:"type:varchar(50);default:'none'"`
	SpecialRules  string    `gorm:"type:text"`
	WasPlayed     bool      `gorm:"default:false;not null;index"`
	WebhookIDSchedule string `gorm:"type:varchar(30)"`
	WebhookIDResult   string `gorm:"type:varchar(30)"`
	WebhookIDCalc     string `gorm:"type:varchar(30)"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (Match) TableName() string {
	return "matches"
}

// TeamMatch places a team on one side of a match with the tanks it
// committed.
type TeamMatch struct {
	ID      uint       `gorm:"primaryKey"`
	MatchID uint       `gorm:"not null;index"`
	Match   Match      `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	TeamID  uint       `gorm:"not null;index"`
	Team    Team       `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	Side    string     `gorm:"type:varchar(10);default:'team_1';not null"`
	Tanks   []TeamTank `gorm:"many2many:team_match_tanks"`
}

func (TeamMatch) TableName() string {
	return "team_matches"
}

// MatchResult holds a finalized match outcome. IsCalced flips false to
// true exactly once per calculation and back exactly once per reversal.
type MatchResult struct {
	ID          uint      `gorm:"primaryKey"`
	MatchID     uint      `gorm:"uniqueIndex;not null"`
	Match       Match     `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	WinningSide string    `gorm:"type:varchar(10);not null"`
	JudgeID     *uint     `gorm:"index"`
	Judge       *Team     `gorm:"foreignKey:JudgeID"`
	RoundScore  string    `gorm:"type:varchar(10)"`
	IsCalced    bool      `gorm:"default:false;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`

	TeamResults []TeamResult `gorm:"foreignKey:MatchResultID;constraint:OnDelete:CASCADE"`
	TanksLost   []TankLost   `gorm:"foreignKey:MatchResultID;constraint:OnDelete:CASCADE"`
	Substitutes []Substitute `gorm:"foreignKey:MatchResultID;constraint:OnDelete:CASCADE"`
}

func (MatchResult) TableName() string {
	return "match_results"
}

type TeamResult struct {
	ID            uint    `gorm:"primaryKey"`
	MatchResultID uint    `gorm:"not null;index"`
	TeamID        uint    `gorm:"not null;index"`
	Team          Team    `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	Bonuses       float64 `gorm:"default:0"`
	Penalties     float64 `gorm:"default:0"`
	WasPresent    bool    `gorm:"default:true;not null"`
}

func (TeamResult) TableName() string {
	return "team_results"
}

type TankLost struct {
	ID            uint `gorm:"primaryKey"`
	MatchResultID uint `gorm:"not null;index"`
	TeamID        uint `gorm:"not null;index"`
	Team          Team `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	TankID        uint `gorm:"not null"`
	Tank          Tank `gorm:"foreignKey:TankID;constraint:OnDelete:CASCADE"`
	Quantity      int  `gorm:"not null"`
}

func (TankLost) TableName() string {
	return "tanks_lost"
}

// Substitute activity levels run 1 (low) to 3 (high).
type Substitute struct {
	ID              uint   `gorm:"primaryKey"`
	MatchResultID   uint   `gorm:"not null;index"`
	TeamID          uint   `gorm:"not null;index"`
	Team            Team   `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	Activity        int    `gorm:"not null"`
	Side            string `gorm:"type:varchar(10);default:'team_1';not null"`
	TeamPlayedForID *uint  `gorm:"index"`
	TeamPlayedFor   *Team  `gorm:"foreignKey:TeamPlayedForID"`
}

func (Substitute) TableName() string {
	return "substitutes"
}
