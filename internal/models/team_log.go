package models

import (
	"time"
)

// Ledger method tags recorded on audit entries.
const (
	MethodPurchaseTank     = "purchase_tank"
	MethodSellTank         = "sell_tank"
	MethodUpgradeTank      = "upgrade_or_downgrade_tank"
	MethodDirectUpgrade    = "do_direct_upgrade"
	MethodSplitMergeKit    = "split_merge_kit"
	MethodMoneyTransferOut = "money_transfer_out"
	MethodMoneyTransferIn  = "money_transfer_in"
	MethodReverseChange    = "reverse_change"
	MethodCalcRewards      = "calc_rewards"
	MethodJudgeRewards     = "judge_rewards"
	MethodSubRewards       = "sub_rewards"
	MethodJudgeSubRewards  = "judge_and_sub_rewards"
	MethodNoShowRewards    = "no_show_rewards"
	MethodImportPurchase   = "import_purchase"
	MethodBoxPurchase      = "box_purchase"
	MethodBoxOpen          = "box_open"
	MethodReverted         = "reverted"
)

// RewardMethods are the tags written by the match reward calculator. Their
// reversal path subtracts logged deltas instead of restoring absolute
// snapshots.
var RewardMethods = map[string]bool{
	MethodCalcRewards:     true,
	MethodJudgeRewards:    true,
	MethodSubRewards:      true,
	MethodJudgeSubRewards: true,
	MethodNoShowRewards:   true,
}

// TeamLog is an append-only audit record of a ledger mutation. The
// before/after state blobs are full structured team snapshots; reversal
// reads them, never the human description.
type TeamLog struct {
	ID            uint   `gorm:"primaryKey"`
	TeamID        uint   `gorm:"not null;index"`
	Team          Team   `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	UserName      string `gorm:"type:varchar(100)"`
	MethodName    string `gorm:"type:varchar(50);not null;index"`
	Description   string `gorm:"type:text"`
	PreviousState string `gorm:"type:jsonb"`
	NewState      string `gorm:"type:jsonb"`
	MatchID       *uint  `gorm:"index"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

func (TeamLog) TableName() string {
	return "team_logs"
}
