// Package audit implements the ledger's change-logging contract: a full
// team snapshot is captured before and after every mutating operation, a
// pure diff turns the pair into a structured change-set, and a log entry
// is persisted only when the change-set is non-empty.
package audit

import (
	"encoding/json"

	"github.com/evsite/tankleague/internal/models"
)

// TeamSnapshot is the serializable state captured around a ledger
// mutation. Owned tank names keep duplicates; the diff treats them as a
// multiset.
type TeamSnapshot struct {
	Balance            int64            `json:"balance"`
	Score              float64          `json:"score"`
	TotalMoneyEarned   int64            `json:"total_money_earned"`
	TotalMoneySpent    int64            `json:"total_money_spent"`
	Kits               models.KitCounts `json:"kits"`
	Manufacturers      []string         `json:"manufacturers"`
	Tanks              []string         `json:"tanks"`
	BoosterMatchesLeft *int             `json:"booster_matches_left,omitempty"`
	BoosterMultiplier  *float64         `json:"booster_multiplier,omitempty"`
}

// Capture builds a snapshot from a team row plus its derived lists.
func Capture(team *models.Team, tankNames []string, booster *models.Booster) TeamSnapshot {
	manus := make([]string, 0, len(team.Manufacturers))
	for _, m := range team.Manufacturers {
		manus = append(manus, m.Name)
	}
	tanks := make([]string, len(tankNames))
	copy(tanks, tankNames)

	snap := TeamSnapshot{
		Balance:          team.Balance,
		Score:            team.Score,
		TotalMoneyEarned: team.TotalMoneyEarned,
		TotalMoneySpent:  team.TotalMoneySpent,
		Kits:             team.Kits(),
		Manufacturers:    manus,
		Tanks:            tanks,
	}
	if booster != nil {
		mult := booster.Multiplier
		snap.BoosterMultiplier = &mult
		if booster.MatchesLeft != nil {
			left := *booster.MatchesLeft
			snap.BoosterMatchesLeft = &left
		}
	}
	return snap
}

// Marshal renders the snapshot as the JSON blob stored on a TeamLog row.
func (s TeamSnapshot) Marshal() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// UnmarshalSnapshot parses a stored snapshot blob.
func UnmarshalSnapshot(blob string) (TeamSnapshot, error) {
	var s TeamSnapshot
	err := json.Unmarshal([]byte(blob), &s)
	return s, err
}
