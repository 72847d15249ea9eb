package services

import (
	"math"
	"testing"

	"github.com/evsite/tankleague/internal/audit"
	"github.com/evsite/tankleague/internal/models"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestRevertDeltaApply(t *testing.T) {
	tests := []struct {
		name      string
		prev      audit.TeamSnapshot
		next      audit.TeamSnapshot
		team      models.Team
		want      models.Team
		wantFloor bool
	}{
		{
			name: "money and score undone",
			prev: audit.TeamSnapshot{Balance: 10000, Score: 2, TotalMoneyEarned: 50000},
			next: audit.TeamSnapshot{Balance: 45000, Score: 5, TotalMoneyEarned: 85000},
			team: models.Team{Balance: 45000, Score: 5, TotalMoneyEarned: 85000},
			want: models.Team{Balance: 10000, Score: 2, TotalMoneyEarned: 50000},
		},
		{
			name: "no-show penalty undone",
			prev: audit.TeamSnapshot{Balance: 5000},
			next: audit.TeamSnapshot{Balance: -15000},
			team: models.Team{Balance: -15000},
			want: models.Team{Balance: 5000},
		},
		{
			name: "kit grant undone",
			prev: audit.TeamSnapshot{Kits: models.KitCounts{T1: 2}},
			next: audit.TeamSnapshot{Kits: models.KitCounts{T1: 3}},
			team: models.Team{KitT1Qty: 3},
			want: models.Team{KitT1Qty: 2},
		},
		{
			name:      "spent kit floors at zero",
			prev:      audit.TeamSnapshot{Kits: models.KitCounts{T1: 0}},
			next:      audit.TeamSnapshot{Kits: models.KitCounts{T1: 1}},
			team:      models.Team{KitT1Qty: 0},
			want:      models.Team{KitT1Qty: 0},
			wantFloor: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team := tt.team
			floored := revertDeltaFor(tt.prev, tt.next).apply(&team)
			if floored != tt.wantFloor {
				t.Fatalf("floored = %v, want %v", floored, tt.wantFloor)
			}
			if team.Balance != tt.want.Balance || team.Score != tt.want.Score ||
				team.TotalMoneyEarned != tt.want.TotalMoneyEarned || team.KitT1Qty != tt.want.KitT1Qty {
				t.Errorf("team after revert = %+v, want %+v", team, tt.want)
			}
		})
	}
}

func TestBoosterRestoreFrom(t *testing.T) {
	tests := []struct {
		name string
		snap audit.TeamSnapshot
		want *boosterRestore
	}{
		{"no booster", audit.TeamSnapshot{}, nil},
		{"time-limited booster is untouched",
			audit.TeamSnapshot{BoosterMultiplier: floatPtr(1.5)}, nil},
		{"match-limited booster",
			audit.TeamSnapshot{BoosterMatchesLeft: intPtr(2), BoosterMultiplier: floatPtr(2)},
			&boosterRestore{MatchesLeft: 2, Multiplier: 2}},
		{"missing multiplier defaults to one",
			audit.TeamSnapshot{BoosterMatchesLeft: intPtr(1)},
			&boosterRestore{MatchesLeft: 1, Multiplier: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := boosterRestoreFrom(tt.snap)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("restore = %+v, want %+v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("restore = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Applying a computed outcome and then reverting from the snapshots alone
// must restore every team's balance, score, earnings, kits and booster
// exactly.
func TestRevertRestoresCalculatedState(t *testing.T) {
	in := RewardInput{
		Match: RewardMatch{Mode: models.ModeTraditional, BestOf: 3, WinningSide: models.SideTeam1, RoundScore: "2:0"},
		Sides: map[string]RewardSide{
			models.SideTeam1: {TeamIDs: []uint{1}, TankCount: 4},
			models.SideTeam2: {TeamIDs: []uint{2}, TankCount: 4},
		},
		Results:  []ResultLine{{TeamID: 1, WasPresent: true}, {TeamID: 2, WasPresent: true}},
		Boosters: map[uint]BoosterUse{1: {Multiplier: 2, MatchLimited: true}},
	}
	out := ComputeRewards(in)
	if !out.KitBonusEligible {
		t.Fatal("expected kit bonus eligibility for a traditional match")
	}
	if !out.BoosterConsumed[1] {
		t.Fatal("expected the winner's booster to be consumed")
	}

	teams := map[uint]*models.Team{
		1: {ID: 1, Balance: 50000, Score: 10, TotalMoneyEarned: 200000, KitT1Qty: 2},
		2: {ID: 2, Balance: -3000, Score: 4.5, TotalMoneyEarned: 90000},
	}
	boosters := map[uint]*models.Booster{
		1: {TeamID: 1, Multiplier: 2, MatchesLeft: intPtr(1)},
	}

	originals := map[uint]models.Team{}
	for id, team := range teams {
		originals[id] = *team
	}

	for id, team := range teams {
		before := audit.Capture(team, nil, boosters[id])

		// mirror the persistence arithmetic
		money := int64(math.Round(out.Money[id]))
		team.Balance += money
		if money > 0 {
			team.TotalMoneyEarned += money
		}
		team.Score += out.Score[id]
		if out.KitBonusEligible && out.Participants[id] {
			team.AddKits(models.KitTierT1, 1)
		}
		remaining := boosters[id]
		if out.BoosterConsumed[id] {
			remaining = nil
		}
		after := audit.Capture(team, nil, remaining)

		if revertDeltaFor(before, after).apply(team) {
			t.Fatalf("team %d: unexpected kit floor during reversal", id)
		}

		orig := originals[id]
		if team.Balance != orig.Balance || team.Score != orig.Score ||
			team.TotalMoneyEarned != orig.TotalMoneyEarned || team.KitT1Qty != orig.KitT1Qty {
			t.Errorf("team %d not restored: got %+v, want %+v", id, team, orig)
		}

		restore := boosterRestoreFrom(before)
		if boosters[id] == nil {
			if restore != nil {
				t.Errorf("team %d: unexpected booster restore %+v", id, restore)
			}
			continue
		}
		if restore == nil {
			t.Fatalf("team %d: expected a booster restore", id)
		}
		if restore.MatchesLeft != *boosters[id].MatchesLeft || restore.Multiplier != boosters[id].Multiplier {
			t.Errorf("team %d: booster restore = %+v, want %d matches at x%v",
				id, restore, *boosters[id].MatchesLeft, boosters[id].Multiplier)
		}
	}
}
