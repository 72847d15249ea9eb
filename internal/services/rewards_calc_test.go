package services

import (
	"math"
	"testing"

	"github.com/evsite/tankleague/internal/models"
)

func uintPtr(v uint) *uint { return &v }

func TestAverageRank(t *testing.T) {
	tests := []struct {
		name string
		lost []LostTank
		want int
	}{
		{"nothing lost", nil, 0},
		{
			"single tank",
			[]LostTank{{Rank: 3, BattleRating: 6.0, Quantity: 1}},
			3,
		},
		{
			"battle rating weighted",
			[]LostTank{
				{Rank: 1, BattleRating: 2.0, Quantity: 1},
				{Rank: 5, BattleRating: 8.0, Quantity: 1},
			},
			// (1*2 + 5*8) / 10 = 4.2 -> 4
			4,
		},
		{
			"quantity weighted",
			[]LostTank{
				{Rank: 1, BattleRating: 4.0, Quantity: 3},
				{Rank: 4, BattleRating: 4.0, Quantity: 1},
			},
			// (1*12 + 4*4) / 16 = 1.75 -> 2
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := averageRank(tt.lost); got != tt.want {
				t.Errorf("averageRank() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBaseReward(t *testing.T) {
	tests := []struct {
		name       string
		match      RewardMatch
		avgRank    int
		wantWinner int64
		wantLoser  int64
	}{
		{"trad bo3 rank 1", RewardMatch{Mode: models.ModeTraditional, BestOf: 3}, 1, 15000, 12000},
		{"trad bo5 rank 3", RewardMatch{Mode: models.ModeTraditional, BestOf: 5}, 3, 55000, 40000},
		{"advanced rank 5", RewardMatch{Mode: models.ModeAdvanced}, 5, 100000, 75000},
		{"flag rank 2", RewardMatch{Mode: models.ModeAdvanced, Gamemode: models.GamemodeFlagTank}, 2, 60000, 25000},
		{"rank clamped low", RewardMatch{Mode: models.ModeTraditional, BestOf: 3}, 0, 15000, 12000},
		{"rank clamped high", RewardMatch{Mode: models.ModeAdvanced}, 9, 100000, 75000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, l := baseReward(tt.match, tt.avgRank)
			if w != tt.wantWinner || l != tt.wantLoser {
				t.Errorf("baseReward() = (%d, %d), want (%d, %d)", w, l, tt.wantWinner, tt.wantLoser)
			}
		})
	}
}

func TestScorePoints(t *testing.T) {
	tests := []struct {
		name      string
		score     string
		forWinner bool
		want      float64
	}{
		// 2:1 -> 2 points scaled by 1 + 2/3
		{"winner 2:1", "2:1", true, 2 * (1 + 2.0/3.0)},
		// loser reads 1:2 -> 1 point, scaled by the same winner fraction
		{"loser 2:1", "2:1", false, 1 * (1 + 2.0/3.0)},
		{"winner 2:0", "2:0", true, 3 * 2.0},
		{"loser 2:0", "2:0", false, 0},
		{"unknown score", "7:4", true, 0},
		{"malformed score", "whatever", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorePoints(tt.score, tt.forWinner)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("scorePoints(%q, %v) = %g, want %g", tt.score, tt.forWinner, got, tt.want)
			}
		})
	}
}

func twoTeamInput(match RewardMatch) RewardInput {
	match.WinningSide = models.SideTeam1
	return RewardInput{
		Match: match,
		Sides: map[string]RewardSide{
			models.SideTeam1: {TeamIDs: []uint{1}, TankCount: 4},
			models.SideTeam2: {TeamIDs: []uint{2}, TankCount: 4},
		},
	}
}

func TestComputeRewardsNoShowSoleTeam(t *testing.T) {
	in := twoTeamInput(RewardMatch{Mode: models.ModeTraditional, BestOf: 3, RoundScore: "2:0"})
	in.Results = []ResultLine{{TeamID: 2, WasPresent: false}}
	in.Results = append(in.Results, ResultLine{TeamID: 1, Bonuses: 2, WasPresent: true})

	out := ComputeRewards(in)

	if !out.NoShow {
		t.Fatal("expected no-show short circuit")
	}
	if out.Money[2] != -20000 {
		t.Errorf("absent team delta = %g, want -20000", out.Money[2])
	}
	if out.Money[1] != 20000 {
		t.Errorf("opposing team delta = %g, want 20000", out.Money[1])
	}
	// no further reward logic: the bonus must not apply
	if len(out.Score) != 0 {
		t.Errorf("score deltas = %v, want none", out.Score)
	}
}

func TestComputeRewardsNoShowDroppedFromMultiTeamSide(t *testing.T) {
	in := RewardInput{
		Match: RewardMatch{Mode: models.ModeTraditional, BestOf: 3, WinningSide: models.SideTeam1, RoundScore: "2:0"},
		Sides: map[string]RewardSide{
			models.SideTeam1: {TeamIDs: []uint{1}, TankCount: 4},
			models.SideTeam2: {TeamIDs: []uint{2, 3}, TankCount: 4},
		},
		Results: []ResultLine{{TeamID: 3, WasPresent: false}},
	}

	out := ComputeRewards(in)

	if out.NoShow {
		t.Fatal("multi-team side no-show must not short-circuit")
	}
	if _, ok := out.Money[3]; ok {
		t.Errorf("dropped team still rewarded: %g", out.Money[3])
	}
	if out.Money[2] != 12000 {
		t.Errorf("remaining loser reward = %g, want flat 12000", out.Money[2])
	}
}

func TestComputeRewardsTraditionalFlat(t *testing.T) {
	in := twoTeamInput(RewardMatch{Mode: models.ModeTraditional, BestOf: 3, RoundScore: "2:1"})
	in.Lost = []LostTank{{TeamID: 2, Side: models.SideTeam2, Price: 40000, Rank: 1, BattleRating: 4.0, Quantity: 2}}

	out := ComputeRewards(in)

	// Traditional pays the base pair flat: rank 1 trad bo3 is 15000/12000.
	if out.Money[1] != 15000 {
		t.Errorf("winner reward = %g, want 15000", out.Money[1])
	}
	if out.Money[2] != 12000 {
		t.Errorf("loser reward = %g, want 12000", out.Money[2])
	}

	wantWinnerScore := 2 * (1 + 2.0/3.0)
	if math.Abs(out.Score[1]-wantWinnerScore) > 1e-9 {
		t.Errorf("winner score = %g, want %g", out.Score[1], wantWinnerScore)
	}
}

func TestComputeRewardsAdvancedLossGain(t *testing.T) {
	in := twoTeamInput(RewardMatch{Mode: models.ModeAdvanced, RoundScore: "2:0"})
	// Loser loses one 100000 tank: loser pays 2%, winner gains 3.2%.
	in.Lost = []LostTank{{TeamID: 2, Side: models.SideTeam2, Price: 100000, Rank: 1, BattleRating: 5.0, Quantity: 1}}

	out := ComputeRewards(in)

	// advanced rank 1 base 20000/15000
	if want := 20000 + 0.032*100000; math.Abs(out.Money[1]-want) > 1e-9 {
		t.Errorf("winner reward = %g, want %g", out.Money[1], want)
	}
	if want := 15000 - 0.02*100000; math.Abs(out.Money[2]-want) > 1e-9 {
		t.Errorf("loser reward = %g, want %g", out.Money[2], want)
	}
}

func TestComputeRewardsSingleTankDuelZeroesGains(t *testing.T) {
	in := RewardInput{
		Match: RewardMatch{Mode: models.ModeAdvanced, WinningSide: models.SideTeam1, RoundScore: "2:0"},
		Sides: map[string]RewardSide{
			models.SideTeam1: {TeamIDs: []uint{1}, TankCount: 1},
			models.SideTeam2: {TeamIDs: []uint{2}, TankCount: 1},
		},
		Lost: []LostTank{{TeamID: 2, Side: models.SideTeam2, Price: 100000, Rank: 1, BattleRating: 5.0, Quantity: 1}},
	}

	out := ComputeRewards(in)

	if out.Money[1] != 20000 {
		t.Errorf("winner reward = %g, want base 20000 with gains zeroed", out.Money[1])
	}
	if want := 15000 - 0.02*100000; math.Abs(out.Money[2]-want) > 1e-9 {
		t.Errorf("loser reward = %g, want %g", out.Money[2], want)
	}
}

func TestComputeRewardsEvenSplitPoolsSides(t *testing.T) {
	in := twoTeamInput(RewardMatch{Mode: models.ModeAdvanced, MoneyRules: models.MoneyRulesEvenSplit, RoundScore: "2:0"})
	in.Lost = []LostTank{{TeamID: 2, Side: models.SideTeam2, Price: 100000, Rank: 1, BattleRating: 5.0, Quantity: 1}}

	out := ComputeRewards(in)

	// even_split: 0% loss, 0.45% gain, then the pool splits 50/50.
	pool := 20000.0 + 15000.0 + 0.0045*100000
	if math.Abs(out.Money[1]-pool/2) > 1e-9 || math.Abs(out.Money[2]-pool/2) > 1e-9 {
		t.Errorf("rewards = (%g, %g), want both %g", out.Money[1], out.Money[2], pool/2)
	}
}

func TestComputeRewardsBoosterMultiplies(t *testing.T) {
	in := twoTeamInput(RewardMatch{Mode: models.ModeTraditional, BestOf: 3, RoundScore: "2:0"})
	in.Boosters = map[uint]BoosterUse{1: {Multiplier: 2.0, MatchLimited: true}}

	out := ComputeRewards(in)

	if out.Money[1] != 30000 {
		t.Errorf("boosted winner reward = %g, want 30000", out.Money[1])
	}
	if !out.BoosterConsumed[1] {
		t.Error("match-limited booster not marked consumed")
	}
	if out.BoosterConsumed[2] {
		t.Error("team without booster marked consumed")
	}
}

func TestComputeRewardsBonusesAndPenalties(t *testing.T) {
	in := twoTeamInput(RewardMatch{Mode: models.ModeTraditional, BestOf: 3, RoundScore: "2:0"})
	in.Lost = []LostTank{{TeamID: 2, Side: models.SideTeam2, Price: 40000, Rank: 3, BattleRating: 5.0, Quantity: 1}}
	in.Results = []ResultLine{
		{TeamID: 1, Bonuses: 1, WasPresent: true},
		{TeamID: 2, Penalties: 1, WasPresent: true},
	}

	out := ComputeRewards(in)

	// trad bo3 rank 3 base 45000 + 10000 bonus
	if out.Money[1] != 55000 {
		t.Errorf("winner reward = %g, want 55000", out.Money[1])
	}
	// base 34000 - 10000*3 penalty
	if out.Money[2] != 4000 {
		t.Errorf("loser reward = %g, want 4000", out.Money[2])
	}
}

func TestComputeRewardsJudgeFee(t *testing.T) {
	tests := []struct {
		name    string
		bestOf  int
		lostQty int
		want    float64
	}{
		// trad bo3 rank 1 base pair 15000+12000=27000: 5% = 1350,
		// floored at 5000
		{"low losses floored", 3, 2, 5000},
		// bo5 floor applies: rank 1 bo5 pair 20000+15000=35000, 7.5% =
		// 2625, floored at 7500
		{"bo5 floor", 5, 12, 7500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := twoTeamInput(RewardMatch{
				Mode:        models.ModeTraditional,
				BestOf:      tt.bestOf,
				RoundScore:  "2:0",
				JudgeTeamID: uintPtr(9),
			})
			in.Lost = []LostTank{{TeamID: 2, Side: models.SideTeam2, Price: 10000, Rank: 1, BattleRating: 3.0, Quantity: tt.lostQty}}

			out := ComputeRewards(in)
			if math.Abs(out.Money[9]-tt.want) > 1e-9 {
				t.Errorf("judge fee = %g, want %g", out.Money[9], tt.want)
			}
			if out.Participants[9] {
				t.Error("judge wrongly marked participant")
			}
		})
	}
}

func TestComputeRewardsSubstituteCut(t *testing.T) {
	in := twoTeamInput(RewardMatch{Mode: models.ModeTraditional, BestOf: 3, RoundScore: "2:0"})
	in.Subs = []SubLine{{TeamID: 7, Side: models.SideTeam1, Activity: 2, HostTeamID: uintPtr(1)}}

	out := ComputeRewards(in)

	// 10% of the host's 15000
	if out.Money[7] != 1500 {
		t.Errorf("substitute reward = %g, want 1500", out.Money[7])
	}
	if out.Money[1] != 13500 {
		t.Errorf("host reward = %g, want 13500", out.Money[1])
	}
	if !out.SubTeams[7] {
		t.Error("substitute team not tracked")
	}
}

func TestComputeRewardsMoneyRuleFloor(t *testing.T) {
	in := twoTeamInput(RewardMatch{Mode: models.ModeAdvanced, MoneyRules: models.MoneyRulesMoneyRule, RoundScore: "2:0"})
	// money_rule: 0% loss, 1% gain. Drive the loser negative with a
	// penalty and check the deficit lands on the winner.
	in.Lost = []LostTank{{TeamID: 2, Side: models.SideTeam2, Price: 100000, Rank: 1, BattleRating: 5.0, Quantity: 1}}
	in.Results = []ResultLine{{TeamID: 2, Penalties: 2, WasPresent: true}}

	out := ComputeRewards(in)

	if out.Money[2] != 0 {
		t.Errorf("floored loser reward = %g, want 0", out.Money[2])
	}
	// winner: base 20000 + 1% gain 1000, minus the loser's deficit
	// (15000 - 20000 = -5000)
	if want := 21000.0 - 5000.0; math.Abs(out.Money[1]-want) > 1e-9 {
		t.Errorf("winner reward = %g, want %g", out.Money[1], want)
	}
}

func TestComputeRewardsKitBonusEligibility(t *testing.T) {
	tests := []struct {
		name     string
		match    RewardMatch
		tanks    int
		eligible bool
	}{
		{"traditional with enough tanks", RewardMatch{Mode: models.ModeTraditional, BestOf: 3, RoundScore: "2:0"}, 4, true},
		{"domination gamemode", RewardMatch{Mode: models.ModeAdvanced, Gamemode: models.GamemodeDomination, RoundScore: "2:0"}, 3, true},
		{"too few tanks", RewardMatch{Mode: models.ModeTraditional, BestOf: 3, RoundScore: "2:0"}, 2, false},
		{"wrong mode", RewardMatch{Mode: models.ModeAdvanced, RoundScore: "2:0"}, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.match.WinningSide = models.SideTeam1
			in := RewardInput{
				Match: tt.match,
				Sides: map[string]RewardSide{
					models.SideTeam1: {TeamIDs: []uint{1}, TankCount: tt.tanks},
					models.SideTeam2: {TeamIDs: []uint{2}, TankCount: tt.tanks},
				},
			}
			out := ComputeRewards(in)
			if out.KitBonusEligible != tt.eligible {
				t.Errorf("KitBonusEligible = %v, want %v", out.KitBonusEligible, tt.eligible)
			}
		})
	}
}
