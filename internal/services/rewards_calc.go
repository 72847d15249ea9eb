package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/evsite/tankleague/internal/models"
)

// Flat no-show settlement amount.
const noShowAmount int64 = 20000

// Per-unit bonus/penalty amounts applied from team results.
const (
	bonusUnit   = 10000.0
	penaltyUnit = 10000.0
)

// Substitute cut per activity level.
const subCutPerActivity = 0.05

// Judge fee rates and floors.
const (
	judgeRateHigh      = 0.075
	judgeRateLow       = 0.05
	judgeHighLossCount = 12
	judgeFloorBo5      = 7500.0
	judgeFloorDefault  = 5000.0
)

type rewardRow struct {
	Winner int64
	Loser  int64
}

// Base reward tables indexed by rounded average rank 1..5.
var (
	advancedRewards = [5]rewardRow{
		{20000, 15000}, {40000, 30000}, {60000, 45000}, {80000, 60000}, {100000, 75000},
	}
	flagRewards = [5]rewardRow{
		{35000, 15000}, {60000, 25000}, {85000, 40000}, {11000, 50000}, {150000, 70000},
	}
	tradBo5Rewards = [5]rewardRow{
		{20000, 15000}, {40000, 30000}, {55000, 40000}, {75000, 55000}, {95000, 70000},
	}
	tradBo3Rewards = [5]rewardRow{
		{15000, 12000}, {30000, 23000}, {45000, 34000}, {60000, 45000}, {75000, 56000},
	}
)

// roundPoints maps a round-score string to score points. Winners use the
// literal score, losers the reversed one.
var roundPoints = map[string]float64{
	"1:0": 2, "0:1": 0, "1:1": 1,
	"2:0": 3, "2:1": 2, "1:2": 1, "0:2": 0,
	"3:0": 3, "3:1": 2.5, "3:2": 2, "2:3": 1, "1:3": 0.5, "0:3": 0,
}

// Per-lost-tank loss/gain rates keyed by the match's money rules.
type lossGainRates struct {
	Loss float64
	Gain float64
}

var moneyRuleRates = map[string]lossGainRates{
	models.MoneyRulesEvenSplit: {Loss: 0, Gain: 0.0045},
	models.MoneyRulesMoneyRule: {Loss: 0, Gain: 0.01},
}

var defaultRates = lossGainRates{Loss: 0.02, Gain: 0.032}

// RewardMatch carries the match attributes the pipeline branches on.
type RewardMatch struct {
	Mode        string
	Gamemode    string
	BestOf      int
	MoneyRules  string
	WinningSide string
	RoundScore  string
	JudgeTeamID *uint
}

// RewardSide is one side of the match: the teams on it and the number of
// tanks it committed.
type RewardSide struct {
	TeamIDs   []uint
	TankCount int
}

// LostTank records one lost-tank line from the match result.
type LostTank struct {
	TeamID       uint
	Side         string
	Price        int64
	Rank         int
	BattleRating float64
	Quantity     int
}

// ResultLine is a per-team adjustment from the result sheet.
type ResultLine struct {
	TeamID     uint
	Bonuses    float64
	Penalties  float64
	WasPresent bool
}

// SubLine is one substitute appearance.
type SubLine struct {
	TeamID     uint
	Side       string
	Activity   int
	HostTeamID *uint
}

// BoosterUse is a team's active booster as seen at calculation time.
type BoosterUse struct {
	Multiplier   float64
	MatchLimited bool
}

// RewardInput is everything the reward pipeline needs, detached from the
// database so the computation stays pure.
type RewardInput struct {
	Match    RewardMatch
	Sides    map[string]RewardSide
	Lost     []LostTank
	Results  []ResultLine
	Subs     []SubLine
	Boosters map[uint]BoosterUse
}

// RewardOutcome is the computed per-team money and score deltas plus the
// role bookkeeping the persistence step needs.
type RewardOutcome struct {
	NoShow           bool
	Money            map[uint]float64
	Score            map[uint]float64
	Participants     map[uint]bool
	SubTeams         map[uint]bool
	JudgeTeamID      *uint
	BoosterConsumed  map[uint]bool
	KitBonusEligible bool
	AverageRank      int
}

func (o *RewardOutcome) addMoney(teamID uint, amount float64) {
	o.Money[teamID] += amount
}

// averageRank is the battle-rating-weighted mean rank of all lost tanks,
// rounded; zero when nothing was lost.
func averageRank(lost []LostTank) int {
	var rankBR, totalBR float64
	for _, l := range lost {
		w := l.BattleRating * float64(l.Quantity)
		rankBR += float64(l.Rank) * w
		totalBR += w
	}
	if totalBR <= 0 {
		return 0
	}
	return int(math.Round(rankBR / totalBR))
}

// baseReward selects the (winner, loser) base pair for the match type,
// indexed by the rounded average rank clamped to [1,5].
func baseReward(m RewardMatch, avgRank int) (int64, int64) {
	idx := avgRank - 1
	if idx < 0 {
		idx = 0
	}
	if idx > 4 {
		idx = 4
	}

	var table [5]rewardRow
	switch {
	case m.Mode == models.ModeTraditional && m.BestOf == 5:
		table = tradBo5Rewards
	case m.Mode == models.ModeTraditional:
		table = tradBo3Rewards
	case m.Gamemode == models.GamemodeFlagTank:
		table = flagRewards
	default:
		table = advancedRewards
	}
	return table[idx].Winner, table[idx].Loser
}

// scorePoints maps a round score through the point table and scales it by
// one plus the winner's round fraction.
func scorePoints(roundScore string, forWinner bool) float64 {
	w, l, ok := parseRoundScore(roundScore)
	if !ok {
		return 0
	}
	key := roundScore
	if !forWinner {
		key = strconv.Itoa(l) + ":" + strconv.Itoa(w)
	}
	points, ok := roundPoints[key]
	if !ok {
		return 0
	}
	total := w + l
	if total == 0 {
		return points
	}
	return points * (1 + float64(w)/float64(total))
}

func parseRoundScore(s string) (winnerRounds, loserRounds int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	l, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || w < 0 || l < 0 {
		return 0, 0, false
	}
	return w, l, true
}

// ComputeRewards runs the full reward pipeline on detached inputs.
func ComputeRewards(in RewardInput) RewardOutcome {
	out := RewardOutcome{
		Money:           map[uint]float64{},
		Score:           map[uint]float64{},
		Participants:    map[uint]bool{},
		SubTeams:        map[uint]bool{},
		BoosterConsumed: map[uint]bool{},
		JudgeTeamID:     in.Match.JudgeTeamID,
	}

	winSide := in.Match.WinningSide
	loseSide := models.OtherSide(winSide)
	sides := map[string][]uint{
		winSide:  append([]uint(nil), in.Sides[winSide].TeamIDs...),
		loseSide: append([]uint(nil), in.Sides[loseSide].TeamIDs...),
	}

	present := map[uint]bool{}
	for _, side := range []string{winSide, loseSide} {
		for _, id := range sides[side] {
			present[id] = true
		}
	}
	for _, r := range in.Results {
		if !r.WasPresent {
			present[r.TeamID] = false
		}
	}

	// No-show handling: absent teams on a multi-team side are dropped; a
	// sole absent team forfeits the match at a flat amount and the
	// pipeline stops.
	for _, side := range []string{winSide, loseSide} {
		var kept []uint
		var absent []uint
		for _, id := range sides[side] {
			if present[id] {
				kept = append(kept, id)
			} else {
				absent = append(absent, id)
			}
		}
		if len(absent) > 0 && len(kept) == 0 && len(sides[side]) == 1 {
			noShow := absent[0]
			out.NoShow = true
			out.Money[noShow] = -float64(noShowAmount)
			out.Participants[noShow] = true
			for _, id := range sides[models.OtherSide(side)] {
				out.Money[id] = float64(noShowAmount)
				out.Participants[id] = true
			}
			return out
		}
		sides[side] = kept
	}

	for _, side := range []string{winSide, loseSide} {
		for _, id := range sides[side] {
			out.Participants[id] = true
		}
	}

	avgRank := averageRank(in.Lost)
	out.AverageRank = avgRank
	winnerBase, loserBase := baseReward(in.Match, avgRank)
	winnerTotal := float64(winnerBase)
	loserTotal := float64(loserBase)

	flat := in.Match.Mode == models.ModeTraditional || in.Match.Gamemode == models.GamemodeFlagTank
	if !flat {
		rates, ok := moneyRuleRates[in.Match.MoneyRules]
		if !ok {
			rates = defaultRates
		}

		singleTankDuel := in.Sides[winSide].TankCount == 1 && in.Sides[loseSide].TankCount == 1
		gains := map[string]float64{}
		losses := map[string]float64{}
		for _, l := range in.Lost {
			value := float64(l.Price) * float64(l.Quantity)
			losses[l.Side] += value * rates.Loss
			if !singleTankDuel {
				gains[models.OtherSide(l.Side)] += value * rates.Gain
			}
		}
		winnerTotal += gains[winSide] - losses[winSide]
		loserTotal += gains[loseSide] - losses[loseSide]

		if in.Match.MoneyRules == models.MoneyRulesEvenSplit {
			pool := winnerTotal + loserTotal
			winnerTotal = pool / 2
			loserTotal = pool / 2
		}
	}

	// Per-side totals become per-team rewards: flat modes pay every team
	// the side amount, others split the side total evenly.
	for _, id := range sides[winSide] {
		amount := winnerTotal
		if !flat && len(sides[winSide]) > 0 {
			amount = winnerTotal / float64(len(sides[winSide]))
		}
		out.addMoney(id, amount)
	}
	for _, id := range sides[loseSide] {
		amount := loserTotal
		if !flat && len(sides[loseSide]) > 0 {
			amount = loserTotal / float64(len(sides[loseSide]))
		}
		out.addMoney(id, amount)
	}

	// Boosters multiply each participating team's reward.
	for id, b := range in.Boosters {
		if !out.Participants[id] || b.Multiplier <= 0 {
			continue
		}
		out.Money[id] *= b.Multiplier
		if b.MatchLimited {
			out.BoosterConsumed[id] = true
		}
	}

	for _, r := range in.Results {
		if !out.Participants[r.TeamID] {
			continue
		}
		if r.Bonuses != 0 {
			out.addMoney(r.TeamID, bonusUnit*r.Bonuses)
		}
		if r.Penalties != 0 {
			out.addMoney(r.TeamID, -penaltyUnit*float64(avgRank)*r.Penalties)
		}
	}

	if in.Match.MoneyRules == models.MoneyRulesMoneyRule {
		applyMoneyRuleFloor(out.Money, sides[winSide], sides[loseSide])
	}

	// Substitute cuts divert a share of the host team's positive reward.
	for _, sub := range in.Subs {
		host := hostTeamFor(sub, sides)
		if host == 0 {
			continue
		}
		base := out.Money[host]
		if base <= 0 {
			continue
		}
		cut := base * subCutPerActivity * float64(sub.Activity)
		out.Money[host] -= cut
		out.addMoney(sub.TeamID, cut)
		out.SubTeams[sub.TeamID] = true
	}

	if in.Match.JudgeTeamID != nil {
		totalLost := 0
		for _, l := range in.Lost {
			totalLost += l.Quantity
		}
		rate := judgeRateLow
		if totalLost >= judgeHighLossCount {
			rate = judgeRateHigh
		}
		fee := rate * float64(winnerBase+loserBase)
		floor := judgeFloorDefault
		if in.Match.BestOf == 5 {
			floor = judgeFloorBo5
		}
		if fee < floor {
			fee = floor
		}
		out.addMoney(*in.Match.JudgeTeamID, fee)
	}

	winnerPoints := scorePoints(in.Match.RoundScore, true)
	loserPoints := scorePoints(in.Match.RoundScore, false)
	for _, id := range sides[winSide] {
		out.Score[id] += winnerPoints
	}
	for _, id := range sides[loseSide] {
		out.Score[id] += loserPoints
	}

	minTanks := in.Sides[winSide].TankCount
	if n := in.Sides[loseSide].TankCount; n < minTanks {
		minTanks = n
	}
	out.KitBonusEligible = (in.Match.Mode == models.ModeTraditional ||
		in.Match.Gamemode == models.GamemodeDomination) && minTanks >= 3

	return out
}

// hostTeamFor resolves the team a substitute played for: the explicit
// host when recorded, otherwise the only team on the substitute's side.
func hostTeamFor(sub SubLine, sides map[string][]uint) uint {
	if sub.HostTeamID != nil {
		return *sub.HostTeamID
	}
	if ids := sides[sub.Side]; len(ids) == 1 {
		return ids[0]
	}
	return 0
}

// applyMoneyRuleFloor zeroes negative team rewards and redistributes each
// deficit as an equal deduction across the winning side, cascading while
// the deduction drives further teams negative.
func applyMoneyRuleFloor(money map[uint]float64, winners, losers []uint) {
	all := append(append([]uint(nil), winners...), losers...)
	for iter := 0; iter < len(all)+1; iter++ {
		var deficit float64
		for _, id := range all {
			if money[id] < 0 {
				deficit += -money[id]
				money[id] = 0
			}
		}
		if deficit == 0 || len(winners) == 0 {
			return
		}
		share := deficit / float64(len(winners))
		for _, id := range winners {
			money[id] -= share
		}
	}
}
