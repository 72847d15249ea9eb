package services

import (
	"fmt"
	"math"
	"time"

	"github.com/evsite/tankleague/internal/audit"
	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/internal/notify"
	"github.com/evsite/tankleague/internal/repositories"
	"github.com/evsite/tankleague/pkg/errors"
	"github.com/evsite/tankleague/pkg/logger"
	"gorm.io/gorm"
)

// A team keeps collecting the T1 kit bonus until it has played this many
// qualifying matches in the current week.
const kitBonusWeeklyMatchLimit = 2

// RewardService wraps the pure reward pipeline with result loading,
// persistence and reversal. A calculation or reversal is one database
// transaction: every team update and log row commits together or not at
// all.
type RewardService struct {
	db       *gorm.DB
	teams    *repositories.TeamRepository
	matches  *repositories.MatchRepository
	boosters *repositories.BoosterRepository
	logs     *repositories.LogRepository
	ledger   *LedgerService
	sink     *notify.DiscordSink
}

// NewRewardService builds the reward calculator. sink may be nil to
// disable calc announcements.
func NewRewardService(
	db *gorm.DB,
	teams *repositories.TeamRepository,
	matches *repositories.MatchRepository,
	boosters *repositories.BoosterRepository,
	logs *repositories.LogRepository,
	ledger *LedgerService,
	sink *notify.DiscordSink,
) *RewardService {
	return &RewardService{
		db:       db,
		teams:    teams,
		matches:  matches,
		boosters: boosters,
		logs:     logs,
		ledger:   ledger,
		sink:     sink,
	}
}

// CalculateRewards runs the reward pipeline for a finalized match and
// persists the per-team deltas with role-tagged audit entries. The calc
// announcement goes out only after the transaction commits.
func (s *RewardService) CalculateRewards(matchID uint, user string) error {
	now := time.Now().UTC()
	var (
		outcome RewardOutcome
		input   RewardInput
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result, err := s.matches.GetResultByMatch(tx, matchID)
		if err != nil {
			return err
		}
		if result.IsCalced {
			return errors.New(errors.ErrCodeStateConflict, "rewards for this match have already been calculated")
		}

		input, err = s.buildInput(tx, result, now)
		if err != nil {
			return err
		}
		outcome = ComputeRewards(input)

		if err := s.persistOutcome(tx, result, outcome, user, now); err != nil {
			return err
		}

		result.IsCalced = true
		return s.matches.SaveResult(tx, result)
	})
	if err != nil {
		return err
	}

	s.announceCalc(matchID, input, outcome)
	return nil
}

// announceCalc posts the reward listing to the calc webhook, editing the
// previous message when one exists. Best-effort only.
func (s *RewardService) announceCalc(matchID uint, input RewardInput, outcome RewardOutcome) {
	if s.sink == nil {
		return
	}
	match, err := s.matches.GetMatch(matchID)
	if err != nil {
		logger.Warn("calc announcement skipped", "match_id", matchID, "error", err)
		return
	}

	names := map[uint]string{}
	teamName := func(id uint) string {
		if name, ok := names[id]; ok {
			return name
		}
		team, err := s.teams.GetByID(id)
		if err != nil {
			names[id] = fmt.Sprintf("team %d", id)
		} else {
			names[id] = team.Name
		}
		return names[id]
	}

	winSide := input.Match.WinningSide
	summary := notify.RewardSummary{
		Winners:     map[string]int64{},
		Losers:      map[string]int64{},
		Kits:        map[string]int{},
		Substitutes: map[string]int64{},
	}
	winners := map[uint]bool{}
	for _, id := range input.Sides[winSide].TeamIDs {
		winners[id] = true
	}
	for id, amount := range outcome.Money {
		switch {
		case outcome.JudgeTeamID != nil && *outcome.JudgeTeamID == id:
			summary.JudgeName = teamName(id)
			summary.JudgeReward = int64(math.Round(amount))
		case outcome.SubTeams[id]:
			summary.Substitutes[teamName(id)] = int64(math.Round(amount))
		case winners[id]:
			summary.Winners[teamName(id)] = int64(math.Round(amount))
		default:
			summary.Losers[teamName(id)] = int64(math.Round(amount))
		}
	}

	var team1Names, team2Names []string
	for _, id := range input.Sides[models.SideTeam1].TeamIDs {
		team1Names = append(team1Names, teamName(id))
	}
	for _, id := range input.Sides[models.SideTeam2].TeamIDs {
		team2Names = append(team2Names, teamName(id))
	}

	content := notify.FormatCalcCard(match, team1Names, team2Names, summary)
	if match.WebhookIDCalc != "" {
		s.sink.Edit(notify.KindCalc, match.WebhookIDCalc, content)
		return
	}
	if id := s.sink.Send(notify.KindCalc, content); id != "" {
		match.WebhookIDCalc = id
		if err := s.matches.SaveMatch(match); err != nil {
			logger.Warn("failed to store calc webhook id", "match_id", matchID, "error", err)
		}
	}
}

// buildInput loads the match context into the pipeline's detached input.
func (s *RewardService) buildInput(tx *gorm.DB, result *models.MatchResult, now time.Time) (RewardInput, error) {
	teamMatches, err := s.matches.ListTeamMatches(tx, result.MatchID)
	if err != nil {
		return RewardInput{}, err
	}

	sides := map[string]RewardSide{}
	sideOf := map[uint]string{}
	for _, tm := range teamMatches {
		side := sides[tm.Side]
		side.TeamIDs = append(side.TeamIDs, tm.TeamID)
		side.TankCount += len(tm.Tanks)
		sides[tm.Side] = side
		sideOf[tm.TeamID] = tm.Side
	}

	var lost []LostTank
	for _, tl := range result.TanksLost {
		lost = append(lost, LostTank{
			TeamID:       tl.TeamID,
			Side:         sideOf[tl.TeamID],
			Price:        tl.Tank.Price,
			Rank:         tl.Tank.Rank,
			BattleRating: tl.Tank.BattleRating,
			Quantity:     tl.Quantity,
		})
	}

	var results []ResultLine
	for _, tr := range result.TeamResults {
		results = append(results, ResultLine{
			TeamID:     tr.TeamID,
			Bonuses:    tr.Bonuses,
			Penalties:  tr.Penalties,
			WasPresent: tr.WasPresent,
		})
	}

	var subs []SubLine
	for _, sub := range result.Substitutes {
		subs = append(subs, SubLine{
			TeamID:     sub.TeamID,
			Side:       sub.Side,
			Activity:   sub.Activity,
			HostTeamID: sub.TeamPlayedForID,
		})
	}

	boosters := map[uint]BoosterUse{}
	for teamID := range sideOf {
		b, err := s.boosters.GetActiveForTeam(tx, teamID, now)
		if err != nil {
			return RewardInput{}, err
		}
		if b == nil {
			continue
		}
		boosters[teamID] = BoosterUse{
			Multiplier:   b.Multiplier,
			MatchLimited: b.MatchesLeft != nil,
		}
	}

	return RewardInput{
		Match: RewardMatch{
			Mode:        result.Match.Mode,
			Gamemode:    result.Match.Gamemode,
			BestOf:      result.Match.BestOfNumber,
			MoneyRules:  result.Match.MoneyRules,
			WinningSide: result.WinningSide,
			RoundScore:  result.RoundScore,
			JudgeTeamID: result.JudgeID,
		},
		Sides:    sides,
		Lost:     lost,
		Results:  results,
		Subs:     subs,
		Boosters: boosters,
	}, nil
}

// persistOutcome applies the computed deltas team by team, each under a
// row lock, writing exactly one role-tagged log per touched team.
func (s *RewardService) persistOutcome(tx *gorm.DB, result *models.MatchResult, outcome RewardOutcome, user string, now time.Time) error {
	matchID := result.MatchID

	touched := map[uint]bool{}
	for id := range outcome.Money {
		touched[id] = true
	}
	for id := range outcome.Score {
		touched[id] = true
	}
	if outcome.JudgeTeamID != nil {
		touched[*outcome.JudgeTeamID] = true
	}

	for teamID := range touched {
		team, err := s.teams.GetForUpdate(tx, teamID)
		if err != nil {
			return err
		}
		before, err := s.ledger.Snapshot(tx, team)
		if err != nil {
			return err
		}

		money := int64(math.Round(outcome.Money[teamID]))
		team.Balance += money
		if money > 0 {
			team.TotalMoneyEarned += money
		}
		team.Score += outcome.Score[teamID]

		if !outcome.NoShow && outcome.KitBonusEligible && outcome.Participants[teamID] {
			played, err := s.matches.CountKitBonusMatches(tx, teamID, weekStart(now))
			if err != nil {
				return err
			}
			if played <= kitBonusWeeklyMatchLimit {
				team.AddKits(models.KitTierT1, 1)
			}
		}

		if outcome.BoosterConsumed[teamID] {
			if err := s.consumeBooster(tx, teamID, now); err != nil {
				return err
			}
		}

		if err := s.teams.Save(tx, team); err != nil {
			return err
		}

		method := rewardMethodFor(teamID, outcome)
		if err := s.ledger.WriteChange(tx, team, before, user, method, &matchID); err != nil {
			return err
		}
	}
	return nil
}

// rewardMethodFor tags the log by the team's role in the match.
func rewardMethodFor(teamID uint, outcome RewardOutcome) string {
	if outcome.NoShow {
		return models.MethodNoShowRewards
	}
	if outcome.Participants[teamID] {
		return models.MethodCalcRewards
	}
	isJudge := outcome.JudgeTeamID != nil && *outcome.JudgeTeamID == teamID
	isSub := outcome.SubTeams[teamID]
	switch {
	case isJudge && isSub:
		return models.MethodJudgeSubRewards
	case isJudge:
		return models.MethodJudgeRewards
	default:
		return models.MethodSubRewards
	}
}

// consumeBooster decrements a match-limited booster and deletes it once
// exhausted or past its expiry.
func (s *RewardService) consumeBooster(tx *gorm.DB, teamID uint, now time.Time) error {
	b, err := s.boosters.GetForTeam(tx, teamID)
	if err != nil {
		return err
	}
	if b == nil || b.MatchesLeft == nil {
		return nil
	}
	left := *b.MatchesLeft - 1
	b.MatchesLeft = &left
	if left <= 0 || !b.IsActive(now) {
		return s.boosters.Delete(tx, b.ID)
	}
	return s.boosters.Save(tx, b)
}

// revertDelta is the per-team undo derived from one reward log's
// before/after snapshots.
type revertDelta struct {
	Balance          int64
	Score            float64
	TotalMoneyEarned int64
	KitsT1           int
}

// revertDeltaFor computes what a reversal must subtract from the team's
// current state to undo the logged change.
func revertDeltaFor(prev, next audit.TeamSnapshot) revertDelta {
	return revertDelta{
		Balance:          next.Balance - prev.Balance,
		Score:            next.Score - prev.Score,
		TotalMoneyEarned: next.TotalMoneyEarned - prev.TotalMoneyEarned,
		KitsT1:           next.Kits.T1 - prev.Kits.T1,
	}
}

// apply subtracts the delta from the team. The kit quantity floors at
// zero when the team already spent the bonus kit; apply reports whether
// that floor kicked in.
func (d revertDelta) apply(team *models.Team) bool {
	team.Balance -= d.Balance
	team.Score -= d.Score
	team.TotalMoneyEarned -= d.TotalMoneyEarned
	if d.KitsT1 == 0 {
		return false
	}
	if team.AddKits(models.KitTierT1, -d.KitsT1) {
		return false
	}
	team.AddKits(models.KitTierT1, -team.KitQty(models.KitTierT1))
	return true
}

// boosterRestore is the booster state to reinstate when reversal finds a
// consumed match-limited booster in the before snapshot.
type boosterRestore struct {
	MatchesLeft int
	Multiplier  float64
}

// boosterRestoreFrom reads the pre-calculation booster out of a snapshot.
// Nil means the team had no match-limited booster to restore. Snapshots
// written before multipliers were recorded restore at 1.0.
func boosterRestoreFrom(prev audit.TeamSnapshot) *boosterRestore {
	if prev.BoosterMatchesLeft == nil {
		return nil
	}
	restore := &boosterRestore{MatchesLeft: *prev.BoosterMatchesLeft, Multiplier: 1.0}
	if prev.BoosterMultiplier != nil {
		restore.Multiplier = *prev.BoosterMultiplier
	}
	return restore
}

// RevertRewards undoes a calculated match by subtracting each logged
// delta from the team's current state, restoring booster match counts,
// and neutralizing the log rows. Reversal is one-shot.
func (s *RewardService) RevertRewards(matchID uint, user string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result, err := s.matches.GetResultByMatch(tx, matchID)
		if err != nil {
			return err
		}
		if !result.IsCalced {
			return errors.New(errors.ErrCodeStateConflict, "rewards for this match have not been calculated")
		}

		entries, err := s.logs.ListByMatch(tx, matchID)
		if err != nil {
			return err
		}

		for i := range entries {
			entry := &entries[i]
			if !models.RewardMethods[entry.MethodName] {
				continue
			}

			prev, err := audit.UnmarshalSnapshot(entry.PreviousState)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "corrupt previous snapshot")
			}
			next, err := audit.UnmarshalSnapshot(entry.NewState)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "corrupt new snapshot")
			}

			team, err := s.teams.GetForUpdate(tx, entry.TeamID)
			if err != nil {
				return err
			}

			if revertDeltaFor(prev, next).apply(team) {
				logger.Warn("kit quantity floored at zero during reward reversal",
					"team_id", team.ID, "match_id", matchID)
			}

			if err := s.restoreBooster(tx, team.ID, prev); err != nil {
				return err
			}
			if err := s.teams.Save(tx, team); err != nil {
				return err
			}

			entry.MethodName = models.MethodReverted
			entry.Description = fmt.Sprintf("reverted rewards for match %d", matchID)
			entry.PreviousState = "{}"
			entry.NewState = "{}"
			if err := s.logs.Update(tx, entry); err != nil {
				return err
			}
		}

		result.IsCalced = false
		return s.matches.SaveResult(tx, result)
	})
}

// restoreBooster puts a match-limited booster back to its pre-calculation
// count, recreating the row when consumption deleted it.
func (s *RewardService) restoreBooster(tx *gorm.DB, teamID uint, prev audit.TeamSnapshot) error {
	restore := boosterRestoreFrom(prev)
	if restore == nil {
		return nil
	}
	b, err := s.boosters.GetForTeam(tx, teamID)
	if err != nil {
		return err
	}
	left := restore.MatchesLeft
	if b == nil {
		return s.boosters.Create(tx, &models.Booster{
			TeamID:      teamID,
			Multiplier:  restore.Multiplier,
			MatchesLeft: &left,
		})
	}
	b.MatchesLeft = &left
	return s.boosters.Save(tx, b)
}
