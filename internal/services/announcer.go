package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/internal/notify"
	"github.com/evsite/tankleague/internal/repositories"
	"gorm.io/gorm"
)

// AnnouncerService posts the schedule and result cards for matches,
// editing a card in place once its webhook message ID is stored.
type AnnouncerService struct {
	db      *gorm.DB
	teams   *repositories.TeamRepository
	matches *repositories.MatchRepository
	sink    *notify.DiscordSink
}

func NewAnnouncerService(
	db *gorm.DB,
	teams *repositories.TeamRepository,
	matches *repositories.MatchRepository,
	sink *notify.DiscordSink,
) *AnnouncerService {
	return &AnnouncerService{db: db, teams: teams, matches: matches, sink: sink}
}

// AnnounceSchedule posts or refreshes the lineup card for an upcoming
// match.
func (s *AnnouncerService) AnnounceSchedule(matchID uint) error {
	if s.sink == nil {
		return nil
	}
	match, err := s.matches.GetMatch(matchID)
	if err != nil {
		return err
	}
	tms, err := s.matches.ListTeamMatches(s.db, matchID)
	if err != nil {
		return err
	}

	content := notify.FormatMatchCard(buildMatchCard(match, tms))
	if match.WebhookIDSchedule != "" {
		s.sink.Edit(notify.KindSchedule, match.WebhookIDSchedule, content)
		return nil
	}
	if id := s.sink.Send(notify.KindSchedule, content); id != "" {
		match.WebhookIDSchedule = id
		return s.matches.SaveMatch(match)
	}
	return nil
}

// AnnounceResult posts or refreshes the outcome card for a played match.
func (s *AnnouncerService) AnnounceResult(matchID uint) error {
	if s.sink == nil {
		return nil
	}
	result, err := s.matches.GetResultByMatch(s.db, matchID)
	if err != nil {
		return err
	}
	tms, err := s.matches.ListTeamMatches(s.db, matchID)
	if err != nil {
		return err
	}

	judgeName := ""
	if result.JudgeID != nil {
		if judge, err := s.teams.GetByID(*result.JudgeID); err == nil {
			judgeName = judge.Name
		}
	}

	match := &result.Match
	content := notify.FormatResultCard(buildResultCard(match, result, tms, judgeName))
	if match.WebhookIDResult != "" {
		s.sink.Edit(notify.KindResult, match.WebhookIDResult, content)
		return nil
	}
	if id := s.sink.Send(notify.KindResult, content); id != "" {
		match.WebhookIDResult = id
		return s.matches.SaveMatch(match)
	}
	return nil
}

// buildMatchCard arranges the committed lineups by side, highest battle
// rating first within each team.
func buildMatchCard(match *models.Match, tms []models.TeamMatch) notify.MatchCard {
	card := notify.MatchCard{Match: match, TeamsBySide: map[string][]notify.TeamLineup{}}
	for _, tm := range tms {
		tanks := make([]models.TeamTank, len(tm.Tanks))
		copy(tanks, tm.Tanks)
		sort.SliceStable(tanks, func(i, j int) bool {
			return tanks[i].Tank.BattleRating > tanks[j].Tank.BattleRating
		})
		names := make([]string, 0, len(tanks))
		for _, tt := range tanks {
			names = append(names, fmt.Sprintf("%s (%.1f)", tt.Tank.Name, tt.Tank.BattleRating))
		}
		card.TeamsBySide[tm.Side] = append(card.TeamsBySide[tm.Side], notify.TeamLineup{
			TeamName: tm.Team.Name,
			Tanks:    names,
		})
	}
	return card
}

// buildResultCard summarizes the winners and each team's losses.
func buildResultCard(match *models.Match, result *models.MatchResult, tms []models.TeamMatch, judgeName string) notify.ResultCard {
	card := notify.ResultCard{
		Match:        match,
		Result:       result,
		JudgeName:    judgeName,
		SideSections: map[string]string{},
	}

	lossesByTeam := map[uint][]string{}
	for _, tl := range result.TanksLost {
		lossesByTeam[tl.TeamID] = append(lossesByTeam[tl.TeamID],
			fmt.Sprintf("%d x %s", tl.Quantity, tl.Tank.Name))
	}

	sections := map[string]*strings.Builder{}
	for _, tm := range tms {
		if tm.Side == result.WinningSide {
			card.WinnerNames = append(card.WinnerNames, tm.Team.Name)
		}
		b := sections[tm.Side]
		if b == nil {
			b = &strings.Builder{}
			sections[tm.Side] = b
		}
		fmt.Fprintf(b, "**%s** lost:\n", tm.Team.Name)
		if losses := lossesByTeam[tm.TeamID]; len(losses) > 0 {
			b.WriteString(strings.Join(losses, "\n"))
			b.WriteString("\n\n")
		} else {
			b.WriteString("Nothing\n\n")
		}
	}
	for side, b := range sections {
		card.SideSections[side] = b.String()
	}
	return card
}
