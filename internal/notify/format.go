package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evsite/tankleague/internal/models"
)

// MatchCard is the data behind a schedule announcement.
type MatchCard struct {
	Match       *models.Match
	TeamsBySide map[string][]TeamLineup
}

// TeamLineup is one team's committed tanks, highest battle rating first.
type TeamLineup struct {
	TeamName string
	Tanks    []string
}

// FormatMatchCard renders the schedule announcement for a match.
func FormatMatchCard(card MatchCard) string {
	m := card.Match
	var b strings.Builder

	fmt.Fprintf(&b, "%s vs %s\n", sideNames(card.TeamsBySide[models.SideTeam1]), sideNames(card.TeamsBySide[models.SideTeam2]))
	fmt.Fprintf(&b, "%s - <t:%d> ; <t:%d:R>\n", m.Datetime.UTC().Format("Monday, 02.01.2006 - 15:04 UTC"), m.Datetime.Unix(), m.Datetime.Unix())
	fmt.Fprintf(&b, "%s, %s - Bo%d %s\n", m.Mode, m.Gamemode, m.BestOfNumber, m.MapSelection)
	fmt.Fprintf(&b, "%s\n%s\n\n", m.MoneyRules, specialRules(m))

	b.WriteString(sideLineups(card.TeamsBySide[models.SideTeam1]))
	b.WriteString("--- vs. ---\n\n")
	b.WriteString(sideLineups(card.TeamsBySide[models.SideTeam2]))
	return b.String()
}

// ResultCard is the data behind a result announcement.
type ResultCard struct {
	Match        *models.Match
	Result       *models.MatchResult
	JudgeName    string
	WinnerNames  []string
	SideSections map[string]string
}

// FormatResultCard renders the result announcement.
func FormatResultCard(card ResultCard) string {
	m := card.Match
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", m.Datetime.UTC().Format("Monday, 02.01.2006 - 15:04 UTC"))
	fmt.Fprintf(&b, "%s, %s, Bo%d, %s\n", m.Gamemode, m.Mode, m.BestOfNumber, m.MapSelection)
	fmt.Fprintf(&b, "%s\n%s\n\n", m.MoneyRules, specialRules(m))

	judge := card.JudgeName
	if judge == "" {
		judge = "None"
	}
	fmt.Fprintf(&b, "Judge: %s\n\n", judge)

	score := card.Result.RoundScore
	if score == "" {
		score = "N/A"
	}
	fmt.Fprintf(&b, "%s win %s\n\n", strings.Join(card.WinnerNames, ", "), score)

	b.WriteString(card.SideSections[models.SideTeam1])
	b.WriteString("--- vs. ---\n\n")
	b.WriteString(card.SideSections[models.SideTeam2])
	return b.String()
}

// RewardSummary collects the per-team outputs of a calculation for the
// calc announcement.
type RewardSummary struct {
	Winners     map[string]int64
	Losers      map[string]int64
	Kits        map[string]int
	Substitutes map[string]int64
	JudgeName   string
	JudgeReward int64
}

// FormatCalcCard renders the reward-calculation announcement.
func FormatCalcCard(m *models.Match, team1Names, team2Names []string, summary RewardSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s** Vs. **%s**\n", strings.Join(team1Names, ", "), strings.Join(team2Names, ", "))
	fmt.Fprintf(&b, "%s\n", m.Datetime.UTC().Format("Monday, 02.01.2006 - 15:04 UTC"))
	fmt.Fprintf(&b, "%s, %s, Bo%d, %s\n", m.Gamemode, m.Mode, m.BestOfNumber, m.MapSelection)
	fmt.Fprintf(&b, "%s\n%s\n\n", m.MoneyRules, specialRules(m))

	writeRewardBlock(&b, "Winning Teams", summary.Winners)
	writeRewardBlock(&b, "Losing Teams", summary.Losers)

	if len(summary.Kits) > 0 {
		b.WriteString("\n**Kits Distributed:**\n")
		for _, name := range sortedKeys(summary.Kits) {
			fmt.Fprintf(&b, " - %s: %d T1 kits\n", name, summary.Kits[name])
		}
	}
	writeRewardBlock(&b, "Substitutes", summary.Substitutes)

	if summary.JudgeName != "" {
		fmt.Fprintf(&b, "\n**Judge:**\n - %s: %d\n", summary.JudgeName, summary.JudgeReward)
	}
	return b.String()
}

func writeRewardBlock(b *strings.Builder, title string, rewards map[string]int64) {
	if len(rewards) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s:**\n", title)
	for _, name := range sortedKeys(rewards) {
		fmt.Fprintf(b, " - %s: %d\n", name, rewards[name])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sideNames(lineups []TeamLineup) string {
	names := make([]string, 0, len(lineups))
	for _, l := range lineups {
		names = append(names, "**"+l.TeamName+"**")
	}
	return strings.Join(names, ", ")
}

func sideLineups(lineups []TeamLineup) string {
	var b strings.Builder
	for _, l := range lineups {
		fmt.Fprintf(&b, "**%s**:\n", l.TeamName)
		b.WriteString(strings.Join(l.Tanks, "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

func specialRules(m *models.Match) string {
	if m.SpecialRules == "" {
		return "No Special Rules"
	}
	return m.SpecialRules
}
