package audit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evsite/tankleague/internal/models"
)

// ChangeSet is the structured difference between two team snapshots.
type ChangeSet struct {
	BalanceDelta int64
	ScoreDelta   float64
	EarnedDelta  int64
	SpentDelta   int64
	KitDeltas    map[string]int
	AddedTanks   []string
	RemovedTanks []string
	AddedManus   []string
	RemovedManus []string
	BoosterFrom  *int
	BoosterTo    *int
}

// IsEmpty reports whether nothing changed between the two snapshots.
func (c ChangeSet) IsEmpty() bool {
	return c.BalanceDelta == 0 && c.ScoreDelta == 0 &&
		c.EarnedDelta == 0 && c.SpentDelta == 0 &&
		len(c.KitDeltas) == 0 &&
		len(c.AddedTanks) == 0 && len(c.RemovedTanks) == 0 &&
		len(c.AddedManus) == 0 && len(c.RemovedManus) == 0 &&
		!boosterChanged(c.BoosterFrom, c.BoosterTo)
}

func boosterChanged(from, to *int) bool {
	if from == nil && to == nil {
		return false
	}
	if from == nil || to == nil {
		return true
	}
	return *from != *to
}

// Diff computes the per-field change-set between a before and after
// snapshot. Tank and manufacturer name lists are diffed as multisets so
// duplicate copies are tracked by count.
func Diff(before, after TeamSnapshot) ChangeSet {
	cs := ChangeSet{
		BalanceDelta: after.Balance - before.Balance,
		ScoreDelta:   after.Score - before.Score,
		EarnedDelta:  after.TotalMoneyEarned - before.TotalMoneyEarned,
		SpentDelta:   after.TotalMoneySpent - before.TotalMoneySpent,
		KitDeltas:    map[string]int{},
		BoosterFrom:  before.BoosterMatchesLeft,
		BoosterTo:    after.BoosterMatchesLeft,
	}

	for _, tier := range []string{models.KitTierT1, models.KitTierT2, models.KitTierT3} {
		if d := after.Kits.Get(tier) - before.Kits.Get(tier); d != 0 {
			cs.KitDeltas[tier] = d
		}
	}

	cs.AddedTanks, cs.RemovedTanks = multisetDiff(before.Tanks, after.Tanks)
	cs.AddedManus, cs.RemovedManus = multisetDiff(before.Manufacturers, after.Manufacturers)

	return cs
}

// multisetDiff returns names present in after but not before (added) and
// vice versa (removed), one entry per copy.
func multisetDiff(before, after []string) (added, removed []string) {
	counts := map[string]int{}
	for _, name := range before {
		counts[name]--
	}
	for _, name := range after {
		counts[name]++
	}
	for name, n := range counts {
		for i := 0; i < n; i++ {
			added = append(added, name)
		}
		for i := 0; i < -n; i++ {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Describe assembles the human-readable change description stored next to
// the structured snapshots.
func (c ChangeSet) Describe(before, after TeamSnapshot) string {
	var parts []string

	if c.BalanceDelta != 0 {
		parts = append(parts, fmt.Sprintf("Balance: %d -> %d", before.Balance, after.Balance))
	}
	if c.ScoreDelta != 0 {
		parts = append(parts, fmt.Sprintf("Score: %g -> %g", before.Score, after.Score))
	}
	for _, tier := range []string{models.KitTierT1, models.KitTierT2, models.KitTierT3} {
		if d, ok := c.KitDeltas[tier]; ok {
			parts = append(parts, fmt.Sprintf("%+d %s kit", d, tier))
		}
	}
	if len(c.AddedTanks) > 0 {
		parts = append(parts, "Added Tanks: "+strings.Join(c.AddedTanks, ", "))
	}
	if len(c.RemovedTanks) > 0 {
		parts = append(parts, "Removed Tanks: "+strings.Join(c.RemovedTanks, ", "))
	}
	if len(c.AddedManus) > 0 {
		parts = append(parts, "Added Manufacturers: "+strings.Join(c.AddedManus, ", "))
	}
	if len(c.RemovedManus) > 0 {
		parts = append(parts, "Removed Manufacturers: "+strings.Join(c.RemovedManus, ", "))
	}
	if boosterChanged(c.BoosterFrom, c.BoosterTo) {
		parts = append(parts, fmt.Sprintf("Booster matches: %s -> %s",
			formatBooster(c.BoosterFrom), formatBooster(c.BoosterTo)))
	}

	return strings.Join(parts, "; ")
}

func formatBooster(v *int) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *v)
}
