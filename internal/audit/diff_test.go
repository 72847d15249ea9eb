package audit

import (
	"reflect"
	"strings"
	"testing"

	"github.com/evsite/tankleague/internal/models"
)

func intPtr(v int) *int { return &v }

func TestDiffEmpty(t *testing.T) {
	snap := TeamSnapshot{
		Balance: 100000,
		Kits:    models.KitCounts{T1: 2},
		Tanks:   []string{"Tiger II", "Tiger II", "M4A3E8"},
	}
	cs := Diff(snap, snap)
	if !cs.IsEmpty() {
		t.Errorf("Diff of identical snapshots not empty: %+v", cs)
	}
}

func TestDiffFields(t *testing.T) {
	before := TeamSnapshot{
		Balance:         500000,
		Score:           3,
		TotalMoneySpent: 10000,
		Kits:            models.KitCounts{T1: 2, T2: 1},
		Tanks:           []string{"Tiger II", "M4A3E8"},
		Manufacturers:   []string{"Krupp"},
	}
	after := TeamSnapshot{
		Balance:         330000,
		Score:           5,
		TotalMoneySpent: 180000,
		Kits:            models.KitCounts{T1: 3},
		Tanks:           []string{"Tiger II", "Leopard 1"},
		Manufacturers:   []string{"Krupp", "Porsche"},
	}

	cs := Diff(before, after)

	if cs.BalanceDelta != -170000 {
		t.Errorf("BalanceDelta = %d, want -170000", cs.BalanceDelta)
	}
	if cs.ScoreDelta != 2 {
		t.Errorf("ScoreDelta = %g, want 2", cs.ScoreDelta)
	}
	if cs.SpentDelta != 170000 {
		t.Errorf("SpentDelta = %d, want 170000", cs.SpentDelta)
	}
	wantKits := map[string]int{models.KitTierT1: 1, models.KitTierT2: -1}
	if !reflect.DeepEqual(cs.KitDeltas, wantKits) {
		t.Errorf("KitDeltas = %v, want %v", cs.KitDeltas, wantKits)
	}
	if !reflect.DeepEqual(cs.AddedTanks, []string{"Leopard 1"}) {
		t.Errorf("AddedTanks = %v, want [Leopard 1]", cs.AddedTanks)
	}
	if !reflect.DeepEqual(cs.RemovedTanks, []string{"M4A3E8"}) {
		t.Errorf("RemovedTanks = %v, want [M4A3E8]", cs.RemovedTanks)
	}
	if !reflect.DeepEqual(cs.AddedManus, []string{"Porsche"}) {
		t.Errorf("AddedManus = %v, want [Porsche]", cs.AddedManus)
	}
}

func TestDiffDuplicateCopies(t *testing.T) {
	before := TeamSnapshot{Tanks: []string{"Tiger II", "Tiger II"}}
	after := TeamSnapshot{Tanks: []string{"Tiger II"}}

	cs := Diff(before, after)
	if !reflect.DeepEqual(cs.RemovedTanks, []string{"Tiger II"}) {
		t.Errorf("RemovedTanks = %v, want one Tiger II copy", cs.RemovedTanks)
	}
	if len(cs.AddedTanks) != 0 {
		t.Errorf("AddedTanks = %v, want empty", cs.AddedTanks)
	}
}

func TestDiffBoosterChange(t *testing.T) {
	tests := []struct {
		name      string
		from      *int
		to        *int
		wantEmpty bool
	}{
		{"unchanged", intPtr(3), intPtr(3), true},
		{"decremented", intPtr(3), intPtr(2), false},
		{"deleted", intPtr(1), nil, false},
		{"absent", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := TeamSnapshot{BoosterMatchesLeft: tt.from}
			after := TeamSnapshot{BoosterMatchesLeft: tt.to}
			if got := Diff(before, after).IsEmpty(); got != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.wantEmpty)
			}
		})
	}
}

func TestSnapshotMarshalRoundTrip(t *testing.T) {
	mult := 1.5
	snap := TeamSnapshot{
		Balance:            330000,
		Score:              4.5,
		Kits:               models.KitCounts{T1: 1, T3: 2},
		Manufacturers:      []string{"Krupp"},
		Tanks:              []string{"Tiger II"},
		BoosterMatchesLeft: intPtr(2),
		BoosterMultiplier:  &mult,
	}

	got, err := UnmarshalSnapshot(snap.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalSnapshot() error = %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Errorf("round trip = %+v, want %+v", got, snap)
	}
}

func TestDescribe(t *testing.T) {
	before := TeamSnapshot{Balance: 500000, Kits: models.KitCounts{T1: 1}}
	after := TeamSnapshot{Balance: 330000, Tanks: []string{"Leopard 1"}}

	desc := Diff(before, after).Describe(before, after)

	for _, want := range []string{"Balance: 500000 -> 330000", "-1 T1 kit", "Added Tanks: Leopard 1"} {
		if !strings.Contains(desc, want) {
			t.Errorf("Describe() = %q, missing %q", desc, want)
		}
	}
}
