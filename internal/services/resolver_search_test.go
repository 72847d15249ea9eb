package services

import (
	"testing"

	"github.com/evsite/tankleague/internal/models"
)

// Graph under test:
//
//	1 -> 2 (30000, no kit)
//	1 -> 3 (40000, T1)
//	2 -> 4 (50000, T2)
//	3 -> 4 (20000, no kit)
//	4 -> 5 (10000, T1)
func testGraph() map[uint][]searchEdge {
	return map[uint][]searchEdge{
		1: {
			{to: 2, cost: 30000},
			{to: 3, cost: 40000, requiredTier: models.KitTierT1},
		},
		2: {{to: 4, cost: 50000, requiredTier: models.KitTierT2}},
		3: {{to: 4, cost: 20000}},
		4: {{to: 5, cost: 10000, requiredTier: models.KitTierT1}},
	}
}

func TestRunUpgradeSearchCostOnly(t *testing.T) {
	best := runUpgradeSearch(testGraph(), 1, false)

	// Path 1->2: 30000 plain.
	if got := best[2]; got.cost != 30000 || got.kits.Weight() != 0 {
		t.Errorf("node 2 = %+v, want cost 30000 with no kits", got)
	}

	// Path 1->3: 40000 edge minus T1 discount 25000.
	if got := best[3]; got.cost != 15000 || got.kits.T1 != 1 {
		t.Errorf("node 3 = %+v, want cost 15000 consuming one T1", got)
	}

	// To 4: via 2 costs 30000 + max(50000-50000, 0) = 30000, via 3
	// costs 15000 + 20000 = 35000. Cost-only mode takes the T2 route.
	got := best[4]
	if got.cost != 30000 || got.kits.T2 != 1 {
		t.Errorf("node 4 = %+v, want cost 30000 via the T2 edge", got)
	}
}

func TestRunUpgradeSearchMinimizeKits(t *testing.T) {
	best := runUpgradeSearch(testGraph(), 1, true)

	// The 1->3->4 route consumes one T1 (weight 1) against one T2
	// (weight 2) for 1->2->4, so it wins despite costing more.
	got := best[4]
	if got.kits.T1 != 1 || got.kits.T2 != 0 {
		t.Errorf("node 4 kits = %+v, want one T1 and no T2", got.kits)
	}
	if got.cost != 35000 {
		t.Errorf("node 4 cost = %d, want 35000", got.cost)
	}
}

func TestRunUpgradeSearchDiscountFloorsAtZero(t *testing.T) {
	adj := map[uint][]searchEdge{
		1: {{to: 2, cost: 10000, requiredTier: models.KitTierT3}},
	}
	best := runUpgradeSearch(adj, 1, false)

	// T3 discount 100000 exceeds the edge cost; the step floors at zero
	// instead of going negative.
	if got := best[2]; got.cost != 0 || got.base != 10000 {
		t.Errorf("node 2 = %+v, want cost 0 base 10000", got)
	}
}

func TestRunUpgradeSearchHopTracking(t *testing.T) {
	best := runUpgradeSearch(testGraph(), 1, true)

	if got := best[3]; got.hops != 1 || got.firstTier != models.KitTierT1 {
		t.Errorf("node 3 = %+v, want single hop with first tier T1", got)
	}
	if got := best[4]; got.hops != 2 {
		t.Errorf("node 4 hops = %d, want 2", got.hops)
	}
}

func TestRunUpgradeSearchUnreachable(t *testing.T) {
	best := runUpgradeSearch(testGraph(), 5, false)
	if _, ok := best[1]; ok {
		t.Error("node 1 should be unreachable from 5")
	}
	if len(best) != 1 {
		t.Errorf("reachable set = %d nodes, want only the origin", len(best))
	}
}

func TestRunUpgradeSearchCycleTerminates(t *testing.T) {
	adj := map[uint][]searchEdge{
		1: {{to: 2, cost: 5000}},
		2: {{to: 1, cost: 2500}},
	}
	best := runUpgradeSearch(adj, 1, false)
	if got := best[2]; got.cost != 5000 {
		t.Errorf("node 2 cost = %d, want 5000", got.cost)
	}
}
