package services

import (
	"container/heap"

	"github.com/evsite/tankleague/internal/models"
)

// searchEdge is one outgoing upgrade edge in the search graph.
type searchEdge struct {
	to           uint
	cost         int64
	requiredTier string
}

// searchState is the immutable label of a best-known path to a node:
// accumulated discounted cost, accumulated undiscounted cost, the kit
// vector consumed along the way, and enough shape data to report a
// single-hop tier.
type searchState struct {
	cost      int64
	base      int64
	kits      models.KitCounts
	hops      int
	firstTier string
}

// betterState reports whether a strictly improves on b under the chosen
// ordering: minimize-kits mode orders by weighted kit count first and cost
// second, plain mode by cost alone.
func betterState(a, b searchState, minimizeKits bool) bool {
	if minimizeKits {
		aw, bw := a.kits.Weight(), b.kits.Weight()
		if aw != bw {
			return aw < bw
		}
		return a.cost < b.cost
	}
	return a.cost < b.cost
}

type searchItem struct {
	tank  uint
	state searchState
}

type searchQueue struct {
	items        []searchItem
	minimizeKits bool
}

func (q *searchQueue) Len() int { return len(q.items) }

func (q *searchQueue) Less(i, j int) bool {
	return betterState(q.items[i].state, q.items[j].state, q.minimizeKits)
}

func (q *searchQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *searchQueue) Push(x any) { q.items = append(q.items, x.(searchItem)) }

func (q *searchQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

// runUpgradeSearch performs a label-setting best-first search from start
// over the upgrade graph. Each edge step costs the edge cost minus the
// required tier's flat kit discount, floored at zero, so accumulated cost
// never decreases and the queue drains. A node's label is only replaced
// when the new path strictly improves on the ordering key.
func runUpgradeSearch(adj map[uint][]searchEdge, start uint, minimizeKits bool) map[uint]searchState {
	best := map[uint]searchState{start: {}}

	q := &searchQueue{minimizeKits: minimizeKits}
	heap.Init(q)
	heap.Push(q, searchItem{tank: start})

	for q.Len() > 0 {
		item := heap.Pop(q).(searchItem)

		// already improved upon since it was queued
		if cur, ok := best[item.tank]; ok && betterState(cur, item.state, minimizeKits) {
			continue
		}

		for _, edge := range adj[item.tank] {
			step := edge.cost - models.KitPrice(edge.requiredTier)
			if step < 0 {
				step = 0
			}

			next := searchState{
				cost:      item.state.cost + step,
				base:      item.state.base + edge.cost,
				kits:      item.state.kits,
				hops:      item.state.hops + 1,
				firstTier: item.state.firstTier,
			}
			if edge.requiredTier != "" {
				next.kits.Add(edge.requiredTier, 1)
			}
			if next.hops == 1 {
				next.firstTier = edge.requiredTier
			}

			if existing, ok := best[edge.to]; !ok || betterState(next, existing, minimizeKits) {
				best[edge.to] = next
				heap.Push(q, searchItem{tank: edge.to, state: next})
			}
		}
	}

	return best
}
