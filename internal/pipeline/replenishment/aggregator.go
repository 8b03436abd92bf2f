package replenishment

import (
	"sort"

	"github.com/andresuchdata/rlqty/internal/domain"
)

// Aggregate flattens per-cycle results into one collection ordered by cycle
// number, then by the order in which each product first appeared.
func Aggregate(perCycle [][]domain.CycleResult) []domain.CycleResult {
	total := 0
	for _, rows := range perCycle {
		total += len(rows)
	}

	out := make([]domain.CycleResult, 0, total)
	firstSeen := make(map[string]int)
	for _, rows := range perCycle {
		for _, r := range rows {
			if _, ok := firstSeen[r.ProductID]; !ok {
				firstSeen[r.ProductID] = len(firstSeen)
			}
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cycle != out[j].Cycle {
			return out[i].Cycle < out[j].Cycle
		}
		return firstSeen[out[i].ProductID] < firstSeen[out[j].ProductID]
	})

	return out
}
