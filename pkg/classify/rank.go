package classify

import (
	"math"

	"github.com/tidwall/btree"
)

// rankItem orders a value with its index as a tie-breaker.
type rankItem struct {
	Value float64
	ID    int
}

func rankItemLess(a, b rankItem) bool {
	if a.Value < b.Value {
		return true
	}
	if a.Value > b.Value {
		return false
	}
	return a.ID < b.ID
}

// rankAscending returns ids ordered by ascending value, ties by id.
func rankAscending(ids []int, value func(id int) float64) []int {
	tree := btree.NewBTreeG[rankItem](rankItemLess)
	for _, id := range ids {
		tree.Set(rankItem{Value: value(id), ID: id})
	}
	out := make([]int, 0, len(ids))
	tree.Ascend(rankItem{Value: math.Inf(-1), ID: math.MinInt}, func(item rankItem) bool {
		out = append(out, item.ID)
		return true
	})
	return out
}
