package classify

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// sanitize replaces every all-zero row with the lowest-sum row that is not
// all zero, in place, and returns the number of rows replaced. A matrix with
// no usable row, or whose rows are all identical, is degenerate.
func sanitize(rows [][]float64) (int, error) {
	ids := make([]int, len(rows))
	for i := range ids {
		ids[i] = i
	}
	ranked := rankAscending(ids, func(i int) float64 { return floats.Sum(rows[i]) })

	donor := -1
	for _, i := range ranked {
		if !allZero(rows[i]) {
			donor = i
			break
		}
	}
	if donor == -1 {
		return 0, fmt.Errorf("%w: every row is zero", ErrDegenerateInput)
	}

	repaired := 0
	for _, r := range rows {
		if allZero(r) {
			copy(r, rows[donor])
			repaired++
		}
	}

	if len(rows) > 1 && allIdentical(rows) {
		return repaired, fmt.Errorf("%w: all %d rows are identical", ErrDegenerateInput, len(rows))
	}
	return repaired, nil
}

func allZero(r []float64) bool {
	for _, v := range r {
		if v != 0 {
			return false
		}
	}
	return true
}

func allIdentical(rows [][]float64) bool {
	for _, r := range rows[1:] {
		if !floats.Equal(r, rows[0]) {
			return false
		}
	}
	return true
}
