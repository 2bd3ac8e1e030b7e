package classify

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sanonone/refclass/pkg/core/bitset"
)

// ExpansionParams configures Expand. Exactly one of Alpha and PValueCutoff
// must be set.
type ExpansionParams struct {
	NNeighbors   int
	Mode         ExpansionMode
	Alpha        *float64
	PValueCutoff *float64
}

// Expansion is the outcome of growing a seed set over the cluster graph.
type Expansion struct {
	// Seeds in descending size order.
	Seeds []int
	// Selected holds the seeds plus every cluster admitted by the acceptance
	// test, in order of admission.
	Selected []int
	// Order holds every cluster exactly once, in order of admission.
	Order []int
	Trail []ExpansionStep
	// Rounds counts expansion rounds; ForcedRounds those in forced mode.
	Rounds       int
	ForcedRounds int
}

// oneDoF is the Student-t distribution behind the p-value acceptance test.
var oneDoF = distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 1}

type candidate struct {
	cluster    int
	partner    int
	edgeWeight float64
	metric     float64
	acceptance float64
	accepted   bool
}

// Expand grows seeds until every cluster is covered.
//
// Each round scores every uncovered cluster against the current core set and
// admits all that pass the acceptance test at once. The first round in which
// nobody passes switches to forced mode for good: from then on each round
// admits the single best-connected cluster, so the loop ends after at most
// K - len(seeds) rounds.
func Expand(adj [][]float64, sizes []int, seeds []int, p ExpansionParams) (*Expansion, error) {
	k := len(adj)
	if err := checkExpansionInput(adj, sizes, seeds, p); err != nil {
		return nil, err
	}

	// 1. Symmetrise and drop self connections
	a := make([][]float64, k)
	for i := range a {
		a[i] = make([]float64, k)
		for j := range a[i] {
			if i != j {
				a[i][j] = adj[i][j] + adj[j][i]
			}
		}
	}

	// 2. Seeds, largest first
	core := append([]int(nil), seeds...)
	sort.SliceStable(core, func(x, y int) bool { return sizes[core[x]] > sizes[core[y]] })

	ex := &Expansion{
		Seeds:    append([]int(nil), core...),
		Selected: append([]int(nil), core...),
		Order:    append([]int(nil), core...),
	}
	inCore := bitset.New(k)
	for _, s := range core {
		inCore.Add(s)
	}

	threshold := p.threshold()
	for _, s := range core {
		others := make([]int, 0, len(core)-1)
		for _, o := range core {
			if o != s {
				others = append(others, o)
			}
		}
		c := p.score(a, sizes, others, s, coreStats(a, others, p))
		ex.Trail = append(ex.Trail, c.step(0, threshold, true, false))
	}

	// 3. Expansion rounds
	forced := false
	for len(ex.Order) < k {
		ex.Rounds++
		st := coreStats(a, ex.Order, p)

		var cands []candidate
		for c := 0; c < k; c++ {
			if inCore.Has(c) {
				continue
			}
			cands = append(cands, p.score(a, sizes, ex.Order, c, st))
		}

		if !forced {
			admitted := 0
			for _, c := range cands {
				if !c.accepted {
					continue
				}
				ex.Order = append(ex.Order, c.cluster)
				ex.Selected = append(ex.Selected, c.cluster)
				ex.Trail = append(ex.Trail, c.step(ex.Rounds, threshold, false, false))
				inCore.Add(c.cluster)
				admitted++
			}
			if admitted > 0 {
				continue
			}
			forced = true
		}

		best := 0
		for i := 1; i < len(cands); i++ {
			if cands[i].metric > cands[best].metric {
				best = i
			}
		}
		c := cands[best]
		ex.Order = append(ex.Order, c.cluster)
		ex.Trail = append(ex.Trail, c.step(ex.Rounds, threshold, false, true))
		inCore.Add(c.cluster)
		ex.ForcedRounds++
	}

	return ex, nil
}

func checkExpansionInput(adj [][]float64, sizes []int, seeds []int, p ExpansionParams) error {
	k := len(adj)
	for i, row := range adj {
		if len(row) != k {
			return fmt.Errorf("%w: adjacency row %d has %d columns, want %d", ErrInvalidInput, i, len(row), k)
		}
	}
	if len(sizes) != k {
		return fmt.Errorf("%w: %d cluster sizes for %d clusters", ErrInvalidInput, len(sizes), k)
	}
	if len(seeds) == 0 {
		return fmt.Errorf("%w: empty seed set", ErrNoReferenceCluster)
	}
	seen := bitset.New(k)
	for _, s := range seeds {
		if s < 0 || s >= k || seen.Has(s) {
			return fmt.Errorf("%w: bad seed cluster %d", ErrInvalidInput, s)
		}
		seen.Add(s)
	}
	if (p.Alpha == nil) == (p.PValueCutoff == nil) {
		return configError("connectivity_threshold", "exactly one of alpha and pv_cutoff must be set")
	}
	if p.NNeighbors < 1 {
		return configError("n_neighbors", "must be >= 1, got %d", p.NNeighbors)
	}
	return nil
}

func (p ExpansionParams) threshold() float64 {
	if p.Alpha != nil {
		return *p.Alpha
	}
	return *p.PValueCutoff
}

// aggregate combines a cluster's edge weights to members of set, normalised
// by the neighbourhood size. The empty set aggregates to 0.
func (p ExpansionParams) aggregate(a [][]float64, set []int, c int) float64 {
	var agg float64
	for _, s := range set {
		w := a[s][c]
		if p.Mode == ExpandMax {
			agg = math.Max(agg, w)
		} else {
			agg += w
		}
	}
	return agg / float64(p.NNeighbors)
}

// coreStats returns the mean and population standard deviation of each core
// member's aggregate against the rest of the core.
func coreStats(a [][]float64, core []int, p ExpansionParams) [2]float64 {
	if len(core) == 0 {
		return [2]float64{}
	}
	metrics := make([]float64, len(core))
	rest := make([]int, 0, len(core))
	for i, s := range core {
		rest = rest[:0]
		for _, o := range core {
			if o != s {
				rest = append(rest, o)
			}
		}
		metrics[i] = p.aggregate(a, rest, s)
	}
	mean := stat.Mean(metrics, nil)
	return [2]float64{mean, math.Sqrt(stat.PopVariance(metrics, nil))}
}

// pValue is the two-sided one degree of freedom p-value of a cluster metric
// against the core distribution. A core without spread (a single member, or
// identical members) gives no evidence, so the p-value is 0.
func pValue(metric, mean, std float64) float64 {
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	dev := math.Abs(mean - metric)
	return 2 * oneDoF.Survival(dev/std*math.Sqrt2)
}

// score evaluates cluster c against set. The partner is the first member of
// set with the heaviest edge to c.
func (p ExpansionParams) score(a [][]float64, sizes []int, set []int, c int, st [2]float64) candidate {
	cand := candidate{cluster: c, partner: -1}
	for _, s := range set {
		if cand.partner == -1 || a[s][c] > cand.edgeWeight {
			cand.partner = s
			cand.edgeWeight = a[s][c]
		}
	}
	cand.metric = p.aggregate(a, set, c)
	if cand.partner == -1 {
		return cand
	}

	if p.Alpha != nil {
		cand.acceptance = cand.metric / float64(min(sizes[c], sizes[cand.partner]))
		cand.accepted = cand.acceptance >= *p.Alpha
	} else {
		cand.acceptance = pValue(cand.metric, st[0], st[1])
		cand.accepted = cand.acceptance >= *p.PValueCutoff
	}
	return cand
}

func (c candidate) step(round int, threshold float64, seed, forced bool) ExpansionStep {
	return ExpansionStep{
		Round:           round,
		ClusterID:       c.cluster,
		ParentID:        c.partner,
		EdgeWeight:      c.edgeWeight,
		Metric:          c.metric,
		AcceptanceValue: c.acceptance,
		Threshold:       threshold,
		Seed:            seed,
		Forced:          forced,
	}
}
