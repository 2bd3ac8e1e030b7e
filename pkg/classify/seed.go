package classify

import (
	"fmt"
	"sort"
)

// ReferenceFractions returns, per cluster, the fraction of members flagged as
// reference.
func ReferenceFractions(labels []int, k int, reference []bool) []float64 {
	counts := make([]int, k)
	refs := make([]int, k)
	for i, l := range labels {
		counts[l]++
		if reference != nil && reference[i] {
			refs[l]++
		}
	}
	fracs := make([]float64, k)
	for c := range fracs {
		if counts[c] > 0 {
			fracs[c] = float64(refs[c]) / float64(counts[c])
		}
	}
	return fracs
}

// SupervisedSeeds returns the clusters whose reference fraction is at least
// refpMin, in ascending order.
func SupervisedSeeds(fracs []float64, refpMin float64) ([]int, error) {
	var seeds []int
	for c, f := range fracs {
		if f >= refpMin {
			seeds = append(seeds, c)
		}
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no cluster has a reference fraction >= %v", ErrNoReferenceCluster, refpMin)
	}
	return seeds, nil
}

// UnsupervisedSeeds finds the largest community of mutually connected
// clusters in the adjacency matrix.
//
// Cluster k is a neighbour of j when adj[j][k] reaches cutoff times both
// adj[j][j] and adj[k][k]. Every neighbourhood of more than one cluster
// proposes the clusters shared by all of its members' neighbourhoods. Proposals
// contained in another proposal are dropped, overlapping ones are merged, and
// the largest result wins.
func UnsupervisedSeeds(adj [][]float64, cutoff float64) ([]int, error) {
	k := len(adj)
	neighbours := make([]map[int]struct{}, k)
	for j := 0; j < k; j++ {
		neighbours[j] = map[int]struct{}{}
		for m := 0; m < k; m++ {
			if adj[j][m] >= adj[j][j]*cutoff && adj[j][m] >= adj[m][m]*cutoff {
				neighbours[j][m] = struct{}{}
			}
		}
	}

	var candidates [][]int
	for j := 0; j < k; j++ {
		if len(neighbours[j]) <= 1 {
			continue
		}
		common := copySet(neighbours[j])
		for n := range neighbours[j] {
			intersectInto(common, neighbours[n])
		}
		if len(common) > 1 {
			candidates = append(candidates, sortedMembers(common))
		}
	}

	candidates = dropContained(candidates)
	merged := MergeCommunities(candidates)
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: no community of connected clusters", ErrNoReferenceCluster)
	}
	return Largest(merged), nil
}

// MergeCommunities unions overlapping communities until every pair is
// disjoint. Each output community is sorted; communities keep the order of
// their earliest input. Merging an already merged list returns it unchanged.
func MergeCommunities(communities [][]int) [][]int {
	work := make([]map[int]struct{}, 0, len(communities))
	for _, c := range communities {
		if len(c) == 0 {
			continue
		}
		work = append(work, toSet(c))
	}

	for changed := true; changed; {
		changed = false
	outer:
		for a := 0; a < len(work); a++ {
			for b := a + 1; b < len(work); b++ {
				if overlaps(work[a], work[b]) {
					for m := range work[b] {
						work[a][m] = struct{}{}
					}
					work = append(work[:b:b], work[b+1:]...)
					changed = true
					break outer
				}
			}
		}
	}

	out := make([][]int, len(work))
	for i, s := range work {
		out[i] = sortedMembers(s)
	}
	return out
}

// Largest returns the biggest community, the earliest one on ties.
func Largest(communities [][]int) []int {
	var best []int
	for _, c := range communities {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// dropContained removes communities that are a subset of another one. Of two
// identical communities the later is kept.
func dropContained(communities [][]int) [][]int {
	sets := make([]map[int]struct{}, len(communities))
	for i, c := range communities {
		sets[i] = toSet(c)
	}
	dropped := make([]bool, len(communities))
	for a := range communities {
		for b := range communities {
			if a == b || dropped[b] {
				continue
			}
			if subset(sets[a], sets[b]) {
				dropped[a] = true
				break
			}
		}
	}
	var out [][]int
	for i, c := range communities {
		if !dropped[i] {
			out = append(out, c)
		}
	}
	return out
}

func toSet(members []int) map[int]struct{} {
	s := make(map[int]struct{}, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func copySet(s map[int]struct{}) map[int]struct{} {
	c := make(map[int]struct{}, len(s))
	for m := range s {
		c[m] = struct{}{}
	}
	return c
}

func intersectInto(dst, other map[int]struct{}) {
	for m := range dst {
		if _, ok := other[m]; !ok {
			delete(dst, m)
		}
	}
}

func overlaps(a, b map[int]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for m := range a {
		if _, ok := b[m]; ok {
			return true
		}
	}
	return false
}

func subset(a, b map[int]struct{}) bool {
	if len(a) > len(b) {
		return false
	}
	for m := range a {
		if _, ok := b[m]; !ok {
			return false
		}
	}
	return true
}

func sortedMembers(s map[int]struct{}) []int {
	out := make([]int, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}
