// Package bitset provides a small growable bitset keyed by non-negative ints.
package bitset

import "math/bits"

// BitSet is a set of non-negative ints backed by 64-bit words.
type BitSet struct {
	buckets []uint64
}

// New returns an empty set sized for values below initialCapacity.
func New(initialCapacity int) *BitSet {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	return &BitSet{
		buckets: make([]uint64, (initialCapacity>>6)+1), // >> 6 == / 64
	}
}

func (bs *BitSet) grow(n int) {
	needed := (n >> 6) + 1
	if len(bs.buckets) < needed {
		newBuckets := make([]uint64, needed)
		copy(newBuckets, bs.buckets)
		bs.buckets = newBuckets
	}
}

func (bs *BitSet) Add(n int) {
	bucket := n >> 6
	if bucket >= len(bs.buckets) {
		bs.grow(n)
	}
	// n & 63 == n % 64
	bs.buckets[bucket] |= 1 << uint(n&63)
}

func (bs *BitSet) Has(n int) bool {
	bucket := n >> 6
	if n < 0 || bucket >= len(bs.buckets) {
		return false
	}
	return bs.buckets[bucket]&(1<<uint(n&63)) != 0
}

// Len returns the number of set bits.
func (bs *BitSet) Len() int {
	count := 0
	for _, b := range bs.buckets {
		count += bits.OnesCount64(b)
	}
	return count
}
