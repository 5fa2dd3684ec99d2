package census

import (
	"fmt"
	"sort"

	"github.com/freeeve/blockcensus/internal/world"
)

// Accumulator holds per-level occurrence counts keyed by block type.
// Each count slice has exactly Capacity() entries; index i is level
// Range().Start+i.
//
// An Accumulator is owned by one goroutine at a time. After it has been
// passed to Merge it must not be used again.
type Accumulator struct {
	yRange   world.YRange
	capacity int
	counts   map[string][]int64
}

// NewAccumulator returns an empty accumulator over r.
func NewAccumulator(r world.YRange) (*Accumulator, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, r)
	}
	return &Accumulator{
		yRange:   r,
		capacity: r.Len(),
		counts:   make(map[string][]int64),
	}, nil
}

// CountBlock records one occurrence of blockType at level y.
// y must lie inside Range(); callers clip ranges first.
func (a *Accumulator) CountBlock(y int, blockType string) {
	a.add(y, blockType, 1)
}

func (a *Accumulator) add(y int, blockType string, n int64) {
	if !a.yRange.Contains(y) {
		panic(fmt.Sprintf("census: level %d outside accumulator range %v", y, a.yRange))
	}
	c, ok := a.counts[blockType]
	if !ok {
		c = make([]int64, a.capacity)
		a.counts[blockType] = c
	}
	c[y-a.yRange.Start] += n
}

// Merge folds other into a and consumes other. Ranges must match exactly;
// on mismatch a is left untouched and a *RangeMismatchError is returned.
// Merging an accumulator into itself is a no-op.
func (a *Accumulator) Merge(other *Accumulator) error {
	if other == a {
		return nil
	}
	if a.yRange != other.yRange {
		return &RangeMismatchError{This: a.yRange, Other: other.yRange}
	}
	for blockType, oc := range other.counts {
		c, ok := a.counts[blockType]
		if !ok {
			a.counts[blockType] = oc
			continue
		}
		for i, n := range oc {
			c[i] += n
		}
	}
	other.counts = nil
	return nil
}

// Range returns the vertical extent the accumulator indexes.
func (a *Accumulator) Range() world.YRange { return a.yRange }

// Capacity returns the length of every count slice.
func (a *Accumulator) Capacity() int { return a.capacity }

// Len returns the number of distinct block types.
func (a *Accumulator) Len() int { return len(a.counts) }

// Observed returns the smallest range covering every level that received a
// non-zero count, empty if nothing was counted.
func (a *Accumulator) Observed() world.YRange {
	var r world.YRange
	for _, c := range a.counts {
		for i, n := range c {
			if n != 0 {
				y := a.yRange.Start + i
				r = r.Union(world.YRange{Start: y, End: y + 1})
			}
		}
	}
	return r
}

// BlockTypes returns the block types in lexicographic order.
func (a *Accumulator) BlockTypes() []string {
	keys := make([]string, 0, len(a.counts))
	for k := range a.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Counts returns a copy of the per-level counts of blockType, or nil if the
// block type was never counted.
func (a *Accumulator) Counts(blockType string) []int64 {
	c, ok := a.counts[blockType]
	if !ok {
		return nil
	}
	out := make([]int64, len(c))
	copy(out, c)
	return out
}

// Count returns the count of blockType at level y.
func (a *Accumulator) Count(blockType string, y int) int64 {
	c, ok := a.counts[blockType]
	if !ok || !a.yRange.Contains(y) {
		return 0
	}
	return c[y-a.yRange.Start]
}

// Each calls fn for every block type in lexicographic order. counts must not
// be modified or retained.
func (a *Accumulator) Each(fn func(blockType string, counts []int64) bool) {
	for _, k := range a.BlockTypes() {
		if !fn(k, a.counts[k]) {
			return
		}
	}
}

// Total returns the sum of all counts.
func (a *Accumulator) Total() int64 {
	var total int64
	for _, c := range a.counts {
		for _, n := range c {
			total += n
		}
	}
	return total
}

// Set overwrites the count of blockType at level y. It is used when
// rebuilding a census from storage. Negative counts are rejected with
// ErrNegativeCount and y must lie inside Range().
func (a *Accumulator) Set(blockType string, y int, n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: %s at %d = %d", ErrNegativeCount, blockType, y, n)
	}
	if n == 0 && a.Count(blockType, y) == 0 {
		return nil
	}
	a.add(y, blockType, n-a.Count(blockType, y))
	return nil
}
