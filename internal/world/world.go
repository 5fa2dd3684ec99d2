// Package world holds the vertical extent of a world and the block naming
// conventions shared by the region decoder and the census.
package world

import (
	"fmt"
	"strings"
)

// StatusFull is the chunk status of a fully generated chunk.
const StatusFull = "full"

// Namespace is the default block and status namespace.
const Namespace = "minecraft:"

// DefaultIgnore lists the block types excluded from a census unless the
// caller supplies its own ignore set.
var DefaultIgnore = []string{"minecraft:air", "minecraft:cave_air"}

// Presets for the world height.
var (
	// Classic covers worlds before 1.18.
	Classic = YRange{Start: 0, End: 256}
	// High covers 1.18 and later.
	High = YRange{Start: -64, End: 320}
)

// YRange is a half-open interval [Start, End) of vertical coordinates.
type YRange struct {
	Start int
	End   int
}

// Len returns the number of levels in the range, 0 for inverted ranges.
func (r YRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range holds no levels.
func (r YRange) Empty() bool {
	return r.End <= r.Start
}

// Valid reports whether End >= Start.
func (r YRange) Valid() bool {
	return r.End >= r.Start
}

// Contains reports whether y lies in the range.
func (r YRange) Contains(y int) bool {
	return r.Start <= y && y < r.End
}

// Intersect returns the overlap of r and o. Ranges that do not overlap
// collapse to the empty range [start, start), start being the larger of the
// two starts.
func (r YRange) Intersect(o YRange) YRange {
	start := max(r.Start, o.Start)
	end := min(r.End, o.End)
	if end < start {
		end = start
	}
	return YRange{Start: start, End: end}
}

// Union returns the smallest range covering both r and o. An empty operand
// is ignored.
func (r YRange) Union(o YRange) YRange {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return YRange{Start: min(r.Start, o.Start), End: max(r.End, o.End)}
}

func (r YRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Preset resolves a preset name ("classic" or "high").
func Preset(name string) (YRange, error) {
	switch strings.ToLower(name) {
	case "", "classic":
		return Classic, nil
	case "high":
		return High, nil
	}
	return YRange{}, fmt.Errorf("unknown world preset %q", name)
}

// TrimNamespace strips the default namespace from s, so "minecraft:full"
// and "full" compare equal.
func TrimNamespace(s string) string {
	return strings.TrimPrefix(s, Namespace)
}
