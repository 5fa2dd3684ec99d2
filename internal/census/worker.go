package census

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/blockcensus/internal/world"
)

// Region is an opened region file.
type Region interface {
	// ForEachChunk calls fn for every stored chunk. An error from fn or from
	// decoding a chunk aborts the scan.
	ForEachChunk(fn func(x, z int, c world.Chunk) error) error
	Close() error
}

// Opener opens region files.
type Opener interface {
	Open(path string) (Region, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Region, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Region, error) { return f(path) }

// IgnoreSet holds block types excluded from counting.
type IgnoreSet map[string]struct{}

// NewIgnoreSet builds an IgnoreSet from names.
func NewIgnoreSet(names ...string) IgnoreSet {
	s := make(IgnoreSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is ignored.
func (s IgnoreSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Options controls how a region is tallied.
type Options struct {
	YRange    world.YRange   // levels to count; every accumulator uses exactly this range
	AllChunks bool           // count chunks that are not fully generated
	Ignore    IgnoreSet      // block types never counted
	Logger    zerolog.Logger // per-chunk debug output
}

// FileStats describes the work done on one region file.
type FileStats struct {
	Chunks  int           // chunks visited
	Counted int           // chunks tallied
	Skipped int           // chunks rejected by the status filter
	Blocks  int64         // blocks counted
	Elapsed time.Duration // wall time spent on the file
}

func (s *FileStats) add(o FileStats) {
	s.Chunks += o.Chunks
	s.Counted += o.Counted
	s.Skipped += o.Skipped
	s.Blocks += o.Blocks
	s.Elapsed += o.Elapsed
}

// CountRegion tallies every chunk of reg into a fresh accumulator over
// opts.YRange. Any error aborts the region and no accumulator is returned,
// so a failing file never contributes partial counts.
func CountRegion(ctx context.Context, reg Region, opts Options) (*Accumulator, FileStats, error) {
	var stats FileStats
	acc, err := NewAccumulator(opts.YRange)
	if err != nil {
		return nil, stats, err
	}

	err = reg.ForEachChunk(func(x, z int, c world.Chunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Chunks++

		status := c.Status()
		chunkRange := c.YRange()
		opts.Logger.Debug().
			Int("x", x).
			Int("z", z).
			Str("status", status).
			Stringer("y_range", chunkRange).
			Msg("processing chunk")

		// skip incomplete chunks
		if !opts.AllChunks && status != world.StatusFull {
			stats.Skipped++
			return nil
		}

		stats.Counted++
		stats.Blocks += countChunk(acc, c, opts.YRange.Intersect(chunkRange), opts.Ignore)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return acc, stats, nil
}

// countChunk adds the blocks of c within levels to acc and returns how many
// were counted. levels must lie inside acc's range.
func countChunk(acc *Accumulator, c world.Chunk, levels world.YRange, ignore IgnoreSet) int64 {
	var n int64
	for y := levels.Start; y < levels.End; y++ {
		for x := 0; x < world.ChunkSize; x++ {
			for z := 0; z < world.ChunkSize; z++ {
				name, ok := c.BlockAt(x, y, z)
				if !ok || ignore.Has(name) {
					continue
				}
				acc.CountBlock(y, name)
				n++
			}
		}
	}
	return n
}
