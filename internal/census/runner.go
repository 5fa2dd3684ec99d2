package census

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/blockcensus/internal/world"
)

// Config configures a census run.
type Config struct {
	Workers   int            // Concurrent region files (default runtime.NumCPU())
	YRange    world.YRange   // World height counted by every worker
	AllChunks bool           // Count chunks that are not fully generated
	Ignore    []string       // Block types excluded from counting (nil = world.DefaultIgnore)
	Opener    Opener         // Region file opener
	Logger    zerolog.Logger // Logger
	Metrics   *Metrics       // Optional run metrics
}

// Runner fans region files out to a bounded pool of workers and reduces
// their accumulators into one census.
type Runner struct {
	cfg    Config
	opts   Options
	log    zerolog.Logger
	active atomic.Int32
}

// NewRunner validates cfg and fills in defaults.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Opener == nil {
		return nil, fmt.Errorf("census: no region opener configured")
	}
	if !cfg.YRange.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, cfg.YRange)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Ignore == nil {
		cfg.Ignore = world.DefaultIgnore
	}

	return &Runner{
		cfg: cfg,
		opts: Options{
			YRange:    cfg.YRange,
			AllChunks: cfg.AllChunks,
			Ignore:    NewIgnoreSet(cfg.Ignore...),
		},
		log: cfg.Logger,
	}, nil
}

// Workers returns the pool size.
func (r *Runner) Workers() int { return r.cfg.Workers }

// Run counts every file and returns the merged census. Per-file failures are
// reported in Result.Dropped and never abort the run. If ctx is cancelled,
// files not yet started are dropped with the context error and Run returns
// the partial result together with ctx.Err().
func (r *Runner) Run(ctx context.Context, files []string) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	r.log.Info().
		Int("files", len(files)).
		Int("workers", r.cfg.Workers).
		Stringer("y_range", r.cfg.YRange).
		Bool("all_chunks", r.cfg.AllChunks).
		Msg("starting census")

	reducer, err := NewReducer(r.cfg.YRange, r.log, r.cfg.Metrics)
	if err != nil {
		return nil, err
	}

	results := make(chan FileResult, len(files))

	// Dispatch: one task per file, at most Workers running at once.
	go func() {
		var g errgroup.Group
		g.SetLimit(r.cfg.Workers)
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				results <- FileResult{Path: path, Err: err}
				continue
			}
			g.Go(func() error {
				results <- r.processFile(ctx, path)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	// Reduce in completion order until every worker has reported.
	startTime := time.Now()
	for res := range results {
		reducer.Add(res)
		r.log.Info().
			Str("file", res.Path).
			Int32("active", r.active.Load()).
			Msg("got result for region")
	}

	out := reducer.Result()
	r.log.Info().
		Int("processed", out.Processed).
		Int("dropped", len(out.Dropped)).
		Int("chunks", out.Stats.Chunks).
		Int("skipped", out.Stats.Skipped).
		Int64("blocks", out.Stats.Blocks).
		Int("block_types", out.Counts.Len()).
		Dur("elapsed", time.Since(startTime)).
		Msg("census complete")

	return out, ctx.Err()
}

// processFile counts a single region file. Panics raised while decoding or
// counting are turned into a file error so sibling workers keep running.
func (r *Runner) processFile(ctx context.Context, path string) (res FileResult) {
	r.active.Add(1)
	r.cfg.Metrics.workerStarted()
	defer func() {
		r.active.Add(-1)
		r.cfg.Metrics.workerDone()
	}()

	res.Path = path
	log := r.log.With().Str("file", filepath.Base(path)).Logger()
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("region worker panicked")
			res = FileResult{Path: path, Err: fmt.Errorf("worker panic: %v", p)}
		}
	}()

	log.Info().Msg("processing file")
	startTime := time.Now()

	reg, err := r.cfg.Opener.Open(path)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() {
		if err := reg.Close(); err != nil {
			log.Debug().Err(err).Msg("close region")
		}
	}()

	opts := r.opts
	opts.Logger = log
	acc, stats, err := CountRegion(ctx, reg, opts)
	stats.Elapsed = time.Since(startTime)
	res.Stats = stats
	if err != nil {
		res.Err = err
		return res
	}
	res.Counts = acc

	log.Debug().
		Int("chunks", stats.Chunks).
		Int("counted", stats.Counted).
		Int("skipped", stats.Skipped).
		Int64("blocks", stats.Blocks).
		Dur("elapsed", stats.Elapsed).
		Msg("file complete")
	return res
}
