package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/blockcensus/internal/logx"
	"github.com/freeeve/blockcensus/internal/report"
	"github.com/freeeve/blockcensus/internal/store"
)

type options struct {
	dbPath string
	runID  int64
	output string
	list   bool
}

func main() {
	var (
		opts  options
		quiet = flag.Bool("q", false, "Silence all output")
	)
	flag.StringVar(&opts.dbPath, "sqlite", "./census.db", "Census database")
	flag.Int64Var(&opts.runID, "run", 0, "Run to export (0 = latest)")
	flag.StringVar(&opts.output, "o", "-", "Report output (- = stdout; .zst/.gz compress; .parquet writes parquet)")
	flag.BoolVar(&opts.list, "list", false, "List saved runs and exit")
	flag.Parse()

	logger := logx.NewLogger(os.Stderr, logx.Level(*quiet, 1))
	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		logger.Error().Err(err).Str("sqlite", opts.dbPath).Msg("export census")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer, logger zerolog.Logger) error {
	// store.Open creates missing databases; an export must never do that.
	if _, err := os.Stat(opts.dbPath); err != nil {
		return err
	}
	db, err := store.Open(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open census database: %w", err)
	}
	defer db.Close()

	if opts.list {
		runs, err := db.Runs(ctx)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		for _, r := range runs {
			fmt.Fprintf(stdout, "%d\t%s\t%v\tfiles=%d processed=%d dropped=%d blocks=%d all_chunks=%v\n",
				r.ID, r.CreatedAt.Format(time.RFC3339), r.YRange,
				r.Files, r.Processed, r.Dropped, r.Blocks, r.AllChunks)
		}
		return nil
	}

	id := opts.runID
	if id == 0 {
		latest, err := db.LatestRun(ctx)
		if err != nil {
			return fmt.Errorf("find latest run: %w", err)
		}
		id = latest.ID
	}

	acc, r, err := db.LoadCensus(ctx, id)
	if err != nil {
		return fmt.Errorf("load run %d: %w", id, err)
	}
	logger.Info().
		Int64("run", r.ID).
		Stringer("y_range", r.YRange).
		Int("block_types", acc.Len()).
		Msg("loaded census")

	if err := report.Write(opts.output, acc); err != nil {
		return fmt.Errorf("write report %s: %w", opts.output, err)
	}
	return nil
}
