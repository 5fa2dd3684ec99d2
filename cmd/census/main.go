package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/freeeve/blockcensus/internal/census"
	"github.com/freeeve/blockcensus/internal/config"
	"github.com/freeeve/blockcensus/internal/logx"
	"github.com/freeeve/blockcensus/internal/region"
	"github.com/freeeve/blockcensus/internal/report"
	"github.com/freeeve/blockcensus/internal/store"
	"github.com/freeeve/blockcensus/internal/world"
)

type options struct {
	cfg     config.Config
	quiet   bool
	verbose logx.Verbosity
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var (
		opts       options
		configPath string
		threads    int
		highWorlds bool
		minY, maxY int
		allChunks  bool
		ignore     string
		output     string
		sqlitePath string
		metrics    string
	)

	fs := flag.NewFlagSet("census", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: census [options] <r.x.z.mca>...")
		fmt.Fprintln(stderr, "Counts blocks per type and Y level across region files and prints a CSV report.")
		fs.PrintDefaults()
	}
	fs.StringVar(&configPath, "config", "", "YAML run configuration")
	fs.BoolVar(&opts.quiet, "q", false, "Silence all output")
	fs.BoolVar(&opts.quiet, "quiet", false, "Silence all output")
	fs.Var(&opts.verbose, "v", "Verbose mode (repeat for more: -v -v -v)")
	fs.IntVar(&threads, "t", 0, "Number of concurrent region files (0 = number of CPUs)")
	fs.IntVar(&threads, "threads", 0, "Number of concurrent region files (0 = number of CPUs)")
	fs.BoolVar(&highWorlds, "high-worlds", false, "Expect high worlds; for Minecraft 1.18 and later: -64 <= y < 320")
	fs.IntVar(&minY, "min-y", 0, "Lowest Y level counted (custom range, requires -max-y)")
	fs.IntVar(&maxY, "max-y", 0, "Y level above the highest counted (custom range, requires -min-y)")
	fs.BoolVar(&allChunks, "a", false, "Process all chunks, including those that haven't been fully generated yet")
	fs.BoolVar(&allChunks, "all-chunks", false, "Process all chunks, including those that haven't been fully generated yet")
	fs.StringVar(&ignore, "ignore", strings.Join(world.DefaultIgnore, ","), "Comma-separated block types to skip")
	fs.StringVar(&output, "o", "-", "Report output (- = stdout; .zst/.gz compress; .parquet writes parquet)")
	fs.StringVar(&sqlitePath, "sqlite", "", "Also save the census to this SQLite database")
	fs.StringVar(&metrics, "metrics", "", "Write run metrics to this Prometheus textfile")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.cfg = config.Default()
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return opts, err
		}
		opts.cfg = cfg
	}

	// Flags given on the command line override the file.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["t"] || set["threads"] {
		opts.cfg.Threads = threads
	}
	if set["high-worlds"] {
		if highWorlds {
			opts.cfg.World = "high"
		} else {
			opts.cfg.World = "classic"
		}
	}
	if set["min-y"] != set["max-y"] {
		return opts, errors.New("-min-y and -max-y must be given together")
	}
	switch {
	case set["min-y"]:
		opts.cfg.YRange = &config.YRange{Min: minY, Max: maxY}
	case set["high-worlds"]:
		// A preset chosen on the command line replaces a custom range from the file.
		opts.cfg.YRange = nil
	}
	if set["a"] || set["all-chunks"] {
		opts.cfg.AllChunks = allChunks
	}
	if set["ignore"] || opts.cfg.Ignore == nil {
		opts.cfg.Ignore = splitList(ignore)
	}
	if set["o"] {
		opts.cfg.Output = output
	}
	if set["sqlite"] {
		opts.cfg.SQLite = sqlitePath
	}
	if set["metrics"] {
		opts.cfg.Metrics = metrics
	}
	if fs.NArg() > 0 {
		opts.cfg.Files = fs.Args()
	}

	if err := opts.cfg.Validate(); err != nil {
		return opts, err
	}
	if len(opts.cfg.Files) == 0 {
		fs.Usage()
		return opts, census.ErrNoFiles
	}
	return opts, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func openRegion(path string) (census.Region, error) {
	f, err := region.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "census:", err)
		os.Exit(2)
	}
	os.Exit(run(opts, logx.NewLogger(os.Stderr, logx.Level(opts.quiet, int(opts.verbose)))))
}

func run(opts options, logger zerolog.Logger) int {
	cfg := opts.cfg
	yRange, err := cfg.Range()
	if err != nil {
		logger.Error().Err(err).Msg("resolve world height")
		return 2
	}
	logger.Info().
		Int("y_start", yRange.Start).
		Int("y_end", yRange.End).
		Msg("using Y coordinate range")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	runner, err := census.NewRunner(census.Config{
		Workers:   cfg.Threads,
		YRange:    yRange,
		AllChunks: cfg.AllChunks,
		Ignore:    cfg.Ignore,
		Opener:    census.OpenerFunc(openRegion),
		Logger:    logger,
		Metrics:   census.NewMetrics(registry),
	})
	if err != nil {
		logger.Error().Err(err).Msg("configure census")
		return 2
	}
	logger.Info().Int("threads", runner.Workers()).Msg("using worker pool")

	exit := 0
	res, err := runner.Run(ctx, cfg.Files)
	if res == nil {
		logger.Error().Err(err).Msg("census failed")
		return 1
	}
	if err != nil {
		logger.Warn().Err(err).Msg("interrupted, report is partial")
		exit = 1
	}
	for _, d := range res.Dropped {
		logger.Warn().Str("file", d.Path).Err(d.Err).Msg("region not counted")
	}
	if res.Processed == 0 {
		logger.Error().Int("files", res.Files).Msg("no region file could be processed")
		exit = 1
	}

	if err := report.Write(cfg.Output, res.Counts); err != nil {
		logger.Error().Err(err).Str("output", cfg.Output).Msg("write report")
		return 1
	}

	if cfg.SQLite != "" {
		if err := saveCensus(ctx, cfg, res); err != nil {
			logger.Error().Err(err).Str("sqlite", cfg.SQLite).Msg("save census")
			exit = 1
		} else {
			logger.Info().Str("sqlite", cfg.SQLite).Msg("saved census")
		}
	}

	if cfg.Metrics != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics, registry); err != nil {
			logger.Error().Err(err).Str("metrics", cfg.Metrics).Msg("write metrics")
			exit = 1
		}
	}
	return exit
}

func saveCensus(ctx context.Context, cfg config.Config, res *census.Result) error {
	db, err := store.Open(cfg.SQLite)
	if err != nil {
		return err
	}
	defer db.Close()
	// An interrupted run still gets saved; do not reuse the cancelled context.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	_, err = db.SaveCensus(ctx, store.RunFromResult(res, cfg.AllChunks), res.Counts)
	return err
}
