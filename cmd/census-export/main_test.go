package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freeeve/blockcensus/internal/census"
	"github.com/freeeve/blockcensus/internal/store"
	"github.com/freeeve/blockcensus/internal/world"
)

func TestRunMissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "census.db")
	err := run(context.Background(), options{dbPath: path, output: "-"}, &bytes.Buffer{}, zerolog.Nop())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("export created %s", filepath.Dir(path))
	}
}

func TestRunExportsLatest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "census.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"minecraft:dirt", "minecraft:stone"} {
		acc, err := census.NewAccumulator(world.YRange{Start: 0, End: 2})
		if err != nil {
			t.Fatal(err)
		}
		acc.CountBlock(1, name)
		if _, err := db.SaveCensus(ctx, store.Run{Files: 1, Processed: 1, Blocks: 1}, acc); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	out := filepath.Join(dir, "census.csv")
	if err := run(ctx, options{dbPath: dbPath, output: out}, &bytes.Buffer{}, zerolog.Nop()); err != nil {
		t.Fatalf("run: %v", err)
	}
	csv, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if want := "block_type,y_0,y_1\nminecraft:stone,0,1\n"; string(csv) != want {
		t.Errorf("report = %q, want %q", csv, want)
	}

	var listing bytes.Buffer
	if err := run(ctx, options{dbPath: dbPath, list: true}, &listing, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(listing.String(), "\n"); lines != 2 {
		t.Errorf("listed %d runs, want 2:\n%s", lines, listing.String())
	}

	if err := run(ctx, options{dbPath: dbPath, runID: 99, output: out}, &bytes.Buffer{}, zerolog.Nop()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown run: err = %v, want ErrNotFound", err)
	}
}
