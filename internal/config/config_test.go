package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/freeeve/blockcensus/internal/world"
)

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(`
threads: 6
world: high
all_chunks: true
ignore: [minecraft:air, minecraft:void_air]
output: census.csv.zst
sqlite: data/census.db
metrics: census.prom
files:
  - world/region/r.0.0.mca
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Config{
		Threads:   6,
		World:     "high",
		AllChunks: true,
		Ignore:    []string{"minecraft:air", "minecraft:void_air"},
		Output:    "census.csv.zst",
		SQLite:    "data/census.db",
		Metrics:   "census.prom",
		Files:     []string{"world/region/r.0.0.mca"},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
	r, err := cfg.Range()
	if err != nil || r != world.High {
		t.Errorf("Range = %v, %v", r, err)
	}
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if r, _ := cfg.Range(); r != world.Classic {
		t.Errorf("Range = %v, want classic", r)
	}
}

func TestParseCustomRange(t *testing.T) {
	cfg, err := Parse([]byte("world: high\ny_range: {min: -10, max: 50}\n"))
	if err != nil {
		t.Fatal(err)
	}
	r, err := cfg.Range()
	if err != nil || r != (world.YRange{Start: -10, End: 50}) {
		t.Errorf("Range = %v, %v", r, err)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "thread: 4\n",
		"bad world":      "world: nether\n",
		"negative":       "threads: -1\n",
		"wrong type":     "all_chunks: maybe\n",
		"missing max":    "y_range: {min: 0}\n",
		"empty range":    "y_range: {min: 10, max: 10}\n",
		"not a mapping":  "- a\n- b\n",
		"empty ignore":   "ignore: ['']\n",
		"malformed yaml": "threads: [\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: Parse accepted %q", name, doc)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "census.yaml")
	if err := os.WriteFile(path, []byte("world: nether\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("Load err = %v, want error naming %s", err, path)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
