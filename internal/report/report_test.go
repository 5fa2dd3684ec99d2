package report

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/freeeve/blockcensus/internal/census"
	"github.com/freeeve/blockcensus/internal/world"
)

func sample(t *testing.T) *census.Accumulator {
	t.Helper()
	acc, err := census.NewAccumulator(world.YRange{Start: -1, End: 2})
	if err != nil {
		t.Fatal(err)
	}
	acc.CountBlock(-1, "minecraft:stone")
	acc.CountBlock(-1, "minecraft:stone")
	acc.CountBlock(1, "minecraft:stone")
	acc.CountBlock(0, "minecraft:dirt")
	return acc
}

const sampleCSV = "block_type,y_-1,y_0,y_1\n" +
	"minecraft:dirt,0,1,0\n" +
	"minecraft:stone,2,0,1\n"

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != sampleCSV {
		t.Errorf("WriteCSV =\n%s\nwant\n%s", buf.String(), sampleCSV)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	acc, _ := census.NewAccumulator(world.YRange{Start: 0, End: 2})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, acc); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "block_type,y_0,y_1\n" {
		t.Errorf("WriteCSV = %q", buf.String())
	}
}

func TestRows(t *testing.T) {
	want := []Row{
		{"minecraft:dirt", 0, 1},
		{"minecraft:stone", -1, 2},
		{"minecraft:stone", 1, 1},
	}
	if got := Rows(sample(t)); !reflect.DeepEqual(got, want) {
		t.Errorf("Rows = %v, want %v", got, want)
	}
}

func TestFormatFor(t *testing.T) {
	cases := map[string]Format{
		"out.csv":         CSV,
		"out.csv.zst":     CSV,
		"-":               CSV,
		"out.parquet":     Parquet,
		"out.PARQUET":     Parquet,
		"out.parquet.gz":  Parquet,
		"out.parquet.zst": Parquet,
	}
	for path, want := range cases {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestWriteCompressedCSV(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"census.csv", "census.csv.zst", "census.csv.gz"} {
		path := filepath.Join(dir, name)
		if err := Write(path, sample(t)); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
		r, err := Open(path)
		if err != nil {
			t.Fatalf("Open(%s): %v", name, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != sampleCSV {
			t.Errorf("%s = %q", name, data)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "census.csv.zst"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(raw, []byte(sampleCSV)) {
		t.Error("census.csv.zst was written uncompressed")
	}
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "census.parquet")
	if err := Write(path, sample(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(rows, Rows(sample(t))) {
		t.Errorf("rows = %v", rows)
	}
}
