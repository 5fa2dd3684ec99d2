// Package report renders a finished census.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/freeeve/blockcensus/internal/census"
)

// Format is an output format.
type Format string

const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
)

// FormatFor picks the format from the output path, ignoring a trailing
// compression extension. Anything that is not .parquet renders as CSV.
func FormatFor(path string) Format {
	base := strings.TrimSuffix(strings.TrimSuffix(path, ".zst"), ".gz")
	if strings.EqualFold(filepath.Ext(base), ".parquet") {
		return Parquet
	}
	return CSV
}

// WriteCSV writes a header row with one column per level of the census
// range, then one row per block type in lexicographic order.
func WriteCSV(w io.Writer, acc *census.Accumulator) error {
	writer := csv.NewWriter(w)

	r := acc.Range()
	header := make([]string, 0, r.Len()+1)
	header = append(header, "block_type")
	for y := r.Start; y < r.End; y++ {
		header = append(header, "y_"+strconv.Itoa(y))
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var err error
	row := make([]string, len(header))
	acc.Each(func(blockType string, counts []int64) bool {
		row[0] = blockType
		for i, n := range counts {
			row[i+1] = strconv.FormatInt(n, 10)
		}
		if err = writer.Write(row); err != nil {
			err = fmt.Errorf("write row %s: %w", blockType, err)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

// Row is one non-zero census cell in long format.
type Row struct {
	BlockType string `parquet:"block_type,dict"`
	Y         int32  `parquet:"y"`
	Count     int64  `parquet:"count"`
}

// Rows flattens the census into its non-zero cells, ordered by block type
// then level.
func Rows(acc *census.Accumulator) []Row {
	var rows []Row
	start := acc.Range().Start
	acc.Each(func(blockType string, counts []int64) bool {
		for i, n := range counts {
			if n != 0 {
				rows = append(rows, Row{BlockType: blockType, Y: int32(start + i), Count: n})
			}
		}
		return true
	})
	return rows
}

// WriteParquet writes the census in long format.
func WriteParquet(w io.Writer, acc *census.Accumulator) error {
	return parquet.Write(w, Rows(acc))
}

// Write renders acc to path in the format FormatFor picks.
func Write(path string, acc *census.Accumulator) error {
	out, err := Create(path)
	if err != nil {
		return err
	}
	switch FormatFor(path) {
	case Parquet:
		err = WriteParquet(out, acc)
	default:
		err = WriteCSV(out, acc)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
