package census

import (
	"errors"
	"fmt"

	"github.com/freeeve/blockcensus/internal/world"
)

// ErrInvalidRange is returned when an accumulator is built over a range
// whose end lies before its start.
var ErrInvalidRange = errors.New("invalid vertical range")

// ErrNoFiles is returned when a run is started without input files.
var ErrNoFiles = errors.New("no region files given")

// ErrNegativeCount is returned by Set for counts below zero.
var ErrNegativeCount = errors.New("negative block count")

var errNoCounts = errors.New("worker returned no counts")

// RangeMismatchError is returned by Merge when two accumulators index
// different vertical ranges.
type RangeMismatchError struct {
	This  world.YRange
	Other world.YRange
}

func (e *RangeMismatchError) Error() string {
	return fmt.Sprintf("y ranges don't match: expected %d..%d, but got %d..%d",
		e.This.Start, e.This.End, e.Other.Start, e.Other.End)
}

// FileError is a failure confined to one region file. The file's
// contribution is dropped from the census.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
