package census

import (
	"github.com/rs/zerolog"

	"github.com/freeeve/blockcensus/internal/world"
)

// FileResult is what a worker hands to the reducer for one region file:
// either Counts or Err is set.
type FileResult struct {
	Path   string
	Counts *Accumulator
	Stats  FileStats
	Err    error
}

// Result is the outcome of a run.
type Result struct {
	Counts    *Accumulator // merged census over the run's range
	Files     int          // results received
	Processed int          // files merged into Counts
	Dropped   []*FileError // files whose contribution was discarded
	Stats     FileStats    // sums over merged files
}

// Reducer folds FileResults into one global accumulator. It is not safe for
// concurrent use; a run feeds it from a single goroutine.
type Reducer struct {
	log     zerolog.Logger
	metrics *Metrics
	res     Result
}

// NewReducer returns a reducer whose total covers r.
func NewReducer(r world.YRange, log zerolog.Logger, metrics *Metrics) (*Reducer, error) {
	total, err := NewAccumulator(r)
	if err != nil {
		return nil, err
	}
	return &Reducer{
		log:     log,
		metrics: metrics,
		res:     Result{Counts: total},
	}, nil
}

// Add merges one file result. A failed file, or one whose accumulator covers
// a different range, is logged and dropped; the returned *FileError
// describes the drop and is also recorded in the result.
func (rd *Reducer) Add(fr FileResult) *FileError {
	rd.res.Files++
	err := fr.Err
	switch {
	case err != nil:
	case fr.Counts == nil:
		err = errNoCounts
	default:
		err = rd.res.Counts.Merge(fr.Counts)
	}
	if err != nil {
		ferr := &FileError{Path: fr.Path, Err: err}
		rd.res.Dropped = append(rd.res.Dropped, ferr)
		rd.metrics.fileDropped()
		rd.log.Error().Err(err).Str("file", fr.Path).Msg("dropping region contribution")
		return ferr
	}
	rd.res.Processed++
	rd.res.Stats.add(fr.Stats)
	rd.metrics.fileMerged(fr.Stats)
	return nil
}

// Result returns the reduced result. The accumulator in it must be treated
// as read-only once the run is over.
func (rd *Reducer) Result() *Result {
	return &rd.res
}
