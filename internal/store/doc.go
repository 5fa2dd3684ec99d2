// Package store persists finished censuses in a SQLite database.
//
// Tables:
//   - runs: one row per saved census (range, policy, file and block totals)
//   - block_counts: the non-zero (block type, level, count) cells of a run
//
// A census is written in a single transaction and can be rebuilt into an
// accumulator over the same range with LoadCensus.
package store
