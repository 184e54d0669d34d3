// Package matching decides which entry of a differently keyed content source
// corresponds to a canonical metadata record.
//
// The pieces compose leaf-first:
//   - BuildQueries turns a TargetRecord into a short, de-duplicated list of
//     search strings; FallbackQueries derives looser variants when the first
//     round finds nothing acceptable.
//   - Aggregator fans those queries out to a Searcher with bounded concurrency
//     and per-query timeouts, isolating failures, and merges the results by
//     source ID.
//   - Scorer sums independent signal contributions (title containment, season
//     agreement, year proximity, content type) into a signed integer and picks
//     the strictly highest candidate above the acceptance threshold.
//
// Scores are only comparable within one scoring run against one target.
// Everything here except Aggregator is pure and synchronous.
package matching
