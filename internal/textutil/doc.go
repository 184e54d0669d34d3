// Package textutil provides the title text processing shared by matching and
// metadata search.
//
// The primary use cases are:
//   - NormalizeTitle: the comparison key used by every matching signal. It
//     lowercases, folds accents, and keeps only letters and digits.
//   - CollapseSpace: trims and squeezes whitespace for query strings.
//   - Similarity: Jaro-Winkler similarity between two normalized titles, used to
//     rank metadata search results.
package textutil
