// Package services defines shared utilities consumed by the resolution engine
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers, content source names,
//     and canonical metadata IDs for logging.
//   - Structured error markers plus the Wrap helper that keep the resolution
//     error taxonomy (source unavailable, no match, stale mapping, persistence
//     failure) classifiable with errors.Is.
//   - UserMessage, which turns a taxonomy error into a sentence that is safe to
//     show an end user.
//
// Use these helpers when wiring new sources or fetchers so failure handling and
// observability stay uniform across the engine.
package services
