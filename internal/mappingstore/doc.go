// Package mappingstore persists resolution mappings: which source-native ID a
// canonical record resolved to on a given content source.
//
// Two backends implement Store. SQLiteStore keeps mappings in a WAL-mode
// SQLite database and retries briefly when the database is busy. JSONStore
// keeps them in a single JSON file rewritten atomically under an advisory
// file lock, which suits small installs and tests. Writes to either backend
// are idempotent upserts keyed by (source, canonical ID).
package mappingstore
