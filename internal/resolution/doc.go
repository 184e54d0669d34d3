// Package resolution turns a canonical record into a source-native ID and
// hands that ID to the content fetchers.
//
// Cache is the two-level resolution cache: a process-lifetime map in front of
// a persistent mappingstore.Store. Resolver consults it, runs the query
// builder, aggregator and scorer on a miss, and writes high-confidence matches
// through to the store in the background. Linker drives the dependent
// fetchers and, when a cached ID no longer yields content, invalidates it and
// re-resolves once.
package resolution
