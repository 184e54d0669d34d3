// Package main hosts the sourcelink CLI.
//
// The CLI resolves AniList records against the configured content sources,
// lists episodes or chapters of resolved titles, and manages the persisted
// resolution mappings. Every command accepts --json for machine-readable
// output; tables are drawn only when stdout is a terminal.
package main
