// Package config loads, normalizes, and validates sourcelink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SOURCELINK_ANILIST_URL. The Config type centralizes every knob the resolver
// and CLI need: matching weights and thresholds, fan-out limits, the mapping
// store backend, and the content sources to resolve against.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
