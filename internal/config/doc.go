// Package config loads, normalizes, and validates cardscan configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// POKEMON_TCG_API_KEY. The Config type centralizes every knob the pipeline and
// CLI need, so data/index directories, catalog credentials, and matcher
// thresholds are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
