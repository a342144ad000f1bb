// Package config loads, normalizes, and validates chapterize configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CHAPTERIZE_BUNDLE_DIR. The Config type centralizes every knob the CLI needs,
// from tool locations and chapter parsing policy to batch retry timing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical modes, and clear validation errors.
package config
