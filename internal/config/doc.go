// Package config loads, normalizes, and validates clipmark configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPMARK_SECRET_KEY and CLIPMARK_URL. The Config type centralizes every knob
// the backend server and the annotate command need: clip folder layout, block
// assignment, playback rate, keyboard bindings, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
