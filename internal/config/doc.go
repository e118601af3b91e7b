// Package config loads, normalizes, and validates subalign configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and REDIS_ADDR. The Config type centralizes every knob the
// server and CLI need: alignment weights and thresholds, the embedding
// provider, the shared cache, and the feedback backend.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
