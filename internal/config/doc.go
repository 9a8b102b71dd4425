// Package config loads, normalizes, and validates recagent configuration data.
//
// It supplies repository defaults (XDG data and state directories, per-platform
// capture backends), expands user paths including tilde shortcuts, reads TOML
// files, and honours environment fallbacks such as RECAGENT_API_URL. The Config
// type centralizes every knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
