// Package config loads and merges sentinel configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SENTINEL_PROVIDER, SENTINEL_MODEL, SENTINEL_FAIL_ON, etc.)
//  3. Config file ($XDG_CONFIG_HOME/sentinel/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged and validated [Config], [Save] to write one
// back, and [SetField] to update a single dotted key such as "store.backend".
package config
