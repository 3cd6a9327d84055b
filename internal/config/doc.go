// Package config loads, normalizes, and validates threadcast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment overrides such as OPENROUTER_API_KEY. The resulting Config is
// resolved once by the CLI before any work starts and is treated as read-only
// afterwards, so batch workers can share it without synchronization.
package config
