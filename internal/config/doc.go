// Package config loads and validates the papertriage TOML configuration.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/papertriage/config.toml, then ./papertriage.toml. Missing files
// fall back to repository defaults so read-only commands still work; commands
// that reach the archive fail validation instead.
package config
