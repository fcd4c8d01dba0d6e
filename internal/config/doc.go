// Package config loads, normalizes, and validates quickscribe's TOML
// configuration.
//
// Load resolves the config path (explicit flag, ~/.config/quickscribe, or a
// project-local quickscribe.toml), decodes it over Default(), expands paths,
// pulls secrets from the environment (a .env file is honored), and validates
// the result. Components receive the *Config and read the sections they own.
package config
