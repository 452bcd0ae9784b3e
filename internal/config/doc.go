// Package config loads, normalizes, and validates appctl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts and paths relative to the application directory), and reads TOML
// files. The Config type centralizes every knob the lifecycle commands need:
// where lock markers live, how the supervisor is reached, how long readiness
// polling may take, and which commands install dependencies or run the
// application directly.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and clear validation errors.
package config
