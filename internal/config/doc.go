// Package config loads service settings from defaults, an optional YAML file and
// EVENTHOST_ environment variables, and validates them before any component
// is constructed.
package config
