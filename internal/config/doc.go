// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, .env and YAML files). It
// provides type-safe access to store, queue and worker settings while keeping
// configuration details separate from the queue and worker logic.
package config
