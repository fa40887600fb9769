// Package config loads, defaults, and validates the gateway configuration.
//
// # Overview
//
// Configuration is a single YAML file covering the server, identity
// defaults, rate limits, budgets, pricing, usage storage, and telemetry.
// Loading follows a fixed sequence:
//
//  1. Parse YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides (COSTGATE_SECTION_FIELD)
//  4. Validate the final configuration
//
// # Pricing Reload
//
// Pricing can live inline in the main file or in a dedicated pricing file.
// The dedicated file can be watched at runtime (fsnotify); edits swap the
// active pricing table atomically without restarting the gateway.
package config
