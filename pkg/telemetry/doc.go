// Package telemetry groups the observability concerns of the gateway:
// structured logging setup (telemetry/logging), Prometheus metrics
// (telemetry/metrics), and liveness/readiness checks (telemetry/health).
package telemetry
