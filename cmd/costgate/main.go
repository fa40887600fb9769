// Costgate is a cost governance and usage attribution layer for LLM
// gateways.
//
// It fronts LLM completion traffic with:
//   - Token-bucket rate limiting per user, team, or globally
//   - Per-user budget reservation, commit, and rollback
//   - Exact fixed-point cost accounting per (provider, model)
//   - Durable usage recording and chargeback reporting
//
// Usage:
//
//	# Start the gateway with default configuration
//	costgate run
//
//	# Start with a custom configuration file
//	costgate run --config /etc/costgate/config.yaml
//
//	# Render the chargeback report from recorded usage
//	costgate report --format table
//
//	# Show version information
//	costgate version
package main

func main() {
	Execute()
}
