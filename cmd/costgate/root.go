package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "costgate",
	Short: "Costgate - cost governance for LLM gateways",
	Long: `Costgate is a cost governance and usage attribution layer for LLM
gateways.

It admits completion requests through a token-bucket rate limiter and a
per-user budget ledger, prices every request in exact micro-USD, records
usage durably, and serves per-user and per-team chargeback reports.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
