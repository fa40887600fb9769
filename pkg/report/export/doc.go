// Package export renders chargeback reports for billing ingest and
// operator consumption: CSV for spreadsheets and billing pipelines, JSON
// for programmatic consumers, and an aligned text table for the CLI.
package export
