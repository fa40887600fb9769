package storage

// SchemaVersion is the current usage database schema version.
const SchemaVersion = 1

// Schema creates the usage tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	user_id TEXT NOT NULL,
	team_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cost_micro_usd INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	latency_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_usage_user ON usage_records(user_id);
CREATE INDEX IF NOT EXISTS idx_usage_team ON usage_records(team_id);
CREATE INDEX IF NOT EXISTS idx_usage_outcome ON usage_records(outcome);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version, ignoring duplicates.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion reads the highest recorded schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version`
