package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS deployments (
	base_url    TEXT PRIMARY KEY,
	product     TEXT NOT NULL DEFAULT '',
	deployment  TEXT NOT NULL,
	version     TEXT NOT NULL DEFAULT '',
	detected_at DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_deployments_detected_at
	ON deployments(detected_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
