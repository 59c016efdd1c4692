package index

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

CREATE TABLE IF NOT EXISTS messages (
	gloda_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	header_message_id TEXT NOT NULL UNIQUE,
	snippet           TEXT NOT NULL DEFAULT '',
	indexed           INTEGER NOT NULL DEFAULT 0 CHECK(indexed IN (0, 1)),
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tags (
	key   TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_messages_indexed ON messages(indexed);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_messages_updated_at ON messages(updated_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
