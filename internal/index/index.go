// Package index is the local message content index: a SQLite database
// that assigns a stable numeric identity per logical message, caches
// body snippets, and records which messages have been content-indexed.
// It plays the role the host's indexing engine plays for the enrichment
// pipeline: the source of gloda identities and of the needs-full-body
// decision.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mailpane/conversations/internal/model"
)

// ErrNotIndexed is returned when a header message id has no index
// entry yet.
var ErrNotIndexed = errors.New("message not in index")

// Entry is one indexed logical message.
type Entry struct {
	GlodaID         int64  `db:"gloda_id"`
	HeaderMessageID string `db:"header_message_id"`
	Snippet         string `db:"snippet"`
	Indexed         bool
}

// Index wraps the SQLite-backed message index.
type Index struct {
	db *sqlx.DB
}

// Open opens (or creates) the index database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func Open(dbPath string) (*Index, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening index db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return idx, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (x *Index) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := x.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = x.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := x.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Assign returns the index identity for a header message id, creating
// one if the message has never been seen. Assign is idempotent: every
// physical copy of a logical message resolves to the same identity.
func (x *Index) Assign(ctx context.Context, headerMessageID string) (int64, error) {
	if strings.TrimSpace(headerMessageID) == "" {
		return 0, fmt.Errorf("header message id must not be empty")
	}

	_, err := x.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (header_message_id, updated_at)
		VALUES (?, ?)`,
		headerMessageID, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("assigning index id for %s: %w", headerMessageID, err)
	}

	var id int64
	err = x.db.GetContext(ctx, &id,
		"SELECT gloda_id FROM messages WHERE header_message_id = ?",
		headerMessageID,
	)
	if err != nil {
		return 0, fmt.Errorf("reading index id for %s: %w", headerMessageID, err)
	}

	return id, nil
}

// SetSnippet stores the body snippet for a message and marks it
// indexed. Messages without an entry are assigned one first.
func (x *Index) SetSnippet(ctx context.Context, headerMessageID, snippet string) error {
	if _, err := x.Assign(ctx, headerMessageID); err != nil {
		return err
	}

	_, err := x.db.ExecContext(ctx, `
		UPDATE messages SET snippet = ?, indexed = 1, updated_at = ?
		WHERE header_message_id = ?`,
		snippet, time.Now().UTC(), headerMessageID,
	)
	if err != nil {
		return fmt.Errorf("storing snippet for %s: %w", headerMessageID, err)
	}

	return nil
}

// Lookup returns the index entry for a header message id, or
// ErrNotIndexed when the message has never been assigned.
func (x *Index) Lookup(ctx context.Context, headerMessageID string) (*Entry, error) {
	row := x.db.QueryRowxContext(ctx, `
		SELECT gloda_id, header_message_id, snippet, indexed
		FROM messages WHERE header_message_id = ?`,
		headerMessageID,
	)

	var (
		e       Entry
		indexed int
	)
	err := row.Scan(&e.GlodaID, &e.HeaderMessageID, &e.Snippet, &indexed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up %s: %w", headerMessageID, ErrNotIndexed)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning index row: %w", err)
	}
	e.Indexed = indexed != 0

	return &e, nil
}

// Tags retrieves all tag definitions ordered by key.
func (x *Index) Tags(ctx context.Context) ([]model.Tag, error) {
	rows, err := x.db.QueryxContext(ctx,
		"SELECT key, name, color FROM tags ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.Key, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// UpsertTag inserts or replaces a tag definition.
func (x *Index) UpsertTag(ctx context.Context, tag model.Tag) error {
	if strings.TrimSpace(tag.Key) == "" {
		return fmt.Errorf("tag key must not be empty")
	}

	_, err := x.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO tags (key, name, color) VALUES (?, ?, ?)",
		tag.Key, tag.Name, tag.Color,
	)
	if err != nil {
		return fmt.Errorf("upserting tag %s: %w", tag.Key, err)
	}
	return nil
}

// DeleteTag removes a tag definition by key.
func (x *Index) DeleteTag(ctx context.Context, key string) error {
	result, err := x.db.ExecContext(ctx, "DELETE FROM tags WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting tag %s: %w", key, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("tag %s not found", key)
	}
	return nil
}
