package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store is the sqlite-backed persistence collaborator: tool
// definitions, execution records, user-tool links, and the secret
// store.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the database and bootstraps the schema. Use
// ":memory:" for tests.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency between invocations.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Store opened")
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		utility_provider TEXT NOT NULL,
		openapi_spec TEXT NOT NULL,
		security_option TEXT NOT NULL DEFAULT '',
		secret_name_tag TEXT NOT NULL DEFAULT '',
		secret_username_tag TEXT NOT NULL DEFAULT '',
		secret_password_tag TEXT NOT NULL DEFAULT '',
		is_verified INTEGER NOT NULL DEFAULT 0,
		creator_user_id TEXT NOT NULL DEFAULT '',
		creator_organization_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		tool_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		organization_id TEXT NOT NULL DEFAULT '',
		conversation_id TEXT NOT NULL DEFAULT '',
		input TEXT NOT NULL DEFAULT '{}',
		output TEXT,
		status_code INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		error_details TEXT,
		hint TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_tool ON executions(tool_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_executions_created ON executions(created_at);

	CREATE TABLE IF NOT EXISTS user_tool_links (
		user_id TEXT NOT NULL,
		organization_id TEXT NOT NULL DEFAULT '',
		tool_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'unset',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, organization_id, tool_id)
	);

	CREATE TABLE IF NOT EXISTS secrets (
		scope TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		organization_id TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL,
		tag TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (scope, user_id, organization_id, provider, tag)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
