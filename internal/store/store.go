package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a database from version-1 to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order on databases whose user_version is below their
// version. New databases run them too; every statement is idempotent.
var migrations = []migration{
	{
		version: 1,
		name:    "index journal by collection",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_changes_owner ON changes(relation, owner, seq)`,
	},
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = migrations[len(migrations)-1].version

// Store persists collection memberships and the change journal in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

type openConfig struct {
	busyTimeout time.Duration
	logger      *slog.Logger
}

// WithBusyTimeout sets how long a write waits on a locked database.
// Default: 5s.
func WithBusyTimeout(d time.Duration) OpenOption {
	return func(c *openConfig) {
		c.busyTimeout = d
	}
}

// WithStoreLogger sets the logger used for migrations. Default: discard.
func WithStoreLogger(logger *slog.Logger) OpenOption {
	return func(c *openConfig) {
		c.logger = logger
	}
}

// Open creates or opens the database at path and brings its schema up to
// SchemaVersion. Pass ":memory:" for a throwaway database.
//
// The connection runs in WAL mode with synchronous=NORMAL and foreign keys
// on. The pool is capped at one connection: SQLite has a single writer,
// and an in-memory database lives only as long as its connection.
func Open(path string, opts ...OpenOption) (*Store, error) {
	cfg := openConfig{
		busyTimeout: 5 * time.Second,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: cfg.logger.With("db", path)}
	for _, p := range pragmas(cfg.busyTimeout) {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type pragma struct {
	name  string
	value string // as set
	want  string // as read back
}

func pragmas(busyTimeout time.Duration) []pragma {
	ms := fmt.Sprint(busyTimeout.Milliseconds())
	return []pragma{
		{"journal_mode", "WAL", "wal"},
		{"synchronous", "NORMAL", "1"},
		{"busy_timeout", ms, ms},
		{"foreign_keys", "ON", "1"},
	}
}

// migrate applies pending migrations, each in its own transaction together
// with its user_version bump.
func (s *Store) migrate() error {
	version, err := s.userVersion()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		s.logger.Debug("applied migration", "version", m.version, "name", m.name)
	}
	return nil
}

func (s *Store) userVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// Check reports whether the connection still runs with the settings Open
// applied and the schema is fully migrated. In-memory databases report
// journal_mode "memory" and skip that check.
func (s *Store) Check(ctx context.Context) error {
	for _, p := range pragmas(0) {
		var got string
		if err := s.db.QueryRowContext(ctx, "PRAGMA "+p.name).Scan(&got); err != nil {
			return fmt.Errorf("query %s: %w", p.name, err)
		}
		switch {
		case p.name == "busy_timeout":
			if got == "0" {
				return fmt.Errorf("busy_timeout is not set")
			}
		case p.name == "journal_mode" && got == "memory":
		case got != p.want:
			return fmt.Errorf("%s = %q, expected %q", p.name, got, p.want)
		}
	}

	version, err := s.userVersion()
	if err != nil {
		return err
	}
	if version != SchemaVersion {
		return fmt.Errorf("schema version %d, expected %d", version, SchemaVersion)
	}
	return nil
}
