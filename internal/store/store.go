package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"

	"github.com/roach88/shopfloor/internal/querysql"
	"github.com/roach88/shopfloor/internal/schema"
)

// driverName is go-sqlite3 with the case-folding function registered on
// every connection.
const driverName = "sqlite3_shopfloor"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(querysql.CaseFoldFunc, caseFold, true)
		},
	})
}

func caseFold(s string) string {
	return cases.Fold().String(s)
}

// Schema version tracking:
// 0 - Tables created from the entity model
// 1 - Indexes on navigation foreign keys
const currentSchemaVersion = 1

// Store is the SQLite-backed storage collaborator for one entity model.
type Store struct {
	db    *sql.DB
	model *schema.Model
}

// Open creates or opens a SQLite database at the given path and makes
// sure it holds the tables model needs.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Open is idempotent.
func Open(path string, model *schema.Model) (*Store, error) {
	if model == nil {
		return nil, fmt.Errorf("open store: nil model")
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db, model); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, model: model}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Model returns the entity model the store was opened with.
func (s *Store) Model() *schema.Model {
	return s.model
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates missing tables and runs migrations.
func applySchema(db *sql.DB, model *schema.Model) error {
	ddl := DDL(model)
	for _, stmt := range ddl.Tables {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	if err := runMigrations(db, ddl); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB, ddl Schema) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db, ddl); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes every navigation foreign key.
func migrateToV1(db *sql.DB, ddl Schema) error {
	for _, stmt := range ddl.Indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// set resolves an entity set name.
func (s *Store) set(name string) (*schema.EntitySet, error) {
	set, ok := s.model.Set(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntitySet, name)
	}
	return set, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
