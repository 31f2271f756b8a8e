package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/username/fintrack/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// TimeLayout is used for every timestamp and date column. Values are
// written in UTC so that string order is chronological order.
const TimeLayout = time.RFC3339

const schema = `
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		balance TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(owner_id, name)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		wallet_id TEXT,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		type TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		deleted_at TEXT,
		balance_reversed INTEGER NOT NULL DEFAULT 0,
		transfer_id TEXT,
		recurring_id TEXT,
		source TEXT NOT NULL DEFAULT 'manual',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY(wallet_id) REFERENCES wallets(id)
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_owner_date ON transactions(owner_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_wallet ON transactions(wallet_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_transfer ON transactions(transfer_id);

	CREATE TABLE IF NOT EXISTS recurring_templates (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		wallet_id TEXT,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		next_due_date TEXT NOT NULL,
		last_confirmed_at TEXT,
		last_generated TEXT,
		end_date TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY(wallet_id) REFERENCES wallets(id) ON DELETE SET NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recurring_owner ON recurring_templates(owner_id);

	CREATE TABLE IF NOT EXISTS categories (
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY(owner_id, name)
	);
	`

// column is an additive migration: a column introduced after the table
// first shipped.
type column struct {
	name string
	ddl  string
}

var migrations = map[string][]column{
	"wallets": {
		{"version", "INTEGER NOT NULL DEFAULT 0"},
		{"icon", "TEXT NOT NULL DEFAULT ''"},
	},
	"transactions": {
		{"balance_reversed", "INTEGER NOT NULL DEFAULT 0"},
		{"recurring_id", "TEXT"},
		{"source", "TEXT NOT NULL DEFAULT 'manual'"},
	},
	"recurring_templates": {
		{"wallet_id", "TEXT"},
		{"last_generated", "TEXT"},
		{"active", "INTEGER NOT NULL DEFAULT 1"},
	},
}

// Open opens the SQLite database at path and brings the schema up to date.
// Write transactions take the database lock at BEGIN (_txlock=immediate),
// so a read-check-write inside one transaction cannot interleave with
// another writer.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// SQLite allows a single writer; one pooled connection keeps writers
	// queued in Go instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB opens the application database into DB.
func InitDB(databasePath string) error {
	logger.L.Info("Checking database migrations", "databasePath", databasePath)
	db, err := Open(databasePath)
	if err != nil {
		logger.L.Error("failed to initialize database", "error", err)
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	DB = db
	logger.L.Info("Database tables ensured/created.")
	return nil
}

// Migrate creates missing tables and adds columns missing from tables
// created by older versions.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	for _, table := range []string{"wallets", "transactions", "recurring_templates"} {
		if err := migrateTable(db, table, migrations[table]); err != nil {
			return err
		}
	}
	return nil
}

func migrateTable(db *sql.DB, table string, cols []column) error {
	existing, err := tableColumns(db, table)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if existing[c.name] {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, c.name, c.ddl)); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", table, c.name, err)
		}
		logger.L.Info("Added column", "table", table, "column", c.name)
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query table schema for %s: %w", table, err)
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, notnull, pk int
		var name, dataType string
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info for %s: %w", table, err)
		}
		columnExists[name] = true
	}
	return columnExists, rows.Err()
}

// WithTx runs fn inside a database transaction. The transaction is rolled
// back when fn returns an error or panics and committed otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// NullTime converts an optional time into a column value.
func NullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

// ParseNullTime converts an optional column value back into a time.
func ParseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NullString stores "" as NULL.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
