package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func insertWallet(tx *sql.Tx, id string) error {
	now := FormatTime(time.Now())
	_, err := tx.Exec(`INSERT INTO wallets (id, owner_id, name, currency, created_at, updated_at) VALUES (?, 'u1', ?, 'IDR', ?, ?)`, id, id, now, now)
	return err
}

func TestOpenCreatesSchema(t *testing.T) {
	db := openTestDB(t)
	for _, table := range []string{"wallets", "transactions", "recurring_templates", "categories"} {
		cols, err := tableColumns(db, table)
		if err != nil {
			t.Fatalf("tableColumns(%s): %v", table, err)
		}
		if !cols["owner_id"] {
			t.Errorf("%s has no owner_id column", table)
		}
	}
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil || fk != 1 {
		t.Errorf("foreign_keys = %d, %v", fk, err)
	}
}

func TestMigrateAddsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = raw.Exec(`CREATE TABLE transactions (
		id TEXT PRIMARY KEY, owner_id TEXT NOT NULL, wallet_id TEXT, amount TEXT NOT NULL,
		currency TEXT NOT NULL, type TEXT NOT NULL, category TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL, description TEXT NOT NULL DEFAULT '', deleted_at TEXT,
		transfer_id TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`)
	if err != nil {
		t.Fatal(err)
	}
	raw.Close()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open legacy db: %v", err)
	}
	defer db.Close()

	cols, err := tableColumns(db, "transactions")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{"balance_reversed", "recurring_id", "source"} {
		if !cols[c] {
			t.Errorf("column %s was not added", c)
		}
	}
	if err := Migrate(db); err != nil {
		t.Errorf("second migration: %v", err)
	}
}

func TestWithTxCommitAndRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := WithTx(ctx, db, func(tx *sql.Tx) error { return insertWallet(tx, "w1") }); err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := insertWallet(tx, "w2"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		_ = WithTx(ctx, db, func(tx *sql.Tx) error {
			if err := insertWallet(tx, "w3"); err != nil {
				return err
			}
			panic("unexpected")
		})
	}()

	if n := countRows(t, db, "wallets"); n != 1 {
		t.Errorf("wallets = %d, want 1", n)
	}
}

func TestTimeHelpers(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	in := time.Date(2025, 1, 31, 6, 30, 0, 0, jakarta)

	s := FormatTime(in)
	if s != "2025-01-30T23:30:00Z" {
		t.Errorf("FormatTime = %s", s)
	}
	back, err := ParseTime(s)
	if err != nil || !back.Equal(in) {
		t.Errorf("ParseTime = %v, %v", back, err)
	}

	if NullTime(nil) != nil || NullString("") != nil {
		t.Error("empty values must map to NULL")
	}
	got, err := ParseNullTime(sql.NullString{String: s, Valid: true})
	if err != nil || got == nil || !got.Equal(in) {
		t.Errorf("ParseNullTime = %v, %v", got, err)
	}
	if got, _ := ParseNullTime(sql.NullString{}); got != nil {
		t.Error("NULL must parse to nil")
	}
}
