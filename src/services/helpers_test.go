package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/models"
)

const owner = "user-1"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type testEnv struct {
	path      string
	db        *sql.DB
	clock     *testClock
	ledger    *Ledger
	transfers *TransferCoordinator
	scheduler *RecurringScheduler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)}
	ledger := NewLedger(db, nil, nil)
	ledger.now = clock.Now
	return &testEnv{
		path:      path,
		db:        db,
		clock:     clock,
		ledger:    ledger,
		transfers: NewTransferCoordinator(ledger),
		scheduler: NewRecurringScheduler(ledger, 0, 0),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func (e *testEnv) wallet(t *testing.T, name, initial string) *models.Wallet {
	t.Helper()
	w, err := e.ledger.CreateWallet(context.Background(), owner, WalletInput{Name: name, Currency: "IDR", InitialBalance: dec(initial)})
	if err != nil {
		t.Fatalf("CreateWallet(%s): %v", name, err)
	}
	return w
}

// assertBalance checks the stored balance of a wallet and that it equals
// the sum of its active transactions.
func (e *testEnv) assertBalance(t *testing.T, walletID, want string) {
	t.Helper()
	ctx := context.Background()
	w, err := getWallet(ctx, e.db, owner, walletID)
	if err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if !w.Balance.Equal(dec(want)) {
		t.Errorf("wallet %s balance = %s, want %s", w.Name, w.Balance, want)
	}
	computed, err := computeBalance(ctx, e.db, walletID)
	if err != nil {
		t.Fatalf("compute balance: %v", err)
	}
	if !computed.Equal(w.Balance) {
		t.Errorf("wallet %s stored balance %s != sum of active transactions %s", w.Name, w.Balance, computed)
	}
}

func (e *testEnv) countTransactions(t *testing.T) int {
	t.Helper()
	var n int
	if err := e.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}
