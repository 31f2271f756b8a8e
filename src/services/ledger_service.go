package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
)

const (
	ckWallets = "wallets_owner_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	maxWriteAttempts = 3
	maxBulkDrafts    = 10000
)

type WalletInput struct {
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	Color          string          `json:"color"`
	Icon           string          `json:"icon"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

// WalletUpdate changes display metadata; nil fields are left as they are.
type WalletUpdate struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

// DeleteWalletOptions chooses what happens to the transactions of a wallet
// being deleted. At most one option may be set.
type DeleteWalletOptions struct {
	ReassignTo         string `json:"reassignTo"`
	DeleteTransactions bool   `json:"deleteTransactions"`
}

type TransactionInput struct {
	WalletID    string                 `json:"walletId"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency"`
	Type        models.TransactionType `json:"type"`
	Category    string                 `json:"category"`
	Date        time.Time              `json:"date"`
	Description string                 `json:"description"`
}

type BulkCreateResult struct {
	Created      int                  `json:"created"`
	Transactions []models.Transaction `json:"transactions"`
}

// Ledger is the only writer of wallets and transactions. Every write that
// touches a balance runs in one database transaction together with the
// balance update.
type Ledger struct {
	db          *sql.DB
	categories  CategoryRegistry
	walletCache *cache.Cache

	now       func() time.Time
	newID     func() string
	insertTxn func(ctx context.Context, q querier, t *models.Transaction) error
}

func NewLedger(db *sql.DB, categories CategoryRegistry, walletCache *cache.Cache) *Ledger {
	if walletCache == nil {
		walletCache = cache.New(DefaultCacheExpiration, CacheCleanupInterval)
	}
	if categories == nil {
		categories = NewSQLCategoryRegistry(db)
	}
	return &Ledger{
		db:          db,
		categories:  categories,
		walletCache: walletCache,
		now:         time.Now,
		newID:       uuid.NewString,
		insertTxn:   insertTransaction,
	}
}

// inTx runs fn in a database transaction and retries it when a wallet row
// changed underneath it.
func (l *Ledger) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err = database.WithTx(ctx, l.db, fn)
		if !errors.Is(err, errStaleWallet) {
			return err
		}
		logger.FromContext(ctx).Warn("Retrying after concurrent wallet update", "op", op, "attempt", attempt)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (l *Ledger) timestamp() (time.Time, string) {
	now := l.now().UTC().Truncate(time.Second)
	return now, database.FormatTime(now)
}

// InvalidateUserCache drops the cached wallet list of an owner.
func (l *Ledger) InvalidateUserCache(ownerID string) {
	l.walletCache.Delete(fmt.Sprintf(ckWallets, ownerID))
}

func normalizeCurrency(field, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", invalid(field, "currency is required")
	}
	if money.GetCurrency(code) == nil {
		return "", invalid(field, "unknown currency code %q", code)
	}
	return code, nil
}

// currencyFor checks a currency against the wallet a transaction is booked on.
func currencyFor(field, code string, w *models.Wallet) (string, error) {
	if w == nil {
		return normalizeCurrency(field, code)
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return w.Currency, nil
	}
	if code != w.Currency {
		return "", invalid(field, "currency %s does not match wallet currency %s", code, w.Currency)
	}
	return code, nil
}

func walletNameTaken(ctx context.Context, q querier, ownerID, name, exceptID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets WHERE owner_id = ? AND name = ? AND id != ?`, ownerID, name, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check wallet name: %w", err)
	}
	return n > 0, nil
}

func (l *Ledger) CreateWallet(ctx context.Context, ownerID string, in WalletInput) (*models.Wallet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "wallet name is required")
	}
	currency, err := normalizeCurrency("currency", in.Currency)
	if err != nil {
		return nil, err
	}

	var wallet *models.Wallet
	err = l.inTx(ctx, "create wallet", func(tx *sql.Tx) error {
		taken, err := walletNameTaken(ctx, tx, ownerID, name, "")
		if err != nil {
			return err
		}
		if taken {
			return conflict("a wallet named %q already exists", name)
		}

		now, nowStr := l.timestamp()
		w := &models.Wallet{
			ID: l.newID(), OwnerID: ownerID, Name: name, Currency: currency,
			Color: in.Color, Icon: in.Icon, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now,
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO wallets (`+walletColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID, w.OwnerID, w.Name, w.Currency, w.Color, w.Icon, w.Balance.String(), w.Version, nowStr, nowStr)
		if err != nil {
			return fmt.Errorf("failed to insert wallet: %w", err)
		}

		if !in.InitialBalance.IsZero() {
			opening := &models.Transaction{
				ID: l.newID(), OwnerID: ownerID, WalletID: w.ID, Amount: in.InitialBalance.Abs(),
				Currency: currency, Type: models.TypeIncome, Category: models.InitialBalanceCategory,
				Date: models.DayOf(now), Description: models.InitialBalanceCategory,
				State: models.ActiveState(), Source: models.SourceOpening, CreatedAt: now, UpdatedAt: now,
			}
			if in.InitialBalance.IsNegative() {
				opening.Type = models.TypeExpense
			}
			if err := l.insertTxn(ctx, tx, opening); err != nil {
				return err
			}
			if err := setWalletBalance(ctx, tx, w, opening.SignedAmount(), nowStr); err != nil {
				return err
			}
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.InvalidateUserCache(ownerID)
	logger.FromContext(ctx).Info("Wallet created", "ownerID", ownerID, "walletID", wallet.ID, "currency", currency)
	return wallet, nil
}

func (l *Ledger) UpdateWallet(ctx context.Context, ownerID, id string, upd WalletUpdate) (*models.Wallet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var wallet *models.Wallet
	err := l.inTx(ctx, "update wallet", func(tx *sql.Tx) error {
		w, err := getWallet(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return invalid("name", "wallet name is required")
			}
			taken, err := walletNameTaken(ctx, tx, ownerID, name, id)
			if err != nil {
				return err
			}
			if taken {
				return conflict("a wallet named %q already exists", name)
			}
			w.Name = name
		}
		if upd.Color != nil {
			w.Color = *upd.Color
		}
		if upd.Icon != nil {
			w.Icon = *upd.Icon
		}
		now, nowStr := l.timestamp()
		w.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `UPDATE wallets SET name = ?, color = ?, icon = ?, version = version + 1, updated_at = ? WHERE id = ?`,
			w.Name, w.Color, w.Icon, nowStr, w.ID)
		if err != nil {
			return fmt.Errorf("failed to update wallet %s: %w", id, err)
		}
		w.Version++
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.InvalidateUserCache(ownerID)
	return wallet, nil
}

func (l *Ledger) GetWallet(ctx context.Context, ownerID, id string) (*models.Wallet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return getWallet(ctx, l.db, ownerID, id)
}

func (l *Ledger) ListWallets(ctx context.Context, ownerID string) ([]models.Wallet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	key := fmt.Sprintf(ckWallets, ownerID)
	// Other processes write to the same database, so a cached list is only
	// served while the owner's wallet versions are unchanged.
	fingerprint, err := walletFingerprint(ctx, l.db, ownerID)
	if err != nil {
		return nil, err
	}
	if cached, found := l.walletCache.Get(key); found {
		if entry := cached.(walletCacheEntry); entry.fingerprint == fingerprint {
			logger.FromContext(ctx).Debug("Cache hit for wallets", "ownerID", ownerID)
			return append([]models.Wallet(nil), entry.wallets...), nil
		}
		logger.FromContext(ctx).Debug("Stale wallet cache", "ownerID", ownerID)
	}
	wallets, err := listWallets(ctx, l.db, ownerID)
	if err != nil {
		return nil, err
	}
	l.walletCache.Set(key, walletCacheEntry{fingerprint: fingerprint, wallets: wallets}, cache.DefaultExpiration)
	return append([]models.Wallet(nil), wallets...), nil
}

type walletCacheEntry struct {
	fingerprint string
	wallets     []models.Wallet
}

// walletFingerprint identifies the current state of an owner's wallets. Every
// wallet write bumps the row version.
func walletFingerprint(ctx context.Context, q querier, ownerID string) (string, error) {
	var fp string
	err := q.QueryRowContext(ctx, `SELECT COALESCE(GROUP_CONCAT(id || ':' || version, ','), '')
		FROM (SELECT id, version FROM wallets WHERE owner_id = ? ORDER BY id)`, ownerID).Scan(&fp)
	if err != nil {
		return "", fmt.Errorf("failed to read wallet versions: %w", err)
	}
	return fp, nil
}

// DeleteWallet removes a wallet. The owner's last wallet cannot be deleted,
// and a wallet with transactions needs either a reassignment target or an
// explicit request to delete the transactions.
func (l *Ledger) DeleteWallet(ctx context.Context, ownerID, id string, opts DeleteWalletOptions) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if opts.ReassignTo != "" && opts.DeleteTransactions {
		return invalid("reassignTo", "choose either reassignment or deleting the transactions, not both")
	}
	if opts.ReassignTo == id {
		return invalid("reassignTo", "cannot reassign transactions to the wallet being deleted")
	}

	var moved, removed int
	err := l.inTx(ctx, "delete wallet", func(tx *sql.Tx) error {
		moved, removed = 0, 0
		w, err := getWallet(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		var wallets int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets WHERE owner_id = ?`, ownerID).Scan(&wallets); err != nil {
			return fmt.Errorf("failed to count wallets: %w", err)
		}
		if wallets <= 1 {
			return conflict("cannot delete the only wallet")
		}
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE wallet_id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("failed to count transactions of wallet %s: %w", id, err)
		}

		_, nowStr := l.timestamp()
		switch {
		case count == 0:
		case opts.ReassignTo != "":
			if err := reassignTransactions(ctx, tx, ownerID, w, opts.ReassignTo, nowStr); err != nil {
				return err
			}
			moved = count
		case opts.DeleteTransactions:
			n, err := deleteWalletTransactions(ctx, tx, ownerID, id, nowStr)
			if err != nil {
				return err
			}
			removed = n
		default:
			return &WalletHasTransactionsError{WalletID: id, TransactionCount: count}
		}

		if opts.ReassignTo == "" {
			if _, err := tx.ExecContext(ctx, `UPDATE recurring_templates SET wallet_id = NULL WHERE wallet_id = ?`, id); err != nil {
				return fmt.Errorf("failed to detach recurring transactions: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete wallet %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.InvalidateUserCache(ownerID)
	logger.FromContext(ctx).Info("Wallet deleted", "ownerID", ownerID, "walletID", id,
		"reassignedTo", opts.ReassignTo, "moved", moved, "deletedTransactions", removed)
	return nil
}

func reassignTransactions(ctx context.Context, tx *sql.Tx, ownerID string, from *models.Wallet, toID, nowStr string) error {
	to, err := getWallet(ctx, tx, ownerID, toID)
	if err != nil {
		return err
	}
	if to.Currency != from.Currency {
		return invalid("reassignTo", "target wallet currency %s does not match %s", to.Currency, from.Currency)
	}
	var linked int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions a JOIN transactions b ON a.transfer_id = b.id
		WHERE a.wallet_id = ? AND b.wallet_id = ?`, from.ID, to.ID).Scan(&linked)
	if err != nil {
		return fmt.Errorf("failed to check transfers between wallets: %w", err)
	}
	if linked > 0 {
		return conflict("%d transfers link wallet %s and %s; reassigning would put both legs in one wallet", linked, from.ID, to.ID)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE transactions SET wallet_id = ?, updated_at = ? WHERE wallet_id = ?`, to.ID, nowStr, from.ID); err != nil {
		return fmt.Errorf("failed to reassign transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE recurring_templates SET wallet_id = ? WHERE wallet_id = ?`, to.ID, from.ID); err != nil {
		return fmt.Errorf("failed to reassign recurring transactions: %w", err)
	}
	_, _, err = recomputeWallet(ctx, tx, ownerID, to.ID, nowStr)
	return err
}

// deleteWalletTransactions removes every row of a wallet together with the
// other leg of its transfers, then recomputes the wallets those legs were on.
func deleteWalletTransactions(ctx context.Context, tx *sql.Tx, ownerID, walletID, nowStr string) (int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT b.id, COALESCE(b.wallet_id, '') FROM transactions a JOIN transactions b ON a.transfer_id = b.id
		WHERE a.wallet_id = ? AND COALESCE(b.wallet_id, '') != ?`, walletID, walletID)
	if err != nil {
		return 0, fmt.Errorf("failed to find transfer partners: %w", err)
	}
	var partnerIDs []string
	affected := map[string]bool{}
	for rows.Next() {
		var pid, pwallet string
		if err := rows.Scan(&pid, &pwallet); err != nil {
			rows.Close()
			return 0, err
		}
		partnerIDs = append(partnerIDs, pid)
		if pwallet != "" {
			affected[pwallet] = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, pid := range partnerIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, pid); err != nil {
			return 0, fmt.Errorf("failed to delete transfer partner %s: %w", pid, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE wallet_id = ?`, walletID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions of wallet %s: %w", walletID, err)
	}
	n, _ := res.RowsAffected()

	for wid := range affected {
		if _, _, err := recomputeWallet(ctx, tx, ownerID, wid, nowStr); err != nil {
			return 0, err
		}
	}
	return int(n) + len(partnerIDs), nil
}

// ReconcileWallet recomputes a wallet balance from its active transactions
// and stores the result when it differs.
func (l *Ledger) ReconcileWallet(ctx context.Context, ownerID, id string) (*models.ReconcileReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	var report *models.ReconcileReport
	err := l.inTx(ctx, "reconcile wallet", func(tx *sql.Tx) error {
		_, nowStr := l.timestamp()
		stored, computed, err := recomputeWallet(ctx, tx, ownerID, id, nowStr)
		if err != nil {
			return err
		}
		drift := stored.Sub(computed)
		report = &models.ReconcileReport{WalletID: id, Stored: stored, Computed: computed, Drift: drift, Fixed: !drift.IsZero()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if report.Fixed {
		l.InvalidateUserCache(ownerID)
		logger.FromContext(ctx).Warn("Wallet balance drift corrected", "ownerID", ownerID, "walletID", id,
			"stored", report.Stored.String(), "computed", report.Computed.String())
	}
	return report, nil
}

func (l *Ledger) CreateTransaction(ctx context.Context, ownerID string, in TransactionInput) (*models.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if in.Type != models.TypeIncome && in.Type != models.TypeExpense {
		return nil, invalid("type", "type must be income or expense; use a transfer to move money between wallets")
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "amount must be greater than zero")
	}
	category := strings.TrimSpace(in.Category)

	var created *models.Transaction
	err := l.inTx(ctx, "create transaction", func(tx *sql.Tx) error {
		if err := l.categories.EnsureCategories(ctx, tx, ownerID, []string{category}); err != nil {
			return err
		}
		var w *models.Wallet
		if in.WalletID != "" {
			var err error
			if w, err = getWallet(ctx, tx, ownerID, in.WalletID); err != nil {
				return err
			}
		}
		currency, err := currencyFor("currency", in.Currency, w)
		if err != nil {
			return err
		}
		now, nowStr := l.timestamp()
		date := in.Date
		if date.IsZero() {
			date = models.DayOf(now)
		}
		t := &models.Transaction{
			ID: l.newID(), OwnerID: ownerID, WalletID: in.WalletID, Amount: in.Amount, Currency: currency,
			Type: in.Type, Category: category, Date: date.UTC(), Description: strings.TrimSpace(in.Description),
			State: models.ActiveState(), Source: models.SourceManual, CreatedAt: now, UpdatedAt: now,
		}
		if err := l.insertTxn(ctx, tx, t); err != nil {
			return err
		}
		if err := applyDelta(ctx, tx, ownerID, t.WalletID, t.SignedAmount(), nowStr); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.InvalidateUserCache(ownerID)
	return created, nil
}

func (l *Ledger) GetTransaction(ctx context.Context, ownerID, id string) (*models.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return getTransaction(ctx, l.db, ownerID, id)
}

func (l *Ledger) ListTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]models.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return listTransactions(ctx, l.db, ownerID, f)
}

// DeleteTransaction tombstones a transaction and reverses its balance
// effect. Transfer legs are deleted together with their partner.
func (l *Ledger) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	err := l.inTx(ctx, "delete transaction", func(tx *sql.Tx) error {
		t, err := getTransaction(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if t.IsTransfer() {
			return l.deletePair(ctx, tx, ownerID, t)
		}
		now, nowStr := l.timestamp()
		state, err := t.State.Delete(now, t.WalletID != "")
		if err != nil {
			return conflict("transaction %s is already deleted", id)
		}
		if err := saveState(ctx, tx, t, state, nowStr); err != nil {
			return err
		}
		if state.Reversed() {
			return applyDelta(ctx, tx, ownerID, t.WalletID, t.SignedAmount().Neg(), nowStr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.InvalidateUserCache(ownerID)
	return nil
}

// RestoreTransaction clears a tombstone and re-applies whatever the delete
// reversed.
func (l *Ledger) RestoreTransaction(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	err := l.inTx(ctx, "restore transaction", func(tx *sql.Tx) error {
		t, err := getTransaction(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if t.IsTransfer() {
			return l.restorePair(ctx, tx, ownerID, t)
		}
		reversed := t.State.Reversed()
		state, err := t.State.Restore()
		if err != nil {
			return conflict("transaction %s is not deleted", id)
		}
		_, nowStr := l.timestamp()
		if err := saveState(ctx, tx, t, state, nowStr); err != nil {
			return err
		}
		if reversed {
			return applyDelta(ctx, tx, ownerID, t.WalletID, t.SignedAmount(), nowStr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.InvalidateUserCache(ownerID)
	return nil
}

func validateDraft(i int, d models.ParsedTransactionDraft) error {
	field := func(name string) string { return fmt.Sprintf("transactions[%d].%s", i, name) }
	if d.Date.IsZero() {
		return invalid(field("date"), "date is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return invalid(field("description"), "description is required")
	}
	if !d.Amount.IsPositive() {
		return invalid(field("amount"), "amount must be greater than zero")
	}
	if d.Type != models.TypeIncome && d.Type != models.TypeExpense {
		return invalid(field("type"), "type must be income or expense")
	}
	return nil
}

// BulkCreateTransactions stores reviewed statement drafts. Either every
// draft is stored and the wallet balance moves by their sum, or nothing is.
func (l *Ledger) BulkCreateTransactions(ctx context.Context, ownerID, walletID string, drafts []models.ParsedTransactionDraft) (*BulkCreateResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, invalid("transactions", "at least one transaction is required")
	}
	if len(drafts) > maxBulkDrafts {
		return nil, invalid("transactions", "at most %d transactions can be created at once", maxBulkDrafts)
	}
	var categories []string
	for i, d := range drafts {
		if err := validateDraft(i, d); err != nil {
			return nil, err
		}
		categories = append(categories, d.Category)
	}

	var result *BulkCreateResult
	err := l.inTx(ctx, "bulk create transactions", func(tx *sql.Tx) error {
		if err := l.categories.EnsureCategories(ctx, tx, ownerID, categories); err != nil {
			return err
		}
		var w *models.Wallet
		if walletID != "" {
			var err error
			if w, err = getWallet(ctx, tx, ownerID, walletID); err != nil {
				return err
			}
		}
		now, nowStr := l.timestamp()
		res := &BulkCreateResult{Transactions: make([]models.Transaction, 0, len(drafts))}
		delta := decimal.Zero
		for i, d := range drafts {
			currency, err := currencyFor(fmt.Sprintf("transactions[%d].currency", i), d.Currency, w)
			if err != nil {
				return err
			}
			t := models.Transaction{
				ID: l.newID(), OwnerID: ownerID, WalletID: walletID, Amount: d.Amount, Currency: currency,
				Type: d.Type, Category: strings.TrimSpace(d.Category), Date: d.Date.UTC(),
				Description: strings.TrimSpace(d.Description), State: models.ActiveState(),
				Source: models.SourceImport, CreatedAt: now, UpdatedAt: now,
			}
			if err := l.insertTxn(ctx, tx, &t); err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
			delta = delta.Add(t.SignedAmount())
			res.Transactions = append(res.Transactions, t)
		}
		if err := applyDelta(ctx, tx, ownerID, walletID, delta, nowStr); err != nil {
			return err
		}
		res.Created = len(res.Transactions)
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.InvalidateUserCache(ownerID)
	logger.FromContext(ctx).Info("Transactions imported", "ownerID", ownerID, "walletID", walletID, "count", result.Created)
	return result, nil
}
