package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
)

const (
	DefaultBackfillMaxOccurrences = 366
	DefaultBackfillTimeout        = 2 * time.Minute
)

type RecurringInput struct {
	WalletID    string                 `json:"walletId"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency"`
	Category    string                 `json:"category"`
	Type        models.TransactionType `json:"type"`
	Description string                 `json:"description"`
	Frequency   models.Frequency       `json:"frequency"`
	StartDate   time.Time              `json:"startDate"`
	EndDate     *time.Time             `json:"endDate"`
}

// RecurringUpdate changes a template; nil fields are left as they are.
type RecurringUpdate struct {
	WalletID    *string           `json:"walletId"`
	Amount      *decimal.Decimal  `json:"amount"`
	Category    *string           `json:"category"`
	Description *string           `json:"description"`
	Frequency   *models.Frequency `json:"frequency"`
	StartDate   *time.Time        `json:"startDate"`
	EndDate     *time.Time        `json:"endDate"`
	ClearEnd    bool              `json:"clearEndDate"`
	Active      *bool             `json:"active"`
}

type ConfirmResult struct {
	Transaction models.Transaction       `json:"transaction"`
	Template    models.RecurringTemplate `json:"template"`
}

// TemplateBackfill reports what one backfill run did for one template.
type TemplateBackfill struct {
	TemplateID  string    `json:"templateId"`
	OwnerID     string    `json:"ownerId"`
	Generated   int       `json:"generated"`
	Truncated   bool      `json:"truncated"`
	NextDueDate time.Time `json:"nextDueDate"`
	Error       string    `json:"error,omitempty"`
}

type BackfillReport struct {
	Templates []TemplateBackfill `json:"templates"`
	Generated int                `json:"generated"`
	Truncated bool               `json:"truncated"`
}

func (r *BackfillReport) add(t TemplateBackfill) {
	r.Templates = append(r.Templates, t)
	r.Generated += t.Generated
	r.Truncated = r.Truncated || t.Truncated
}

// RecurringScheduler keeps recurring templates and turns their occurrences
// into transactions, either one at a time on confirmation or in bulk.
type RecurringScheduler struct {
	ledger         *Ledger
	maxOccurrences int
	timeout        time.Duration
}

func NewRecurringScheduler(ledger *Ledger, maxOccurrences int, timeout time.Duration) *RecurringScheduler {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultBackfillMaxOccurrences
	}
	if timeout <= 0 {
		timeout = DefaultBackfillTimeout
	}
	return &RecurringScheduler{ledger: ledger, maxOccurrences: maxOccurrences, timeout: timeout}
}

const templateColumns = `id, owner_id, wallet_id, amount, currency, category, type, description, frequency,
	start_date, next_due_date, last_confirmed_at, last_generated, end_date, active, created_at, updated_at`

func scanTemplate(row rowScanner) (*models.RecurringTemplate, error) {
	var t models.RecurringTemplate
	var walletID, lastConfirmed, lastGenerated, endDate sql.NullString
	var amount, typ, freq, start, next, createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.OwnerID, &walletID, &amount, &t.Currency, &t.Category, &typ, &t.Description, &freq,
		&start, &next, &lastConfirmed, &lastGenerated, &endDate, &t.Active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.WalletID = walletID.String
	t.Type = models.TransactionType(typ)
	t.Frequency = models.Frequency(freq)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount for template %s: %w", t.ID, err)
	}
	for _, f := range []struct {
		src string
		dst *time.Time
	}{{start, &t.StartDate}, {next, &t.NextDueDate}, {createdAt, &t.CreatedAt}, {updatedAt, &t.UpdatedAt}} {
		if *f.dst, err = database.ParseTime(f.src); err != nil {
			return nil, err
		}
	}
	if t.LastConfirmedAt, err = database.ParseNullTime(lastConfirmed); err != nil {
		return nil, err
	}
	if t.LastGenerated, err = database.ParseNullTime(lastGenerated); err != nil {
		return nil, err
	}
	if t.EndDate, err = database.ParseNullTime(endDate); err != nil {
		return nil, err
	}
	return &t, nil
}

func getTemplate(ctx context.Context, q querier, ownerID, id string) (*models.RecurringTemplate, error) {
	row := q.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM recurring_templates WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "recurring transaction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring transaction %s: %w", id, err)
	}
	return t, nil
}

func listTemplates(ctx context.Context, q querier, ownerID string, activeOnly bool) ([]models.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_templates WHERE owner_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	rows, err := q.QueryContext(ctx, query+` ORDER BY next_due_date, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring transactions: %w", err)
	}
	defer rows.Close()

	templates := []models.RecurringTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring transaction: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func saveTemplate(ctx context.Context, q querier, t *models.RecurringTemplate) error {
	_, err := q.ExecContext(ctx, `UPDATE recurring_templates SET wallet_id = ?, amount = ?, category = ?, description = ?,
		frequency = ?, start_date = ?, next_due_date = ?, last_confirmed_at = ?, last_generated = ?, end_date = ?,
		active = ?, updated_at = ? WHERE id = ?`,
		database.NullString(t.WalletID), t.Amount.String(), t.Category, t.Description, string(t.Frequency),
		database.FormatTime(t.StartDate), database.FormatTime(t.NextDueDate), database.NullTime(t.LastConfirmedAt),
		database.NullTime(t.LastGenerated), database.NullTime(t.EndDate), t.Active, database.FormatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update recurring transaction %s: %w", t.ID, err)
	}
	return nil
}

func (s *RecurringScheduler) withStatus(t *models.RecurringTemplate) *models.RecurringTemplate {
	t.Status = t.StatusAt(s.ledger.now())
	return t
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.DayOf(*t)
	return &d
}

func (s *RecurringScheduler) CreateRecurring(ctx context.Context, ownerID string, in RecurringInput) (*models.RecurringTemplate, error) {
	l := s.ledger
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if in.Type != models.TypeIncome && in.Type != models.TypeExpense {
		return nil, invalid("type", "type must be income or expense")
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "amount must be greater than zero")
	}
	freq, ok := models.ParseFrequency(string(in.Frequency))
	if !ok {
		return nil, invalid("frequency", "frequency must be one of daily, weekly, biweekly, monthly, yearly")
	}
	if in.StartDate.IsZero() {
		return nil, invalid("startDate", "start date is required")
	}
	start := models.DayOf(in.StartDate)
	end := dayPtr(in.EndDate)
	if end != nil && end.Before(start) {
		return nil, invalid("endDate", "end date is before the start date")
	}
	category := strings.TrimSpace(in.Category)

	var created *models.RecurringTemplate
	err := l.inTx(ctx, "create recurring transaction", func(tx *sql.Tx) error {
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
		t := &models.RecurringTemplate{
			ID: l.newID(), OwnerID: ownerID, WalletID: in.WalletID, Amount: in.Amount, Currency: currency,
			Category: category, Type: in.Type, Description: strings.TrimSpace(in.Description), Frequency: freq,
			StartDate: start, NextDueDate: start, EndDate: end, Active: true, CreatedAt: now, UpdatedAt: now,
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO recurring_templates (`+templateColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, 1, ?, ?)`,
			t.ID, t.OwnerID, database.NullString(t.WalletID), t.Amount.String(), t.Currency, t.Category, string(t.Type),
			t.Description, string(t.Frequency), database.FormatTime(t.StartDate), database.FormatTime(t.NextDueDate),
			database.NullTime(t.EndDate), nowStr, nowStr)
		if err != nil {
			return fmt.Errorf("failed to insert recurring transaction: %w", err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Recurring transaction created", "ownerID", ownerID, "templateID", created.ID, "frequency", freq)
	return s.withStatus(created), nil
}

func (s *RecurringScheduler) UpdateRecurring(ctx context.Context, ownerID, id string, upd RecurringUpdate) (*models.RecurringTemplate, error) {
	l := s.ledger
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var updated *models.RecurringTemplate
	err := l.inTx(ctx, "update recurring transaction", func(tx *sql.Tx) error {
		if upd.Category != nil {
			if err := l.categories.EnsureCategories(ctx, tx, ownerID, []string{*upd.Category}); err != nil {
				return err
			}
		}
		t, err := getTemplate(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if upd.WalletID != nil {
			if *upd.WalletID != "" {
				w, err := getWallet(ctx, tx, ownerID, *upd.WalletID)
				if err != nil {
					return err
				}
				if w.Currency != t.Currency {
					return invalid("walletId", "wallet currency %s does not match %s", w.Currency, t.Currency)
				}
			}
			t.WalletID = *upd.WalletID
		}
		if upd.Amount != nil {
			if !upd.Amount.IsPositive() {
				return invalid("amount", "amount must be greater than zero")
			}
			t.Amount = *upd.Amount
		}
		if upd.Category != nil {
			t.Category = strings.TrimSpace(*upd.Category)
		}
		if upd.Description != nil {
			t.Description = strings.TrimSpace(*upd.Description)
		}
		rescheduled := false
		if upd.Frequency != nil {
			freq, ok := models.ParseFrequency(string(*upd.Frequency))
			if !ok {
				return invalid("frequency", "frequency must be one of daily, weekly, biweekly, monthly, yearly")
			}
			rescheduled = rescheduled || freq != t.Frequency
			t.Frequency = freq
		}
		if upd.StartDate != nil {
			start := models.DayOf(*upd.StartDate)
			rescheduled = rescheduled || !start.Equal(t.StartDate)
			t.StartDate = start
		}
		if upd.ClearEnd {
			t.EndDate = nil
		} else if upd.EndDate != nil {
			t.EndDate = dayPtr(upd.EndDate)
		}
		if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
			return invalid("endDate", "end date is before the start date")
		}
		if upd.Active != nil {
			t.Active = *upd.Active
		}
		// Once occurrences exist the schedule continues from the last one.
		if rescheduled && t.LastGenerated == nil {
			t.NextDueDate = t.StartDate
		}
		// A date held at an earlier end date resumes when the end moves out.
		if t.LastGenerated != nil {
			if next := models.NextOccurrence(*t.LastGenerated, t.Frequency); t.NextDueDate.Before(next) {
				t.NextDueDate = next
			}
		}
		t.Advance(t.NextDueDate)
		t.UpdatedAt, _ = l.timestamp()
		if err := saveTemplate(ctx, tx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.withStatus(updated), nil
}

// DeleteRecurring removes a template. Transactions it generated stay.
func (s *RecurringScheduler) DeleteRecurring(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	res, err := s.ledger.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete recurring transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "recurring transaction", ID: id}
	}
	logger.FromContext(ctx).Info("Recurring transaction deleted", "ownerID", ownerID, "templateID", id)
	return nil
}

func (s *RecurringScheduler) GetRecurring(ctx context.Context, ownerID, id string) (*models.RecurringTemplate, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	t, err := getTemplate(ctx, s.ledger.db, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.withStatus(t), nil
}

func (s *RecurringScheduler) ListRecurring(ctx context.Context, ownerID string) ([]models.RecurringTemplate, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	templates, err := listTemplates(ctx, s.ledger.db, ownerID, false)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		s.withStatus(&templates[i])
	}
	return templates, nil
}

// occurrenceTxn builds the concrete transaction for one occurrence.
func (l *Ledger) occurrenceTxn(t *models.RecurringTemplate, walletID string, date, now time.Time) models.Transaction {
	return models.Transaction{
		ID: l.newID(), OwnerID: t.OwnerID, WalletID: walletID, Amount: t.Amount, Currency: t.Currency,
		Type: t.Type, Category: t.Category, Date: date, Description: t.Description, State: models.ActiveState(),
		RecurringID: t.ID, Source: models.SourceRecurring, CreatedAt: now, UpdatedAt: now,
	}
}

// bookingWallet returns the wallet occurrences of t are booked on, or ""
// when the template has none.
func bookingWallet(ctx context.Context, q querier, t *models.RecurringTemplate) (string, error) {
	if t.WalletID == "" {
		return "", nil
	}
	w, err := getWallet(ctx, q, t.OwnerID, t.WalletID)
	if err != nil {
		return "", err
	}
	if w.Currency != t.Currency {
		return "", conflict("wallet %s currency %s does not match recurring transaction currency %s", w.ID, w.Currency, t.Currency)
	}
	return w.ID, nil
}

// ConfirmRecurring books the due occurrence of a template now and moves the
// schedule one period forward.
func (s *RecurringScheduler) ConfirmRecurring(ctx context.Context, ownerID, id string) (*ConfirmResult, error) {
	l := s.ledger
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var result *ConfirmResult
	err := l.inTx(ctx, "confirm recurring transaction", func(tx *sql.Tx) error {
		t, err := getTemplate(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		now, nowStr := l.timestamp()
		if t.Expired(now) || t.Exhausted() {
			return &ExpiredScheduleError{TemplateID: t.ID, EndDate: *t.EndDate}
		}
		if !t.Active {
			return conflict("recurring transaction %s is paused", t.ID)
		}
		walletID, err := bookingWallet(ctx, tx, t)
		if err != nil {
			return err
		}

		txn := l.occurrenceTxn(t, walletID, now, now)
		if err := l.insertTxn(ctx, tx, &txn); err != nil {
			return err
		}
		if err := applyDelta(ctx, tx, ownerID, walletID, txn.SignedAmount(), nowStr); err != nil {
			return err
		}

		occurrence := t.NextDueDate
		t.LastConfirmedAt = &now
		t.LastGenerated = &occurrence
		t.Advance(models.NextOccurrence(occurrence, t.Frequency))
		t.UpdatedAt = now
		if err := saveTemplate(ctx, tx, t); err != nil {
			return err
		}
		result = &ConfirmResult{Transaction: txn, Template: *s.withStatus(t)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.InvalidateUserCache(ownerID)
	logger.FromContext(ctx).Info("Recurring transaction confirmed", "ownerID", ownerID, "templateID", id,
		"nextDueDate", result.Template.NextDueDate.Format("2006-01-02"))
	return result, nil
}

// GenerateRecurringTransactions materializes every occurrence that has
// elapsed since the last generated one, for each active template of the
// owner. Each template is committed on its own. Per template, at most
// maxOccurrences rows are generated per run and the run stops at the
// deadline; the rest is picked up by the next run.
func (s *RecurringScheduler) GenerateRecurringTransactions(ctx context.Context, ownerID string) (*BackfillReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	report := &BackfillReport{Templates: []TemplateBackfill{}}
	return report, s.generateForOwner(ctx, ownerID, report)
}

// GenerateAll runs the backfill for every owner with active templates.
func (s *RecurringScheduler) GenerateAll(ctx context.Context) (*BackfillReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Listing ignores the deadline so an expired run still reports every
	// template as truncated instead of failing.
	rows, err := s.ledger.db.QueryContext(context.WithoutCancel(ctx), `SELECT DISTINCT owner_id FROM recurring_templates WHERE active = 1 ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			rows.Close()
			return nil, err
		}
		owners = append(owners, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report := &BackfillReport{Templates: []TemplateBackfill{}}
	for _, owner := range owners {
		if err := s.generateForOwner(ctx, owner, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *RecurringScheduler) generateForOwner(ctx context.Context, ownerID string, report *BackfillReport) error {
	log := logger.FromContext(ctx)
	templates, err := listTemplates(context.WithoutCancel(ctx), s.ledger.db, ownerID, true)
	if err != nil {
		return err
	}
	now := s.ledger.now()
	generatedBefore := report.Generated
	for i := range templates {
		t := &templates[i]
		if t.Expired(now) || t.Exhausted() {
			continue
		}
		if ctx.Err() != nil {
			report.add(TemplateBackfill{TemplateID: t.ID, OwnerID: ownerID, Truncated: true, NextDueDate: t.NextDueDate})
			continue
		}
		res, err := s.backfillTemplate(ctx, ownerID, t.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
				log.Warn("Skipping recurring transaction in backfill", "ownerID", ownerID, "templateID", t.ID, "error", err)
				report.add(TemplateBackfill{TemplateID: t.ID, OwnerID: ownerID, NextDueDate: t.NextDueDate, Error: err.Error()})
				continue
			}
			return err
		}
		report.add(*res)
	}
	if n := report.Generated - generatedBefore; n > 0 {
		s.ledger.InvalidateUserCache(ownerID)
		log.Info("Recurring backfill generated transactions", "ownerID", ownerID, "count", n)
	}
	return nil
}

func (s *RecurringScheduler) backfillTemplate(ctx context.Context, ownerID, id string) (*TemplateBackfill, error) {
	l := s.ledger
	var result *TemplateBackfill
	// The commit must not be cancelled by the deadline that ends the loop.
	txCtx := context.WithoutCancel(ctx)
	err := l.inTx(txCtx, "backfill recurring transaction", func(tx *sql.Tx) error {
		t, err := getTemplate(txCtx, tx, ownerID, id)
		if err != nil {
			return err
		}
		walletID, err := bookingWallet(txCtx, tx, t)
		if err != nil {
			return err
		}
		now, nowStr := l.timestamp()
		limit := models.DayOf(now)
		if t.EndDate != nil && t.EndDate.Before(limit) {
			limit = models.DayOf(*t.EndDate)
		}
		cursor := t.StartDate
		if t.LastGenerated != nil {
			cursor = models.NextOccurrence(*t.LastGenerated, t.Frequency)
		}

		res := &TemplateBackfill{TemplateID: t.ID, OwnerID: ownerID}
		delta := decimal.Zero
		for !cursor.After(limit) {
			if res.Generated >= s.maxOccurrences || ctx.Err() != nil {
				res.Truncated = true
				break
			}
			txn := l.occurrenceTxn(t, walletID, cursor, now)
			if err := l.insertTxn(txCtx, tx, &txn); err != nil {
				return err
			}
			delta = delta.Add(txn.SignedAmount())
			occurrence := cursor
			t.LastGenerated = &occurrence
			cursor = models.NextOccurrence(cursor, t.Frequency)
			res.Generated++
		}
		if res.Generated > 0 {
			if cursor.After(t.NextDueDate) {
				t.Advance(cursor)
			}
			t.UpdatedAt = now
			if err := saveTemplate(txCtx, tx, t); err != nil {
				return err
			}
			if err := applyDelta(txCtx, tx, ownerID, walletID, delta, nowStr); err != nil {
				return err
			}
		}
		res.NextDueDate = t.NextDueDate
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
