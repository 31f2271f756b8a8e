package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/logger"
)

// CategoryRegistry validates category names referenced by new transactions
// and creates the ones the owner does not have yet.
type CategoryRegistry interface {
	EnsureCategories(ctx context.Context, tx *sql.Tx, ownerID string, names []string) error
	ListCategories(ctx context.Context, ownerID string) ([]string, error)
}

const maxCategoryLength = 64

// SQLCategoryRegistry keeps categories in the categories table.
type SQLCategoryRegistry struct {
	db *sql.DB
}

func NewSQLCategoryRegistry(db *sql.DB) *SQLCategoryRegistry {
	return &SQLCategoryRegistry{db: db}
}

// EnsureCategories creates the missing categories inside tx, so they are
// rolled back together with the write that references them.
func (r *SQLCategoryRegistry) EnsureCategories(ctx context.Context, tx *sql.Tx, ownerID string, names []string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	unique := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if len(n) > maxCategoryLength {
			return invalid("category", "name %q is longer than %d characters", n, maxCategoryLength)
		}
		unique[n] = true
	}

	now := database.FormatTime(time.Now())
	created := 0
	for n := range unique {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO categories (owner_id, name, created_at) VALUES (?, ?, ?)`, ownerID, n, now)
		if err != nil {
			return fmt.Errorf("failed to create category %q: %w", n, err)
		}
		if k, _ := res.RowsAffected(); k > 0 {
			created++
		}
	}
	if created > 0 {
		logger.FromContext(ctx).Debug("Created categories", "ownerID", ownerID, "count", created)
	}
	return nil
}

func (r *SQLCategoryRegistry) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
