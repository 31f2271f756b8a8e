package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"
)

func ParseFrequency(s string) (Frequency, bool) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
		return f, true
	}
	return "", false
}

type RecurringStatus string

const (
	StatusPending RecurringStatus = "pending"
	StatusOverdue RecurringStatus = "overdue"
)

type RecurringTemplate struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"ownerId"`
	WalletID        string          `json:"walletId,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Category        string          `json:"category"`
	Type            TransactionType `json:"type"`
	Description     string          `json:"description"`
	Frequency       Frequency       `json:"frequency"`
	StartDate       time.Time       `json:"startDate"`
	NextDueDate     time.Time       `json:"nextDueDate"`
	LastConfirmedAt *time.Time      `json:"lastConfirmedAt,omitempty"`
	LastGenerated   *time.Time      `json:"lastGenerated,omitempty"`
	EndDate         *time.Time      `json:"endDate,omitempty"`
	Active          bool            `json:"active"`
	Status          RecurringStatus `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// StatusAt derives the template status from its next due date.
func (t RecurringTemplate) StatusAt(now time.Time) RecurringStatus {
	if DayOf(t.NextDueDate).Before(DayOf(now)) {
		return StatusOverdue
	}
	return StatusPending
}

// Expired reports whether the end date lies before the day of now. The end
// date itself is still within the schedule.
func (t RecurringTemplate) Expired(now time.Time) bool {
	return t.EndDate != nil && DayOf(now).After(DayOf(*t.EndDate))
}

// Exhausted reports whether no occurrence remains up to the end date. The
// occurrence after the last generated one decides, since NextDueDate is held
// at the end date once the schedule runs out.
func (t RecurringTemplate) Exhausted() bool {
	if t.EndDate == nil {
		return false
	}
	end := DayOf(*t.EndDate)
	if DayOf(t.NextDueDate).After(end) {
		return true
	}
	return t.LastGenerated != nil && DayOf(NextOccurrence(*t.LastGenerated, t.Frequency)).After(end)
}

// Advance moves NextDueDate to next, never past the end date.
func (t *RecurringTemplate) Advance(next time.Time) {
	if t.EndDate != nil && next.After(*t.EndDate) {
		next = DayOf(*t.EndDate)
	}
	t.NextDueDate = next
}

// DayOf truncates t to midnight in UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextOccurrence advances d by one period of f. Monthly and yearly steps keep
// the day of month and clamp to the last day when the target month is shorter.
func NextOccurrence(d time.Time, f Frequency) time.Time {
	switch f {
	case FrequencyDaily:
		return d.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return d.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return d.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return AddMonthsClamped(d, 1)
	case FrequencyYearly:
		return AddMonthsClamped(d, 12)
	}
	return d
}

// AddMonthsClamped adds n calendar months to d. Jan 31 + 1 month is Feb 28
// (or 29), never Mar 3.
func AddMonthsClamped(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	if last := daysIn(first.Year(), first.Month(), d.Location()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}
