package parsers

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/processors"
	"github.com/username/fintrack/backend/src/security/validation"
	"github.com/username/fintrack/backend/src/utils"
)

const (
	DefaultMaxRows    = 10000
	headerSearchLines = 15
	sniffSampleBytes  = 16 * 1024
)

var errNoHeader = errors.New("CSV file is empty or has no header row")

type IngestOptions struct {
	// MaxRows bounds the number of data rows read from one file.
	MaxRows         int
	DefaultCurrency string
	// Now anchors "DD/MM" dates that omit the year.
	Now func() time.Time
}

// StatementIngestor reads bank statement CSV exports into drafts.
type StatementIngestor struct {
	classifier *processors.CategoryClassifier
	opts       IngestOptions
}

func NewStatementIngestor(classifier *processors.CategoryClassifier, opts IngestOptions) *StatementIngestor {
	if classifier == nil {
		classifier = processors.NewCategoryClassifier(processors.DefaultCategoryRules())
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "IDR"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &StatementIngestor{classifier: classifier, opts: opts}
}

type skipReason int

const (
	skipNone skipReason = iota
	skipDate
	skipDescription
	skipAmount
)

// Ingest reads the whole file row by row. The returned error is reserved for
// I/O failures and cancellation; problems with the content are reported in
// the result.
func (s *StatementIngestor) Ingest(ctx context.Context, file io.Reader) (*IngestResult, error) {
	result := newIngestResult()
	log := logger.FromContext(ctx)

	br := bufio.NewReaderSize(file, 64*1024)
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	src := &recordSource{reader: reader}
	header, err := src.findHeader()
	if err != nil {
		if errors.Is(err, errNoHeader) {
			result.Errors = append(result.Errors, errNoHeader.Error())
			return result, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	bank, detected := DetectBank(header)
	if detected {
		result.BankDetected = bank.Name
		result.BankCode = bank.Code
	}
	cols := resolveColumns(header, bank.Hints)
	currency := s.opts.DefaultCurrency
	if bank.Currency != "" {
		currency = bank.Currency
	}
	now := s.opts.Now()

	counts := map[skipReason]int{}
	unreadable := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("statement ingestion stopped after %d rows: %w", result.RowsRead, err)
		}
		record, line, err := src.next()
		if err == io.EOF {
			break
		}
		if result.RowsRead >= s.opts.MaxRows {
			result.Truncated = true
			result.Warnings = append(result.Warnings, fmt.Sprintf("Row limit of %d reached; remaining rows were not processed", s.opts.MaxRows))
			break
		}
		result.RowsRead++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				unreadable++
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", perr.StartLine, perr.Err))
				continue
			}
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if isBlank(record) {
			continue
		}

		draft, reason, rowErr := s.safeParseRow(record, cols, currency, now)
		switch {
		case rowErr != nil:
			unreadable++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", line, rowErr))
		case reason != skipNone:
			counts[reason]++
			result.Warnings = append(result.Warnings, skipWarning(line, reason, record, cols))
		default:
			result.Transactions = append(result.Transactions, draft)
		}
	}

	if len(result.Transactions) == 0 {
		skipped := counts[skipDate] + counts[skipDescription] + counts[skipAmount] + unreadable
		result.Errors = append(result.Errors, fmt.Sprintf(
			"No valid transactions found: %d rows skipped (%d missing or invalid date, %d missing description, %d zero or invalid amount, %d unreadable)",
			skipped, counts[skipDate], counts[skipDescription], counts[skipAmount], unreadable))
	}

	log.Info("Statement ingested",
		"bank", result.BankCode,
		"rows", result.RowsRead,
		"transactions", len(result.Transactions),
		"warnings", len(result.Warnings),
		"errors", len(result.Errors),
		"truncated", result.Truncated)
	return result, nil
}

func (s *StatementIngestor) safeParseRow(record []string, cols columnMap, currency string, now time.Time) (draft models.ParsedTransactionDraft, reason skipReason, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()
	draft, reason = s.parseRow(record, cols, currency, now)
	return draft, reason, nil
}

func (s *StatementIngestor) parseRow(record []string, cols columnMap, currency string, now time.Time) (models.ParsedTransactionDraft, skipReason) {
	var draft models.ParsedTransactionDraft

	date, ok := utils.ParseDate(cols.get(record, fieldDate), now)
	if !ok {
		return draft, skipDate
	}
	draft.Date = date

	desc := validation.CleanText(cols.get(record, fieldDescription))
	if desc == "" {
		return draft, skipDescription
	}
	draft.Description = desc

	amount, typ, ok := resolveAmount(record, cols)
	if !ok {
		return draft, skipAmount
	}
	if cols.has(fieldType) {
		if t, ok := typeFromKeyword(cols.get(record, fieldType)); ok {
			typ = t
		}
	}
	draft.Amount = amount.Abs()
	draft.Type = typ

	draft.Currency = currency
	if c := strings.ToUpper(cols.get(record, fieldCurrency)); len(c) == 3 {
		draft.Currency = c
	}

	if category, ok := s.classifier.Suggest(desc); ok {
		draft.Category = category
	}
	return draft, skipNone
}

// resolveAmount prefers debit/credit columns and falls back to a single
// signed amount column.
func resolveAmount(record []string, cols columnMap) (decimal.Decimal, models.TransactionType, bool) {
	if v, ok := parseNonZero(cols.get(record, fieldDebit)); cols.has(fieldDebit) && ok {
		return v, models.TypeExpense, true
	}
	if v, ok := parseNonZero(cols.get(record, fieldCredit)); cols.has(fieldCredit) && ok {
		return v, models.TypeIncome, true
	}
	if cols.has(fieldAmount) {
		if v, ok := parseNonZero(cols.get(record, fieldAmount)); ok {
			if v.IsNegative() {
				return v, models.TypeExpense, true
			}
			return v, models.TypeIncome, true
		}
	}
	return decimal.Zero, "", false
}

func parseNonZero(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Zero, false
	}
	v, ok := utils.ParseAmount(raw)
	if !ok || v.IsZero() {
		return decimal.Zero, false
	}
	return v, true
}

var (
	expenseCodes    = map[string]bool{"d": true, "db": true, "dr": true, "debit": true, "debet": true}
	incomeCodes     = map[string]bool{"k": true, "c": true, "cr": true, "kr": true, "kredit": true, "credit": true}
	expenseKeywords = []string{"debit", "debet", "keluar", "expense", "pengeluaran", "withdraw"}
	incomeKeywords  = []string{"kredit", "credit", "masuk", "income", "pemasukan", "deposit"}
)

func typeFromKeyword(v string) (models.TransactionType, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	if expenseCodes[v] {
		return models.TypeExpense, true
	}
	if incomeCodes[v] {
		return models.TypeIncome, true
	}
	for _, k := range expenseKeywords {
		if strings.Contains(v, k) {
			return models.TypeExpense, true
		}
	}
	for _, k := range incomeKeywords {
		if strings.Contains(v, k) {
			return models.TypeIncome, true
		}
	}
	return "", false
}

func skipWarning(line int, reason skipReason, record []string, cols columnMap) string {
	switch reason {
	case skipDate:
		if raw := cols.get(record, fieldDate); raw != "" {
			return fmt.Sprintf("Row %d: invalid date %q, row skipped", line, raw)
		}
		return fmt.Sprintf("Row %d: missing date, row skipped", line)
	case skipDescription:
		return fmt.Sprintf("Row %d: missing description, row skipped", line)
	default:
		return fmt.Sprintf("Row %d: zero or invalid amount, row skipped", line)
	}
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// recordSource replays records consumed while looking for the header.
type recordSource struct {
	reader  *csv.Reader
	pending [][]string
	lines   []int
}

func (r *recordSource) read() ([]string, int, error) {
	record, err := r.reader.Read()
	if err != nil {
		return nil, 0, err
	}
	line, _ := r.reader.FieldPos(0)
	return record, line, nil
}

func (r *recordSource) next() ([]string, int, error) {
	if len(r.pending) > 0 {
		record, line := r.pending[0], r.lines[0]
		r.pending, r.lines = r.pending[1:], r.lines[1:]
		return record, line, nil
	}
	return r.read()
}

// findHeader picks the first record among the leading lines that names a
// date and an amount column, skipping bank preambles. Without one, the first
// non-blank record is the header.
func (r *recordSource) findHeader() ([]string, error) {
	var seen [][]string
	var lines []int
	for len(seen) < headerSearchLines {
		record, line, err := r.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, err
		}
		if isBlank(record) {
			continue
		}
		if looksLikeHeader(record) {
			return stripBOM(record), nil
		}
		seen = append(seen, record)
		lines = append(lines, line)
	}
	if len(seen) == 0 {
		return nil, errNoHeader
	}
	r.pending, r.lines = seen[1:], lines[1:]
	return stripBOM(seen[0]), nil
}

func stripBOM(record []string) []string {
	if len(record) > 0 {
		record[0] = strings.TrimPrefix(record[0], "\ufeff")
	}
	return record
}

// sniffDelimiter picks the separator whose per-line count is most
// consistent across the first lines of the file.
func sniffDelimiter(br *bufio.Reader) rune {
	sample, _ := br.Peek(sniffSampleBytes)
	lines := strings.Split(string(sample), "\n")
	if len(sample) == sniffSampleBytes && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}

	best, bestFreq, bestWidth := ',', 0, 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		freqByCount := map[int]int{}
		for _, l := range lines {
			if n := strings.Count(l, string(c)); n > 0 {
				freqByCount[n]++
			}
		}
		freq, width := 0, 0
		for n, f := range freqByCount {
			if f > freq || (f == freq && n > width) {
				freq, width = f, n
			}
		}
		if freq > bestFreq || (freq == bestFreq && width > bestWidth) {
			best, bestFreq, bestWidth = c, freq, width
		}
	}
	return best
}
