package parsers

import "strings"

type field int

const (
	fieldDate field = iota
	fieldDescription
	fieldDebit
	fieldCredit
	fieldAmount
	fieldType
	fieldCurrency
	numFields
)

// Header synonyms, English and Indonesian, in normalized (lowercase) form.
var synonyms = [numFields][]string{
	fieldDate:        {"date", "tanggal", "tgl", "tanggal transaksi", "tgl transaksi", "transaction date", "trans date", "posting date", "value date", "tanggal valuta"},
	fieldDescription: {"description", "keterangan", "uraian", "deskripsi", "memo", "details", "detail", "transaction details", "narrative", "remark", "remarks", "berita", "catatan"},
	fieldDebit:       {"debit", "debet", "mutasi debet", "mutasi debit", "withdrawal", "withdrawals", "money out", "keluar", "db"},
	fieldCredit:      {"credit", "kredit", "mutasi kredit", "deposit", "deposits", "money in", "masuk", "cr"},
	fieldAmount:      {"amount", "jumlah", "nominal", "nilai", "mutasi", "jumlah (idr)", "amount (idr)"},
	fieldType:        {"type", "jenis", "tipe", "d/k", "db/cr", "dk", "jenis transaksi", "transaction type"},
	fieldCurrency:    {"currency", "mata uang", "ccy", "valuta"},
}

// resolution order for the substring pass; specific fields claim headers
// before the broader ones.
var containsOrder = []field{fieldDate, fieldDebit, fieldCredit, fieldType, fieldCurrency, fieldAmount, fieldDescription}

// columnMap holds the column index of each field, or -1.
type columnMap [numFields]int

func (c columnMap) has(f field) bool { return c[f] >= 0 }

func (c columnMap) get(record []string, f field) string {
	i := c[f]
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func resolveColumns(header []string, hints ColumnHints) columnMap {
	var cols columnMap
	for i := range cols {
		cols[i] = -1
	}
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}
	used := make(map[int]bool)
	claim := func(f field, match func(h string) bool) {
		if cols.has(f) {
			return
		}
		for i, h := range normalized {
			if h == "" || used[i] {
				continue
			}
			if match(h) {
				cols[f] = i
				used[i] = true
				return
			}
		}
	}

	hintFor := [numFields]string{
		fieldDate:        hints.Date,
		fieldDescription: hints.Description,
		fieldDebit:       hints.Debit,
		fieldCredit:      hints.Credit,
		fieldAmount:      hints.Amount,
		fieldType:        hints.Type,
	}
	for f, hint := range hintFor {
		if hint == "" {
			continue
		}
		want := normalizeHeader(hint)
		claim(field(f), func(h string) bool { return h == want })
	}

	for f := field(0); f < numFields; f++ {
		claim(f, func(h string) bool {
			for _, s := range synonyms[f] {
				if h == s {
					return true
				}
			}
			return false
		})
	}

	for _, f := range containsOrder {
		claim(f, func(h string) bool {
			for _, s := range synonyms[f] {
				if len(s) >= 3 && strings.Contains(h, s) {
					return true
				}
			}
			return false
		})
	}
	return cols
}

// looksLikeHeader reports whether a record names enough columns to be the
// header row of a statement.
func looksLikeHeader(record []string) bool {
	cols := resolveColumns(record, ColumnHints{})
	return cols.has(fieldDate) && (cols.has(fieldAmount) || cols.has(fieldDebit) || cols.has(fieldCredit))
}
