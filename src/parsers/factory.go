package parsers

import (
	"fmt"
	"strings"
)

// ColumnHints names the exact header a bank uses for each field. Hints are
// tried before the generic synonyms.
type ColumnHints struct {
	Date        string
	Description string
	Debit       string
	Credit      string
	Amount      string
	Type        string
}

// BankFormat is a known statement layout.
type BankFormat struct {
	Code            string
	Name            string
	RequiredColumns []string
	Hints           ColumnHints
	Currency        string
}

const CustomBankCode = "custom"

// CustomFormat is used when no registered bank matches the header.
var CustomFormat = BankFormat{
	Code:            CustomBankCode,
	Name:            "Custom",
	RequiredColumns: []string{"Date", "Description", "Amount"},
}

// registry order is detection order.
var registry = []BankFormat{
	{
		Code:            "bca",
		Name:            "Bank Central Asia",
		RequiredColumns: []string{"Tanggal", "Keterangan", "Debet", "Kredit", "Saldo"},
		Hints:           ColumnHints{Date: "Tanggal", Description: "Keterangan", Debit: "Debet", Credit: "Kredit"},
		Currency:        "IDR",
	},
	{
		Code:            "mandiri",
		Name:            "Bank Mandiri",
		RequiredColumns: []string{"Tanggal Transaksi", "Keterangan", "Jenis", "Jumlah (IDR)", "Saldo"},
		Hints:           ColumnHints{Date: "Tanggal Transaksi", Description: "Keterangan", Amount: "Jumlah (IDR)", Type: "Jenis"},
		Currency:        "IDR",
	},
	{
		Code:            "bni",
		Name:            "Bank Negara Indonesia",
		RequiredColumns: []string{"TGL", "URAIAN", "DEBIT", "KREDIT", "SALDO"},
		Hints:           ColumnHints{Date: "TGL", Description: "URAIAN", Debit: "DEBIT", Credit: "KREDIT"},
		Currency:        "IDR",
	},
	{
		Code:            "bri",
		Name:            "Bank Rakyat Indonesia",
		RequiredColumns: []string{"Tanggal", "Deskripsi", "Nominal", "Jenis", "Saldo"},
		Hints:           ColumnHints{Date: "Tanggal", Description: "Deskripsi", Amount: "Nominal", Type: "Jenis"},
		Currency:        "IDR",
	},
}

// Banks returns the registered formats in detection order.
func Banks() []BankFormat {
	out := make([]BankFormat, len(registry))
	copy(out, registry)
	return out
}

// GetBank looks up a registered format by code.
func GetBank(code string) (BankFormat, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == CustomBankCode {
		return CustomFormat, nil
	}
	for _, b := range registry {
		if b.Code == code {
			return b, nil
		}
	}
	return BankFormat{}, fmt.Errorf("no bank format registered for code: %s", code)
}

// DetectBank returns the first registered bank whose every required column
// is matched by some header, case-insensitively and by substring in either
// direction. It returns CustomFormat and false when none matches.
func DetectBank(header []string) (BankFormat, bool) {
	normalized := make([]string, 0, len(header))
	for _, h := range header {
		if h = normalizeHeader(h); h != "" {
			normalized = append(normalized, h)
		}
	}
	for _, b := range registry {
		if matchesAll(b.RequiredColumns, normalized) {
			return b, true
		}
	}
	return CustomFormat, false
}

func matchesAll(required, header []string) bool {
	for _, req := range required {
		req = strings.ToLower(req)
		found := false
		for _, h := range header {
			if strings.Contains(h, req) || strings.Contains(req, h) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
