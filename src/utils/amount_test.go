package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"idr with decimals", "1.500.000,00", "1500000", true},
		{"idr without decimals", "1.500.000", "1500000", true},
		{"idr short group", "12.345", "12345", true},
		{"standard with decimals", "1,500.00", "1500", true},
		{"standard large", "12,345,678.90", "12345678.9", true},
		{"parenthesized negative", "(123.45)", "-123.45", true},
		{"leading minus", "-2.500", "-2500", true},
		{"leading plus", "+75.5", "75.5", true},
		{"trailing minus idr", "1.500,00-", "-1500", true},
		{"trailing minus standard", "2,000.50 -", "-2000.5", true},
		{"minus on both sides", "-1.500-", "", false},
		{"plain integer", "1500000", "1500000", true},
		{"plain decimal", "1.5", "1.5", true},
		{"comma decimal only", "50,00", "50", true},
		{"rupiah prefix", "Rp 1.500.000", "1500000", true},
		{"rupiah no space", "Rp1.250.000,50", "1250000.5", true},
		{"idr code suffix", "2,000.00 IDR", "2000", true},
		{"dollar sign", "$1,234.56", "1234.56", true},
		{"negative in parens with symbol", "(Rp 10.000)", "-10000", true},
		{"bad idr grouping falls back", "1,234.567", "1234.567", true},
		{"empty", "", "", false},
		{"only sign", "-", "", false},
		{"letters", "abc", "", false},
		{"trailing residue", "1.500 CR", "", false},
		{"double decimal", "1.2.3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseAmount(%q) ok = %v, want %v (value %s)", tt.input, ok, tt.wantOK, got)
			}
			if !ok {
				return
			}
			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}
