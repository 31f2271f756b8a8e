package parsers

import (
	"strings"
	"testing"
)

func TestDetectBank(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantCode string
		wantName string
		wantOK   bool
	}{
		{"bca", "Tanggal,Keterangan,Debet,Kredit,Saldo", "bca", "Bank Central Asia", true},
		{"bca extra columns", "Tanggal,Keterangan,Cabang,Debet,Kredit,Saldo", "bca", "Bank Central Asia", true},
		{"bca lowercase padded", "  tanggal , KETERANGAN,debet ,kredit,saldo", "bca", "Bank Central Asia", true},
		{"mandiri", "Tanggal Transaksi,Keterangan,Jenis,Jumlah (IDR),Saldo", "mandiri", "Bank Mandiri", true},
		{"bni", "TGL,URAIAN,DEBIT,KREDIT,SALDO", "bni", "Bank Negara Indonesia", true},
		{"bri", "Tanggal,Deskripsi,Nominal,Jenis,Saldo", "bri", "Bank Rakyat Indonesia", true},
		{"custom", "Date,Description,Amount", CustomBankCode, "Custom", false},
		{"bca without saldo", "Tanggal,Keterangan,Debet,Kredit", CustomBankCode, "Custom", false},
		{"blank headers do not match", ",,,,", CustomBankCode, "Custom", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectBank(strings.Split(tt.header, ","))
			if ok != tt.wantOK || got.Code != tt.wantCode || got.Name != tt.wantName {
				t.Errorf("DetectBank(%q) = %s/%s, %v; want %s/%s, %v", tt.header, got.Code, got.Name, ok, tt.wantCode, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestGetBank(t *testing.T) {
	b, err := GetBank(" BRI ")
	if err != nil || b.Name != "Bank Rakyat Indonesia" {
		t.Fatalf("GetBank(BRI) = %+v, %v", b, err)
	}
	if b, err := GetBank("custom"); err != nil || b.Code != CustomBankCode {
		t.Errorf("GetBank(custom) = %+v, %v", b, err)
	}
	if _, err := GetBank("jago"); err == nil {
		t.Error("expected error for unknown bank")
	}
}

func TestBanksRegistryOrder(t *testing.T) {
	var codes []string
	for _, b := range Banks() {
		codes = append(codes, b.Code)
	}
	if got := strings.Join(codes, ","); got != "bca,mandiri,bni,bri" {
		t.Errorf("registry order = %s", got)
	}
}

func TestResolveColumnsSynonyms(t *testing.T) {
	header := []string{"Transaction Date", "Details", "Withdrawals", "Deposits", "Balance", "CCY"}
	cols := resolveColumns(header, ColumnHints{})

	want := map[field]int{
		fieldDate:        0,
		fieldDescription: 1,
		fieldDebit:       2,
		fieldCredit:      3,
		fieldCurrency:    5,
		fieldAmount:      -1,
		fieldType:        -1,
	}
	for f, idx := range want {
		if cols[f] != idx {
			t.Errorf("field %d resolved to %d, want %d", f, cols[f], idx)
		}
	}
}

func TestResolveColumnsSubstring(t *testing.T) {
	header := []string{"Posting Date (WIB)", "Keterangan Transaksi", "Nominal Mutasi", "Saldo Akhir"}
	cols := resolveColumns(header, ColumnHints{})
	if cols[fieldDate] != 0 || cols[fieldDescription] != 1 || cols[fieldAmount] != 2 {
		t.Errorf("unexpected columns %v", cols)
	}
}
