package validation

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestValidateClientContentType(t *testing.T) {
	tests := []struct {
		contentType string
		wantErr     bool
	}{
		{"text/csv", false},
		{"text/csv; charset=utf-8", false},
		{"application/vnd.ms-excel", false},
		{"", false},
		{"image/png", true},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			err := ValidateClientContentType(tt.contentType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupportedFile) {
				t.Errorf("expected ErrUnsupportedFile, got %v", err)
			}
		})
	}
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	csv := bytes.NewReader([]byte("Tanggal,Keterangan,Debet,Kredit,Saldo\n01/02,KOPI,15.000,,100.000\n"))
	detected, err := ValidateFileContentByMagicBytes(csv)
	if err != nil {
		t.Fatalf("csv rejected: %v (%s)", err, detected)
	}
	if pos, _ := csv.Seek(0, io.SeekCurrent); pos != 0 {
		t.Errorf("reader not rewound, at %d", pos)
	}

	png := bytes.NewReader([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	if _, err := ValidateFileContentByMagicBytes(png); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("png: got %v, want ErrUnsupportedFile", err)
	}

	if _, err := ValidateFileContentByMagicBytes(bytes.NewReader(nil)); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("empty: got %v, want ErrUnsupportedFile", err)
	}
}

func TestCleanText(t *testing.T) {
	in := "  TRSF\x00 E-BANKING \t\n  KOPI\x07 KENANGAN "
	if got := CleanText(in); got != "TRSF E-BANKING KOPI KENANGAN" {
		t.Errorf("CleanText = %q", got)
	}
}
