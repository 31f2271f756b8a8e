package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/parsers"
)

const bcaStatement = "Tanggal,Keterangan,Debet,Kredit,Saldo\n" +
	"05/03,KOPI KENANGAN,35.000,,965.000\n" +
	"06/03,TRSF GAJI MARET,,5.000.000,5.965.000\n" +
	"07/03,,10.000,,5.955.000\n"

func newTestImporter(env *testEnv) *StatementImporter {
	ingestor := parsers.NewStatementIngestor(nil, parsers.IngestOptions{Now: env.clock.Now})
	return NewStatementImporter(ingestor, env.ledger, nil, time.Second)
}

func TestImportPreviewAndCommit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := env.wallet(t, "BCA", "1000000")
	importer := newTestImporter(env)

	preview, err := importer.Preview(ctx, owner, strings.NewReader(bcaStatement))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if preview.BankDetected != "Bank Central Asia" || len(preview.Transactions) != 2 || len(preview.Warnings) != 1 {
		t.Fatalf("preview = %+v", preview.IngestResult)
	}
	if n := env.countTransactions(t); n != 1 {
		t.Fatalf("preview must not store anything, have %d transactions", n)
	}

	res, err := importer.Commit(ctx, owner, CommitRequest{PreviewID: preview.ID, WalletID: w.ID})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Created != 2 {
		t.Errorf("created = %d", res.Created)
	}
	env.assertBalance(t, w.ID, "5965000")

	if _, err := importer.Commit(ctx, owner, CommitRequest{PreviewID: preview.ID, WalletID: w.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("committing a preview twice: err = %v", err)
	}
}

func TestImportCommitEditedDrafts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := env.wallet(t, "BCA", "0")
	importer := newTestImporter(env)

	preview, err := importer.Preview(ctx, owner, strings.NewReader(bcaStatement))
	if err != nil {
		t.Fatal(err)
	}
	edited := preview.Transactions[1:]
	edited[0].Category = "Income"

	if _, err := importer.Commit(ctx, "user-2", CommitRequest{PreviewID: preview.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("another owner's preview: err = %v", err)
	}
	res, err := importer.Commit(ctx, owner, CommitRequest{PreviewID: preview.ID, WalletID: w.ID, Transactions: edited})
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 1 || res.Transactions[0].Category != "Income" || res.Transactions[0].Type != models.TypeIncome {
		t.Errorf("result = %+v", res)
	}
	env.assertBalance(t, w.ID, "5000000")

	if _, err := importer.Commit(ctx, owner, CommitRequest{WalletID: w.ID}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty commit: err = %v", err)
	}
}
