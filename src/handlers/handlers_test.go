package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/parsers"
	"github.com/username/fintrack/backend/src/security"
	"github.com/username/fintrack/backend/src/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiClient struct {
	t      *testing.T
	router http.Handler
	token  string
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	auth := security.NewAuthService(testSecret, time.Hour)
	ledger := services.NewLedger(db, nil, nil)
	ingestor := parsers.NewStatementIngestor(nil, parsers.IngestOptions{})
	router := NewRouter(RouterConfig{
		Auth:           auth,
		Ledger:         ledger,
		Transfers:      services.NewTransferCoordinator(ledger),
		Recurring:      services.NewRecurringScheduler(ledger, 0, 0),
		Imports:        services.NewStatementImporter(ingestor, ledger, nil, 0),
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	token, err := auth.GenerateToken("user-1")
	if err != nil {
		t.Fatal(err)
	}
	return &apiClient{t: t, router: router, token: token}
}

func (c *apiClient) do(method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	c.t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case []byte:
		rdr = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			c.t.Fatal(err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	for k, v := range header {
		req.Header[k] = v
	}
	if req.Header.Get("Authorization") == "" && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (c *apiClient) createWallet(name, initial string) string {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/wallets", map[string]string{"name": name, "currency": "IDR", "initialBalance": initial}, nil)
	if rec.Code != http.StatusCreated {
		c.t.Fatalf("create wallet: %d %s", rec.Code, rec.Body)
	}
	return decode[map[string]any](c.t, rec)["id"].(string)
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/wallets", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			api.router.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestWalletListETag(t *testing.T) {
	api := newTestAPI(t)
	api.createWallet("BCA", "100000")

	rec := api.do(http.MethodGet, "/api/wallets", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	if wallets := decode[[]map[string]any](t, rec); len(wallets) != 1 || wallets[0]["balance"] != "100000" {
		t.Errorf("wallets = %v", wallets)
	}

	rec = api.do(http.MethodGet, "/api/wallets", nil, http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional GET status = %d, want 304", rec.Code)
	}

	api.createWallet("GoPay", "0")
	rec = api.do(http.MethodGet, "/api/wallets", nil, http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusOK {
		t.Errorf("status after change = %d, want 200", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	api := newTestAPI(t)
	bca := api.createWallet("BCA", "100")
	gopay := api.createWallet("GoPay", "0")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"validation", http.MethodPost, "/api/wallets", map[string]string{"name": "", "currency": "IDR"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/wallets", map[string]string{"nickname": "x"}, http.StatusBadRequest},
		{"not found", http.MethodGet, "/api/wallets/missing", nil, http.StatusNotFound},
		{"insufficient funds", http.MethodPost, "/api/transfers", map[string]string{"fromWalletId": bca, "toWalletId": gopay, "amount": "500"}, http.StatusUnprocessableEntity},
		{"restore missing", http.MethodPost, "/api/transactions/missing/restore", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
			if body := decode[map[string]any](t, rec); body["error"] == nil {
				t.Errorf("missing error message in %v", body)
			}
		})
	}
}

func TestDeleteWalletWithTransactionsReportsCount(t *testing.T) {
	api := newTestAPI(t)
	bca := api.createWallet("BCA", "100")
	gopay := api.createWallet("GoPay", "0")

	rec := api.do(http.MethodDelete, "/api/wallets/"+bca, nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if body := decode[map[string]any](t, rec); body["transactionCount"] != float64(1) {
		t.Errorf("body = %v", body)
	}

	rec = api.do(http.MethodDelete, "/api/wallets/"+bca+"?reassignTo="+gopay, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reassign delete status = %d (%s)", rec.Code, rec.Body)
	}
	rec = api.do(http.MethodGet, "/api/wallets/"+gopay, nil, nil)
	if w := decode[map[string]any](t, rec); w["balance"] != "100" {
		t.Errorf("target wallet = %v", w)
	}
}

func TestTransferLifecycle(t *testing.T) {
	api := newTestAPI(t)
	bca := api.createWallet("BCA", "1000")
	gopay := api.createWallet("GoPay", "0")

	rec := api.do(http.MethodPost, "/api/transfers", map[string]string{"fromWalletId": bca, "toWalletId": gopay, "amount": "400"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transfer: %d %s", rec.Code, rec.Body)
	}
	res := decode[services.TransferResult](t, rec)

	if rec := api.do(http.MethodDelete, "/api/transfers/"+res.IncomeTxn.ID, nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete transfer: %d %s", rec.Code, rec.Body)
	}
	if rec := api.do(http.MethodDelete, "/api/transfers/"+res.ExpenseTxn.ID, nil, nil); rec.Code != http.StatusConflict {
		t.Errorf("second delete: %d, want 409", rec.Code)
	}
	if rec := api.do(http.MethodPost, "/api/transfers/"+res.ExpenseTxn.ID+"/restore", nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("restore transfer: %d %s", rec.Code, rec.Body)
	}

	rec = api.do(http.MethodGet, "/api/wallets/"+gopay, nil, nil)
	if w := decode[map[string]any](t, rec); w["balance"] != "400" {
		t.Errorf("destination wallet = %v", w)
	}
}

func TestImportPreviewAndCommit(t *testing.T) {
	api := newTestAPI(t)
	bca := api.createWallet("BCA", "0")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="bca.csv"`)
	h.Set("Content-Type", "text/csv")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("Tanggal,Keterangan,Debet,Kredit,Saldo\n01/03/2025,TRSF GAJI,,2.000.000,2.000.000\n02/03/2025,GOFOOD,50.000,,1.950.000\n"))
	mw.Close()

	rec := api.do(http.MethodPost, "/api/imports/preview", buf.Bytes(), http.Header{"Content-Type": {mw.FormDataContentType()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body)
	}
	preview := decode[map[string]any](t, rec)
	if preview["bankCode"] != "bca" || len(preview["transactions"].([]any)) != 2 {
		t.Fatalf("preview = %v", preview)
	}

	rec = api.do(http.MethodPost, "/api/imports/commit", map[string]string{"previewId": preview["previewId"].(string), "walletId": bca}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("commit: %d %s", rec.Code, rec.Body)
	}
	rec = api.do(http.MethodGet, "/api/wallets/"+bca, nil, nil)
	if w := decode[map[string]any](t, rec); w["balance"] != "1950000" {
		t.Errorf("wallet = %v", w)
	}

	rec = api.do(http.MethodGet, "/api/transactions?walletId="+bca+"&limit=1", nil, nil)
	if txns := decode[[]map[string]any](t, rec); len(txns) != 1 {
		t.Errorf("limited listing returned %d transactions", len(txns))
	}
}

func TestImportRejectsBinaryUpload(t *testing.T) {
	api := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "statement.pdf")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"))
	mw.Close()

	rec := api.do(http.MethodPost, "/api/imports/preview", buf.Bytes(), http.Header{"Content-Type": {mw.FormDataContentType()}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 (%s)", rec.Code, rec.Body)
	}
}

func TestRecurringConfirmExpired(t *testing.T) {
	api := newTestAPI(t)
	bca := api.createWallet("BCA", "0")

	rec := api.do(http.MethodPost, "/api/recurring", map[string]any{
		"walletId":  bca,
		"amount":    "100",
		"type":      "expense",
		"frequency": "monthly",
		"startDate": "2020-01-31T00:00:00Z",
		"endDate":   "2020-03-31T00:00:00Z",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create recurring: %d %s", rec.Code, rec.Body)
	}
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = api.do(http.MethodPost, "/api/recurring/"+id+"/confirm", nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("confirm expired: %d, want 422 (%s)", rec.Code, rec.Body)
	}
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/wallets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Error("PATCH must be allowed")
	}
}
