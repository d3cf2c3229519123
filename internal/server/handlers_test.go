package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transaction-orchestrator/internal/apperr"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/clients/identity"
	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/ledger"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct {
	identity models.Identity
	err      error
	token    string
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (models.Identity, error) {
	s.token = token
	return s.identity, s.err
}

type stubService struct {
	req    ledger.TransferRequest
	filter interfaces.TransactionFilter
	tx     models.Transaction
	list   []models.Transaction
	err    error
}

func (s *stubService) PostTransaction(ctx context.Context, req ledger.TransferRequest) (models.Transaction, error) {
	s.req = req
	return s.tx, s.err
}

func (s *stubService) ListTransactions(ctx context.Context, filter interfaces.TransactionFilter) ([]models.Transaction, error) {
	s.filter = filter
	return s.list, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func newTestRouter(svc TransactionService, verifier interfaces.IdentityVerifier, deps ...Dependency) *gin.Engine {
	logger := zerolog.New(io.Discard)
	return NewRouter(logger, NewHandler(svc, logger, deps...), verifier)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var payload errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return payload
}

func TestCreateTransactionRequiresToken(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc, &stubVerifier{})

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", "", map[string]any{"amount": 1})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != apperr.CodeUnauthorized || got.Error != "Access denied" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestCreateTransactionRejectedToken(t *testing.T) {
	router := newTestRouter(&stubService{}, &stubVerifier{err: identity.ErrRejected})

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", "bad", map[string]any{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Error != "Invalid token" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestCreateTransactionIdentityDown(t *testing.T) {
	router := newTestRouter(&stubService{}, &stubVerifier{err: errors.New("dial tcp: refused")})

	rec := doJSON(t, router, http.MethodGet, "/api/transactions", "tok", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestCreateTransactionCreated(t *testing.T) {
	created := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubService{tx: models.Transaction{
		ID:          "tx-1",
		FromAccount: "ACC-1",
		ToAccount:   "ACC-2",
		Amount:      decimal.RequireFromString("42.50"),
		Currency:    "GBP",
		Type:        models.TypeTransfer,
		Status:      models.StatusCompleted,
		CreatedAt:   created,
	}}
	verifier := &stubVerifier{identity: models.Identity{UserID: "user-1"}}
	router := newTestRouter(svc, verifier)

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", "opaque.token", map[string]any{
		"fromAccountNumber": "ACC-1",
		"toAccountNumber":   "ACC-2",
		"amount":            "42.50",
		"type":              "transfer",
		"description":       "lunch",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	if verifier.token != "opaque.token" || svc.req.AuthToken != "opaque.token" {
		t.Fatalf("token not passed through: verifier=%q service=%q", verifier.token, svc.req.AuthToken)
	}
	if svc.req.UserID != "user-1" || svc.req.Type != models.TypeTransfer || !svc.req.Amount.Equal(decimal.RequireFromString("42.5")) {
		t.Fatalf("unexpected request %+v", svc.req)
	}
	if svc.req.Metadata.UserAgent != "handler-test" || svc.req.Metadata.IPAddress == "" {
		t.Fatalf("expected request metadata, got %+v", svc.req.Metadata)
	}

	var got models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "tx-1" || got.Status != models.StatusCompleted {
		t.Fatalf("unexpected body %+v", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestCreateTransactionBadBody(t *testing.T) {
	router := newTestRouter(&stubService{}, &stubVerifier{identity: models.Identity{UserID: "u"}})

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", "tok", `{"amount":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != apperr.CodeValidationFailed {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestCreateTransactionFailedLeg(t *testing.T) {
	svc := &stubService{err: apperr.MutationFailed("tx-9", json.RawMessage(`{"error":"Insufficient funds"}`), errors.New("rejected"))}
	router := newTestRouter(svc, &stubVerifier{identity: models.Identity{UserID: "u"}})

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", "tok", map[string]any{
		"fromAccountNumber": "ACC-1",
		"toAccountNumber":   "ACC-2",
		"amount":            10,
		"type":              "payment",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body struct {
		Error         string          `json:"error"`
		Details       json.RawMessage `json:"details"`
		TransactionID string          `json:"transactionId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "Transaction failed" || body.TransactionID != "tx-9" || string(body.Details) != `{"error":"Insufficient funds"}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestListTransactionsQuery(t *testing.T) {
	svc := &stubService{list: []models.Transaction{{ID: "b"}, {ID: "a"}}}
	router := newTestRouter(svc, &stubVerifier{identity: models.Identity{UserID: "u"}})

	rec := doJSON(t, router, http.MethodGet, "/api/transactions?accountNumber=ACC-1&status=completed&limit=5&skip=10", "tok", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := interfaces.TransactionFilter{Account: "ACC-1", Status: models.StatusCompleted, Limit: 5, Skip: 10}
	if svc.filter != want {
		t.Fatalf("expected filter %+v, got %+v", want, svc.filter)
	}

	var got []models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("unexpected list %+v", got)
	}

	doJSON(t, router, http.MethodGet, "/api/transactions?limit=abc", "tok", nil)
	if svc.filter.Limit != ledger.DefaultPageSize || svc.filter.Skip != 0 {
		t.Fatalf("expected defaults for unparsable paging, got %+v", svc.filter)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubService{}, &stubVerifier{},
		Dependency{Name: "store", Pinger: stubPinger{}},
		Dependency{Name: "cache", Pinger: stubPinger{}},
	)
	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	router = newTestRouter(&stubService{}, &stubVerifier{},
		Dependency{Name: "store", Pinger: stubPinger{}},
		Dependency{Name: "cache", Pinger: stubPinger{err: errors.New("redis down")}},
	)
	rec = doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" || body.Dependencies["cache"] != "disconnected" || body.Dependencies["store"] != "connected" {
		t.Fatalf("unexpected health body %+v", body)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	router := newTestRouter(&stubService{}, &stubVerifier{identity: models.Identity{UserID: "u"}})
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := doJSON(t, router, http.MethodGet, "/boom", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer xyz":   "xyz",
		"Bearer  pad ": "pad",
		"Basic abc":    "",
		"Bearer ":      "",
		"":             "",
	}
	for header, want := range cases {
		got, ok := bearerToken(header)
		if got != want || ok != (want != "") {
			t.Fatalf("%q: expected %q, got %q (%v)", header, want, got, ok)
		}
	}
}
