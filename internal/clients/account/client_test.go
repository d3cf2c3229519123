package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
)

func TestMutateSendsLegAndDecodesSnapshot(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotAuth   string
		gotBody   map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"account":{"accountNumber":"ACC 1","balance":"900.00","currency":"GBP","status":"active"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/api/", time.Second)
	snapshot, err := client.Mutate(context.Background(), interfaces.MutationRequest{
		Account:     "ACC 1",
		Amount:      decimal.NewFromInt(100),
		Operation:   interfaces.OperationDebit,
		Description: "Transfer to ACC-2",
		Reference:   "tx-1",
	}, "opaque-token")
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}

	if gotMethod != http.MethodPut || gotPath != "/api/accounts/ACC%201/balance" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer opaque-token" {
		t.Fatalf("token not forwarded verbatim: %q", gotAuth)
	}
	if gotBody["operation"] != "debit" || gotBody["reference"] != "tx-1" || gotBody["description"] != "Transfer to ACC-2" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if !snapshot.Balance.Equal(decimal.NewFromInt(900)) || snapshot.AccountNumber != "ACC 1" {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if len(snapshot.Raw) == 0 {
		t.Fatal("expected raw response to be kept")
	}
}

func TestMutateUpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Insufficient funds"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Mutate(context.Background(), interfaces.MutationRequest{
		Account:   "ACC-1",
		Amount:    decimal.NewFromInt(100),
		Operation: interfaces.OperationDebit,
	}, "t")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", upstream.StatusCode)
	}
	if !strings.Contains(err.Error(), "Insufficient funds") {
		t.Fatalf("expected upstream message in error, got %q", err.Error())
	}
	detail, ok := upstream.Detail().(json.RawMessage)
	if !ok || string(detail) != `{"error":"Insufficient funds"}` {
		t.Fatalf("expected raw JSON detail, got %#v", upstream.Detail())
	}
}

func TestMutatePlainTextRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "account frozen", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Mutate(context.Background(), interfaces.MutationRequest{
		Account:   "ACC-1",
		Amount:    decimal.NewFromInt(1),
		Operation: interfaces.OperationCredit,
	}, "t")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Detail() != "account frozen" {
		t.Fatalf("expected trimmed text detail, got %#v", upstream.Detail())
	}
}

func TestMutateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, 50*time.Millisecond).Mutate(context.Background(), interfaces.MutationRequest{
		Account:   "ACC-1",
		Amount:    decimal.NewFromInt(1),
		Operation: interfaces.OperationDebit,
	}, "t")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout in message, got %q", err.Error())
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout was not enforced")
	}
}

func TestMutateRejectsUnknownOperation(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", time.Second).Mutate(context.Background(), interfaces.MutationRequest{
		Account:   "ACC-1",
		Operation: "refund",
	}, "t")
	if err == nil {
		t.Fatal("expected error for unknown operation")
	}
}
