package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidationFailed:  http.StatusBadRequest,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeTransactionFailed: http.StatusBadRequest,
		CodePersistenceFailed: http.StatusInternalServerError,
		CodeConflict:          http.StatusConflict,
		CodeDependencyFailure: http.StatusBadGateway,
		CodeInternalError:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := New(code, "x", nil).HTTPStatus; got != want {
			t.Fatalf("%s: expected %d, got %d", code, want, got)
		}
	}
}

func TestAsUnwrapsAndFallsBack(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("outer: %w", MutationFailed("tx-1", "declined", cause))

	got := As(wrapped)
	if got.Code != CodeTransactionFailed || got.TransactionID != "tx-1" || got.Details != "declined" {
		t.Fatalf("unexpected error %+v", got)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("cause must stay reachable")
	}

	plain := As(errors.New("unexpected"))
	if plain.Code != CodeInternalError || plain.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %+v", plain)
	}
}
