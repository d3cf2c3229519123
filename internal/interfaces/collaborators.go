package interfaces

import (
	"context"

	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
	"github.com/shopspring/decimal"
)

// Operation is one leg of a transfer as understood by the account service.
type Operation string

const (
	OperationDebit  Operation = "debit"
	OperationCredit Operation = "credit"
)

// MutationRequest asks the account service to move a balance.
type MutationRequest struct {
	Account     string
	Amount      decimal.Decimal
	Operation   Operation
	Description string
	Reference   string
}

// BalanceMutator applies a single leg against the external account ledger.
// authToken is forwarded unchanged and never inspected.
type BalanceMutator interface {
	Mutate(ctx context.Context, req MutationRequest, authToken string) (models.AccountSnapshot, error)
}

// AuditEmitter reports lifecycle events. Implementations must not block or fail.
type AuditEmitter interface {
	Emit(eventType string, details map[string]any, userID string)
}

// IdentityVerifier resolves the caller behind an opaque bearer credential.
type IdentityVerifier interface {
	Verify(ctx context.Context, authToken string) (models.Identity, error)
}
