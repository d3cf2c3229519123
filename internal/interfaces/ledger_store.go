package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
)

var (
	// ErrConflict is returned when a transaction id is already taken.
	ErrConflict = errors.New("transaction already exists")
	// ErrNotFound is returned when updating a transaction that was never created.
	ErrNotFound = errors.New("transaction not found")
)

// TransactionFilter narrows a Find call. Zero values mean "no constraint".
// Results are always sorted by creation time, newest first.
type TransactionFilter struct {
	Account     string // matches either side of the transfer
	FromAccount string
	Status      models.Status
	Since       time.Time
	Limit       int
	Skip        int
}

// LedgerStore persists transaction records.
type LedgerStore interface {
	Create(ctx context.Context, tx models.Transaction) error
	Update(ctx context.Context, tx models.Transaction) error
	Find(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	Ping(ctx context.Context) error
}
