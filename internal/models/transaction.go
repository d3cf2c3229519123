package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the informational kind of a transaction. It never changes how the
// transfer is orchestrated.
type Type string

const (
	TypeTransfer   Type = "transfer"
	TypePayment    Type = "payment"
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
)

// Valid reports whether t is one of the known transaction kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeTransfer, TypePayment, TypeDeposit, TypeWithdrawal:
		return true
	}
	return false
}

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFlagged   Status = "flagged"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusFlagged, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusFlagged || s == StatusCompleted || s == StatusFailed
}

// DefaultCurrency is attached when the caller does not name one.
const DefaultCurrency = "GBP"

// ErrInvalidTransition is returned when a status change would move a
// transaction backwards or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")

// Metadata carries request-incidental context kept for audit purposes.
type Metadata struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Transaction represents an intent to transfer money and its outcome
type Transaction struct {
	ID          string          `json:"transactionId"`
	FromAccount string          `json:"fromAccountNumber"`
	ToAccount   string          `json:"toAccountNumber"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Type        Type            `json:"type"`
	Status      Status          `json:"status"`
	Description string          `json:"description,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	RiskScore   int             `json:"riskScore"`
	Metadata    Metadata        `json:"metadata"`
	CreatedAt   time.Time       `json:"createdAt"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
}

// Transition moves the transaction to the next status. Only pending
// transactions can move, and only to completed or failed.
func (t *Transaction) Transition(to Status, at time.Time) error {
	if t.Status != StatusPending || (to != StatusCompleted && to != StatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	processed := at
	t.ProcessedAt = &processed
	return nil
}
