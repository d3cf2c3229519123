package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AccountSnapshot is the account state returned by the account service
// after a balance mutation. Raw keeps the full upstream payload.
type AccountSnapshot struct {
	AccountNumber string          `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Raw           json.RawMessage `json:"-"`
}

// Identity is the caller as vouched for by the identity service.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}
