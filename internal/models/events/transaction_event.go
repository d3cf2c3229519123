package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
)

// TransactionEvent is published to the event stream for each lifecycle
// change of a transaction.
type TransactionEvent struct {
	EventType     string          `json:"event_type"`
	TransactionID string          `json:"transaction_id"`
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account"`
	Amount        decimal.Decimal `json:"amount"`
	Status        models.Status   `json:"status"`
	RiskScore     int             `json:"risk_score"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewTransactionEvent derives the stream payload from an audit event.
// Fields the audit details do not carry stay zero.
func NewTransactionEvent(e AuditEvent) TransactionEvent {
	ev := TransactionEvent{
		EventType:     e.EventType,
		TransactionID: stringDetail(e.Details, "transactionId"),
		FromAccount:   stringDetail(e.Details, "fromAccountNumber"),
		ToAccount:     stringDetail(e.Details, "toAccountNumber"),
		Amount:        amountDetail(e.Details, "amount"),
		Status:        statusFor(e.EventType),
		RiskScore:     intDetail(e.Details, "riskScore"),
		OccurredAt:    e.Timestamp,
	}
	if score := intDetail(e.Details, "fraudScore"); score != 0 {
		ev.RiskScore = score
	}
	return ev
}

func statusFor(eventType string) models.Status {
	switch eventType {
	case HighRiskTransaction:
		return models.StatusFlagged
	case TransactionCompleted:
		return models.StatusCompleted
	case TransactionFailed:
		return models.StatusFailed
	}
	return ""
}

func stringDetail(details map[string]any, key string) string {
	s, _ := details[key].(string)
	return s
}

func intDetail(details map[string]any, key string) int {
	switch v := details[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func amountDetail(details map[string]any, key string) decimal.Decimal {
	switch v := details[key].(type) {
	case decimal.Decimal:
		return v
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}
