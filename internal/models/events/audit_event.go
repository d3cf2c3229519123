package events

import "time"

// Audit event types emitted over the transaction lifecycle.
const (
	HighRiskTransaction  = "HIGH_RISK_TRANSACTION"
	TransactionCompleted = "TRANSACTION_COMPLETED"
	TransactionFailed    = "TRANSACTION_FAILED"
)

// ServiceSource identifies this service in audit records.
const ServiceSource = "transaction-service"

// AuditEvent is the payload accepted by the audit service.
type AuditEvent struct {
	EventType     string         `json:"eventType"`
	ServiceSource string         `json:"serviceSource"`
	UserID        string         `json:"userId"`
	Details       map[string]any `json:"details"`
	Timestamp     time.Time      `json:"timestamp"`
}
