package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transaction-orchestrator/internal/apperr"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/fraud"
	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models/events"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// RiskScorer scores a draft. Implementations never fail; missing signals
// count as zero.
type RiskScorer interface {
	Score(ctx context.Context, draft fraud.Draft) int
}

// TransferRequest is a validated-on-entry request to move money.
type TransferRequest struct {
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	Currency    string
	Type        models.Type
	Description string
	UserID      string
	AuthToken   string // forwarded to the account service untouched
	Metadata    models.Metadata
}

// Ledger orchestrates transfers: it scores a draft, then either parks it
// as flagged or executes the debit and credit legs against the account
// service, recording the outcome and reporting it to audit.
type Ledger struct {
	store   interfaces.LedgerStore    // where transaction records live
	scorer  RiskScorer                // fraud risk of a draft
	mutator interfaces.BalanceMutator // external balance legs
	auditor interfaces.AuditEmitter   // best-effort lifecycle reporting
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// NewLedger wires the orchestrator from its collaborators.
func NewLedger(store interfaces.LedgerStore, scorer RiskScorer, mutator interfaces.BalanceMutator, auditor interfaces.AuditEmitter, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		scorer:  scorer,
		mutator: mutator,
		auditor: auditor,
		logger:  logger.With().Str("component", "ledger").Logger(),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// PostTransaction runs one transfer to a terminal state and returns the
// recorded transaction. The workflow ignores caller cancellation: once a
// debit may have been issued it must reach completed or failed.
func (l *Ledger) PostTransaction(ctx context.Context, req TransferRequest) (models.Transaction, error) {
	if err := validate(req); err != nil {
		return models.Transaction{}, err
	}
	ctx = context.WithoutCancel(ctx)

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}

	tx := models.Transaction{
		ID:          l.newID(),
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
		Currency:    currency,
		Type:        req.Type,
		Status:      models.StatusPending,
		Description: req.Description,
		UserID:      req.UserID,
		Metadata:    req.Metadata,
		CreatedAt:   l.now().UTC(),
	}

	tx.RiskScore = l.scorer.Score(ctx, fraud.Draft{
		FromAccount: tx.FromAccount,
		ToAccount:   tx.ToAccount,
		Amount:      tx.Amount,
		UserID:      tx.UserID,
	})

	log := l.logger.With().
		Str("transactionId", tx.ID).
		Str("userId", tx.UserID).
		Int("riskScore", tx.RiskScore).
		Logger()

	if tx.RiskScore > fraud.FlagThreshold {
		return l.flag(ctx, tx, log)
	}

	if err := l.store.Create(ctx, tx); err != nil {
		log.Error().Err(err).Msg("failed to record pending transaction")
		return tx, persistenceError(tx.ID, err)
	}

	// Debit first; the credit is only attempted once the debit has landed.
	if _, err := l.mutator.Mutate(ctx, interfaces.MutationRequest{
		Account:     tx.FromAccount,
		Amount:      tx.Amount,
		Operation:   interfaces.OperationDebit,
		Description: "Transfer to " + tx.ToAccount,
		Reference:   tx.ID,
	}, req.AuthToken); err != nil {
		return l.fail(ctx, tx, err, false, log)
	}

	if _, err := l.mutator.Mutate(ctx, interfaces.MutationRequest{
		Account:     tx.ToAccount,
		Amount:      tx.Amount,
		Operation:   interfaces.OperationCredit,
		Description: "Transfer from " + tx.FromAccount,
		Reference:   tx.ID,
	}, req.AuthToken); err != nil {
		return l.fail(ctx, tx, err, true, log)
	}

	if err := tx.Transition(models.StatusCompleted, l.now().UTC()); err != nil {
		return tx, apperr.Internal("Transaction failed", err)
	}
	updateErr := l.store.Update(ctx, tx)

	l.auditor.Emit(events.TransactionCompleted, map[string]any{
		"transactionId":     tx.ID,
		"riskScore":         tx.RiskScore,
		"amount":            tx.Amount,
		"fromAccountNumber": tx.FromAccount,
		"toAccountNumber":   tx.ToAccount,
	}, tx.UserID)

	if updateErr != nil {
		// both legs are applied upstream; only our record is stale
		log.Error().Err(updateErr).Str("alert", "completed_not_recorded").
			Msg("transfer completed but ledger update failed")
		return tx, persistenceError(tx.ID, updateErr)
	}

	log.Info().Msg("transaction completed")
	return tx, nil
}

// flag records a high-risk draft without touching any balance.
func (l *Ledger) flag(ctx context.Context, tx models.Transaction, log zerolog.Logger) (models.Transaction, error) {
	tx.Status = models.StatusFlagged
	createErr := l.store.Create(ctx, tx)

	l.auditor.Emit(events.HighRiskTransaction, map[string]any{
		"transactionId":     tx.ID,
		"fraudScore":        tx.RiskScore,
		"amount":            tx.Amount,
		"fromAccountNumber": tx.FromAccount,
		"toAccountNumber":   tx.ToAccount,
	}, tx.UserID)

	if createErr != nil {
		log.Error().Err(createErr).Msg("failed to record flagged transaction")
		return tx, persistenceError(tx.ID, createErr)
	}

	log.Warn().Msg("transaction flagged for review")
	return tx, nil
}

// fail moves tx to failed after a leg error. When debitApplied is true the
// source account has already been charged and nothing credits it back.
func (l *Ledger) fail(ctx context.Context, tx models.Transaction, cause error, debitApplied bool, log zerolog.Logger) (models.Transaction, error) {
	if err := tx.Transition(models.StatusFailed, l.now().UTC()); err != nil {
		return tx, apperr.Internal("Transaction failed", err)
	}

	if debitApplied {
		log.Error().Err(cause).
			Str("alert", "unbalanced_transfer").
			Str("fromAccount", tx.FromAccount).
			Str("toAccount", tx.ToAccount).
			Str("amount", tx.Amount.String()).
			Msg("credit failed after debit was applied; source account left debited")
	} else {
		log.Warn().Err(cause).Msg("transaction processing failed")
	}

	updateErr := l.store.Update(ctx, tx)

	l.auditor.Emit(events.TransactionFailed, map[string]any{
		"transactionId":     tx.ID,
		"error":             cause.Error(),
		"debitApplied":      debitApplied,
		"amount":            tx.Amount,
		"fromAccountNumber": tx.FromAccount,
		"toAccountNumber":   tx.ToAccount,
	}, tx.UserID)

	if updateErr != nil {
		// the stored record is still pending
		log.Error().Err(updateErr).Str("alert", "failed_not_recorded").
			Msg("transfer failed and ledger update failed")
		return tx, apperr.Persistence(tx.ID, updateErr).WithDetails(upstreamDetail(cause))
	}

	return tx, apperr.MutationFailed(tx.ID, upstreamDetail(cause), cause)
}

// ListTransactions returns recorded transactions matching filter, newest
// first. Limit defaults to DefaultPageSize and is capped at MaxPageSize.
func (l *Ledger) ListTransactions(ctx context.Context, filter interfaces.TransactionFilter) ([]models.Transaction, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}

	transactions, err := l.store.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch transactions", err)
	}
	return transactions, nil
}

func validate(req TransferRequest) error {
	if strings.TrimSpace(req.FromAccount) == "" || strings.TrimSpace(req.ToAccount) == "" {
		return apperr.Validation("Account numbers required")
	}
	if req.Amount.Cmp(decimal.Zero) <= 0 {
		return apperr.Validation("Invalid amount")
	}
	if !req.Type.Valid() {
		return apperr.Validation("Invalid transaction type")
	}
	return nil
}

func persistenceError(txID string, err error) error {
	if errors.Is(err, interfaces.ErrConflict) {
		return apperr.New(apperr.CodeConflict, "Transaction already exists", err).WithTransaction(txID)
	}
	return apperr.Persistence(txID, err)
}

// upstreamDetail returns the payload the account service sent back, or the
// error text when there was no response.
func upstreamDetail(err error) any {
	var detailed interface{ Detail() any }
	if errors.As(err, &detailed) {
		return detailed.Detail()
	}
	return fmt.Sprint(err)
}
