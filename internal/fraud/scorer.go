// Package fraud scores transfer drafts for risk. Scoring is additive over
// independent bands and fails open: a band whose signal cannot be read
// contributes nothing instead of blocking the transfer.
package fraud

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
)

const (
	// FlagThreshold is the highest score still executed automatically.
	FlagThreshold = 70
	// MaxScore caps the summed bands.
	MaxScore = 100

	// Window is the trailing period for frequency and repetition checks.
	Window = time.Hour
	// HistoryLimit bounds how many recent transactions the repetition band inspects.
	HistoryLimit = 5

	highAmountScore      = 30
	elevatedAmountScore  = 15
	highFrequencyScore   = 25
	mediumFrequencyScore = 10
	repetitionScore      = 40

	highFrequencyCount   = 10
	mediumFrequencyCount = 5
	repetitionCount      = 3
)

var (
	highAmount     = decimal.NewFromInt(10000)
	elevatedAmount = decimal.NewFromInt(5000)
)

// History returns the most recent transactions sent from account since the
// given time, newest first.
type History interface {
	RecentFromAccount(ctx context.Context, account string, since time.Time, limit int) ([]models.Transaction, error)
}

// StoreHistory adapts a LedgerStore to History.
type StoreHistory struct {
	Store interfaces.LedgerStore
}

func (h StoreHistory) RecentFromAccount(ctx context.Context, account string, since time.Time, limit int) ([]models.Transaction, error) {
	return h.Store.Find(ctx, interfaces.TransactionFilter{
		FromAccount: account,
		Since:       since,
		Limit:       limit,
	})
}

// Draft is the part of a transfer the scorer looks at.
type Draft struct {
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	UserID      string
}

// Breakdown records each band's contribution. Degraded lists the bands
// whose signal was unavailable.
type Breakdown struct {
	Amount     int
	Frequency  int
	Repetition int
	Total      int
	Degraded   []string
}

// Scorer computes fraud risk from the amount, the user's recent activity
// and repeated amounts out of the same account.
type Scorer struct {
	history History
	counter interfaces.RiskCounter
	logger  zerolog.Logger
	now     func() time.Time
}

// NewScorer builds a Scorer. A nil history or counter disables its band.
func NewScorer(history History, counter interfaces.RiskCounter, logger zerolog.Logger) *Scorer {
	return &Scorer{
		history: history,
		counter: counter,
		logger:  logger.With().Str("component", "fraud_scorer").Logger(),
		now:     time.Now,
	}
}

// Score returns the clamped risk score for draft.
func (s *Scorer) Score(ctx context.Context, draft Draft) int {
	return s.Evaluate(ctx, draft).Total
}

// Evaluate computes every band and the clamped total. The frequency band
// always records the draft against the user's counter.
func (s *Scorer) Evaluate(ctx context.Context, draft Draft) Breakdown {
	var b Breakdown

	b.Amount = amountBand(draft.Amount)

	frequency, err := s.frequencyBand(ctx, draft.UserID)
	if err != nil {
		b.Degraded = append(b.Degraded, "frequency")
		s.logger.Warn().Err(err).Str("degraded", "frequency").Str("userId", draft.UserID).
			Msg("risk counter unavailable, frequency band skipped")
	}
	b.Frequency = frequency

	repetition, err := s.repetitionBand(ctx, draft)
	if err != nil {
		b.Degraded = append(b.Degraded, "repetition")
		s.logger.Warn().Err(err).Str("degraded", "repetition").Str("fromAccount", draft.FromAccount).
			Msg("transaction history unavailable, repetition band skipped")
	}
	b.Repetition = repetition

	b.Total = clamp(b.Amount + b.Frequency + b.Repetition)
	return b
}

func amountBand(amount decimal.Decimal) int {
	switch {
	case amount.GreaterThan(highAmount):
		return highAmountScore
	case amount.GreaterThan(elevatedAmount):
		return elevatedAmountScore
	default:
		return 0
	}
}

func (s *Scorer) frequencyBand(ctx context.Context, userID string) (int, error) {
	if s.counter == nil {
		return 0, errNoCounter
	}
	if userID == "" {
		return 0, errNoUser
	}
	prior, err := s.counter.Hit(ctx, userID, Window)
	if err != nil {
		return 0, err
	}
	switch {
	case prior > highFrequencyCount:
		return highFrequencyScore, nil
	case prior > mediumFrequencyCount:
		return mediumFrequencyScore, nil
	default:
		return 0, nil
	}
}

func (s *Scorer) repetitionBand(ctx context.Context, draft Draft) (int, error) {
	if s.history == nil {
		return 0, errNoHistory
	}
	recent, err := s.history.RecentFromAccount(ctx, draft.FromAccount, s.now().Add(-Window), HistoryLimit)
	if err != nil {
		return 0, err
	}
	same := 0
	for _, tx := range recent {
		if tx.Amount.Equal(draft.Amount) {
			same++
		}
	}
	if same >= repetitionCount {
		return repetitionScore, nil
	}
	return 0, nil
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
