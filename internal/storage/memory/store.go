package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"fmt"
	"sort"
	"sync" // standard Go package for concurrency primitives like Mutex

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"                // domain models: Transaction
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// It keeps transactions in a map keyed by id and is safe for concurrent use.
type MemoryLedgerStore struct {
	mu           sync.RWMutex                  // protects transactions from concurrent access
	transactions map[string]models.Transaction // all transactions by id
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		transactions: make(map[string]models.Transaction),
	}
}

// Create stores a new transaction. A second transaction with the same id is
// rejected with ErrConflict.
func (m *MemoryLedgerStore) Create(ctx context.Context, tx models.Transaction) error {

	m.mu.Lock()         // lock the mutex to prevent concurrent writes
	defer m.mu.Unlock() // unlock automatically when function exits (even if error occurs)

	if _, exists := m.transactions[tx.ID]; exists {
		return fmt.Errorf("create %s: %w", tx.ID, interfaces.ErrConflict)
	}
	m.transactions[tx.ID] = tx
	return nil
}

// Update replaces the status and processing time of an existing pending
// transaction. Every other field is kept as first stored.
func (m *MemoryLedgerStore) Update(ctx context.Context, tx models.Transaction) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.transactions[tx.ID]
	if !exists {
		return fmt.Errorf("update %s: %w", tx.ID, interfaces.ErrNotFound)
	}
	if stored.Status != models.StatusPending {
		return fmt.Errorf("update %s: %w: %s -> %s", tx.ID, models.ErrInvalidTransition, stored.Status, tx.Status)
	}

	stored.Status = tx.Status
	stored.ProcessedAt = tx.ProcessedAt
	m.transactions[tx.ID] = stored
	return nil
}

// Find returns the transactions matching filter, newest first.
func (m *MemoryLedgerStore) Find(ctx context.Context, filter interfaces.TransactionFilter) ([]models.Transaction, error) {

	m.mu.RLock()         // lock to prevent concurrent modification while reading
	defer m.mu.RUnlock() // unlock automatically at the end

	result := make([]models.Transaction, 0)
	for _, tx := range m.transactions {
		if matches(tx, filter) {
			result = append(result, tx)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID // same order as the SQL store
	})

	if filter.Skip > 0 {
		if filter.Skip >= len(result) {
			return []models.Transaction{}, nil
		}
		result = result[filter.Skip:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil // values are copies so callers can't modify internal state
}

// Ping always succeeds; the store lives in process.
func (m *MemoryLedgerStore) Ping(ctx context.Context) error {
	return nil
}

func matches(tx models.Transaction, filter interfaces.TransactionFilter) bool {
	if filter.Account != "" && tx.FromAccount != filter.Account && tx.ToAccount != filter.Account {
		return false
	}
	if filter.FromAccount != "" && tx.FromAccount != filter.FromAccount {
		return false
	}
	if filter.Status != "" && tx.Status != filter.Status {
		return false
	}
	if !filter.Since.IsZero() && tx.CreatedAt.Before(filter.Since) {
		return false
	}
	return true
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
