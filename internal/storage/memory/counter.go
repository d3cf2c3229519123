package memory

import (
	"context"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
)

const sweepEvery = 256

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryRiskCounter is a process-local RiskCounter. It is only shared by
// requests served by the same instance; use the Redis counter when several
// instances run side by side.
type MemoryRiskCounter struct {
	mu      sync.Mutex
	entries map[string]counterEntry
	hits    int
	now     func() time.Time
}

// NewMemoryRiskCounter creates an empty counter store.
func NewMemoryRiskCounter() *MemoryRiskCounter {
	return &MemoryRiskCounter{
		entries: make(map[string]counterEntry),
		now:     time.Now,
	}
}

// Hit returns the live count for key and then increments it, pushing the
// expiry out to now+window.
func (c *MemoryRiskCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = counterEntry{}
	}
	prior := entry.count

	entry.count++
	entry.expiresAt = now.Add(window)
	c.entries[key] = entry

	c.hits++
	if c.hits%sweepEvery == 0 {
		c.sweep(now)
	}
	return prior, nil
}

func (c *MemoryRiskCounter) Ping(ctx context.Context) error {
	return nil
}

// sweep drops expired entries so idle users do not accumulate.
func (c *MemoryRiskCounter) sweep(now time.Time) {
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

var _ interfaces.RiskCounter = (*MemoryRiskCounter)(nil)
