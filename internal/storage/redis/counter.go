package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
)

// keyPrefix namespaces per-user frequency counters.
const keyPrefix = "user_txn_count:"

// RiskCounter keeps per-user transaction counts in Redis so every
// orchestrator instance sees the same trailing window.
type RiskCounter struct {
	client goredis.UniversalClient
}

// NewRiskCounter wraps an existing Redis client.
func NewRiskCounter(client goredis.UniversalClient) *RiskCounter {
	return &RiskCounter{client: client}
}

// Options configures Dial.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Dial creates a client for opts. Connectivity is not checked here; a
// missing Redis only degrades scoring.
func Dial(opts Options) *RiskCounter {
	return NewRiskCounter(goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}))
}

// Hit increments the counter for key and refreshes its TTL in one MULTI
// block, returning the value held before the increment.
func (c *RiskCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := keyPrefix + key

	var incr *goredis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.Expire(ctx, fullKey, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis hit %s: %w", fullKey, err)
	}
	return incr.Val() - 1, nil
}

func (c *RiskCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RiskCounter) Close() error {
	return c.client.Close()
}

var _ interfaces.RiskCounter = (*RiskCounter)(nil)
