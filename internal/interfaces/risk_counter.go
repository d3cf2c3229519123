package interfaces

import (
	"context"
	"time"
)

// RiskCounter is a keyed counter whose entries expire after a window of
// inactivity. Hit increments the counter for key, refreshes its expiry and
// returns the count observed before the increment.
type RiskCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	Ping(ctx context.Context) error
}
