package counter

import (
	"context"

	"github.com/kpauljoseph/ankix/pkg/logger"
)

// Store persists the global "flashcards created" counter. Add must be a
// single atomic operation in the backing store and return the value the
// counter held before the increment.
type Store interface {
	Current(ctx context.Context) (int64, error)
	Add(ctx context.Context, n int64) (int64, error)
	Diagnose(ctx context.Context) error
}

// Client hides store failures from callers: any error is logged and
// reported as nil, which means "unknown" and must never be read as zero.
type Client struct {
	store  Store
	logger *logger.Logger
}

func NewClient(store Store, log *logger.Logger) *Client {
	return &Client{
		store:  store,
		logger: log,
	}
}

func (c *Client) Current(ctx context.Context) *int64 {
	value, err := c.store.Current(ctx)
	if err != nil {
		c.logger.Error("Database error: %v", err)
		return nil
	}
	return &value
}

// GetAndIncrement adds n and returns the value from before the increment.
func (c *Client) GetAndIncrement(ctx context.Context, n int) *int64 {
	previous, err := c.store.Add(ctx, int64(n))
	if err != nil {
		c.logger.Error("Database error: %v", err)
		return nil
	}
	c.logger.Debug("Counter incremented by %d (was %d)", n, previous)
	return &previous
}

func (c *Client) Diagnose(ctx context.Context) bool {
	if err := c.store.Diagnose(ctx); err != nil {
		c.logger.Error("Database diagnostic failed: %v", err)
		return false
	}
	return true
}
