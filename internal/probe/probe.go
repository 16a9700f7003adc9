package probe

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/kpauljoseph/ankix/pkg/logger"
)

const (
	TestKey   = "test_key"
	TestValue = "Redis is working!"
)

var ErrNotConfigured = errors.New("cache is not configured")

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Probe writes a fixed key to the cache and reads it back. It only reports
// reachability; nothing else in the app depends on the cache.
type Probe struct {
	client redis.Cmdable
	logger *logger.Logger
}

func New(client redis.Cmdable, log *logger.Logger) *Probe {
	return &Probe{client: client, logger: log}
}

// NewFromURL builds a probe from a redis:// or rediss:// URL. An empty URL
// gives a probe that always reports ErrNotConfigured.
func NewFromURL(url string, log *logger.Logger) (*Probe, error) {
	if url == "" {
		return New(nil, log), nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache URL: %w", err)
	}
	return New(redis.NewClient(opts), log), nil
}

func (p *Probe) Check(ctx context.Context) Result {
	if err := p.roundTrip(ctx); err != nil {
		p.logger.Error("Redis connection failed: %v", err)
		return Result{Success: false, Error: err.Error()}
	}
	p.logger.Debug("Redis probe succeeded")
	return Result{Success: true, Message: TestValue}
}

func (p *Probe) roundTrip(ctx context.Context) error {
	if p.client == nil {
		return ErrNotConfigured
	}
	if err := p.client.Set(ctx, TestKey, TestValue, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", TestKey, err)
	}
	got, err := p.client.Get(ctx, TestKey).Result()
	if err != nil {
		return fmt.Errorf("get %s: %w", TestKey, err)
	}
	if got != TestValue {
		return fmt.Errorf("unexpected value for %s: %q", TestKey, got)
	}
	return nil
}

func (p *Probe) Close() error {
	if closer, ok := p.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
