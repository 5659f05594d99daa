package agent

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration // default 5s
	OnRetry    func(attempt int, delay time.Duration)
}

// RetryRunner wraps any Runner with exponential backoff retry logic.
// Delays: BaseDelay, BaseDelay*2, BaseDelay*4, ...
type RetryRunner struct {
	Inner Runner
	Cfg   RetryConfig
}

// Run delegates to the inner runner, retrying on failure.
func (r *RetryRunner) Run(ctx context.Context, prompt string) (string, error) {
	cfg := r.Cfg
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 5 * time.Second
	}

	delay := cfg.BaseDelay
	for attempt := 0; ; attempt++ {
		out, err := r.Inner.Run(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if attempt >= cfg.MaxRetries {
			return "", fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, err)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
