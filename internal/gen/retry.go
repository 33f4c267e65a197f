package gen

import (
	"context"
	"log"
	"time"
)

// WithRetry wraps a generator with bounded fixed-wait retries. The wrapper
// lives at the collaborator boundary; the router never retries.
func WithRetry(g Generator, attempts int, wait time.Duration) Generator {
	if attempts <= 0 {
		attempts = 3
	}
	return &retrying{inner: g, attempts: attempts, wait: wait}
}

type retrying struct {
	inner    Generator
	attempts int
	wait     time.Duration
}

func (r *retrying) Generate(ctx context.Context, gc Context) (string, error) {
	var lastErr error
	for i := 0; i < r.attempts; i++ {
		if i > 0 {
			log.Printf("generator retry attempt=%d err=%v", i+1, lastErr)
			select {
			case <-time.After(r.wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		out, err := r.inner.Generate(ctx, gc)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return "", lastErr
}
