package retryutil

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultDelay   = 2 * time.Second
	defaultTimeout = 10 * time.Second
)

// Async runs fn once in the background after delay, with a bounded timeout.
// It is used for best-effort persistence (decision traces, message appends)
// that must never block or fail the reply path: the outcome is only logged.
func Async(logger *slog.Logger, name string, fn func(ctx context.Context) error) {
	AsyncWithDelay(logger, name, defaultDelay, defaultTimeout, fn)
}

func AsyncWithDelay(logger *slog.Logger, name string, delay, timeout time.Duration, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	if delay < 0 {
		delay = defaultDelay
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			<-timer.C
			timer.Stop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			if logger != nil {
				logger.Warn(name+"_retry_failed", "error", err.Error())
			}
			return
		}
		if logger != nil {
			logger.Info(name + "_retry_ok")
		}
	}()
}
