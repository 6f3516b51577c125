// Package hyperbrowser starts and polls Hyperbrowser browser jobs
// (scrape, batch scrape, crawl, extract).
package hyperbrowser

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial = time.Second
	defaultPollCap     = 10 * time.Second
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithTimeout bounds the whole start-and-wait call.
func WithTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// ErrTimeout is returned when a job does not finish within the timeout.
var ErrTimeout = eris.New("hyperbrowser: timeout")

// StartAndWait starts a job and polls it with doubling intervals until it
// completes, fails, or the timeout elapses.
func StartAndWait(ctx context.Context, c Client, kind Kind, req any, opts ...PollOption) (*JobStatus, error) {
	cfg := pollConfig{initial: defaultPollInitial, cap: defaultPollCap}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	id, err := c.StartJob(ctx, kind, req)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}

	interval := cfg.initial
	for {
		status, err := c.GetJob(ctx, kind, id)
		if err != nil {
			return nil, timeoutOr(ctx, eris.Wrapf(err, "hyperbrowser: poll %s %s", kind, id))
		}

		switch status.Status {
		case StatusCompleted:
			return status, nil
		case StatusFailed:
			msg := status.Error
			if msg == "" {
				msg = "job failed"
			}
			return status, eris.Errorf("hyperbrowser: %s %s: %s", kind, id, msg)
		}

		select {
		case <-ctx.Done():
			return nil, timeoutOr(ctx, ctx.Err())
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}

func timeoutOr(ctx context.Context, err error) error {
	if eris.Is(ctx.Err(), context.DeadlineExceeded) {
		return eris.Wrap(ErrTimeout, err.Error())
	}
	return err
}
