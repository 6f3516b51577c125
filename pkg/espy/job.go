package espy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// State is the lifecycle position of a lookup job.
type State int

const (
	StateSubmitted State = iota
	StatePolling
	StateCompleted
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timeout"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further polling should happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateFailed
}

var (
	successStatuses = map[string]bool{"completed": true, "complete": true, "done": true, "finished": true, "success": true}
	failureStatuses = map[string]bool{"failed": true, "error": true}
)

// Job tracks one started lookup.
type Job struct {
	RequestID string
	State     State
	Attempts  int
	// Start is the start-call response; Last is the most recent poll
	// response.
	Start map[string]any
	Last  map[string]any
}

// Advance applies one poll response and returns the new state.
func (j *Job) Advance(resp map[string]any) State {
	j.Attempts++
	j.Last = resp
	status, _ := resp["status"].(string)
	status = strings.ToLower(strings.TrimSpace(status))
	switch {
	case successStatuses[status]:
		j.State = StateCompleted
	case failureStatuses[status]:
		j.State = StateFailed
	default:
		j.State = StatePolling
	}
	return j.State
}

// PollTimeoutError is returned when polling ends without a terminal status.
// It carries the last observed poll response.
type PollTimeoutError struct {
	RequestID    string
	Attempts     int
	LastResponse map[string]any
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("espy: request %s not finished after %d polls", e.RequestID, e.Attempts)
}

func (e *PollTimeoutError) Unwrap() error { return ErrPollExhausted }

// Wait polls job at the fixed interval until it completes, fails, or runs
// out of attempts. The completed poll response is returned.
func (c *Client) Wait(ctx context.Context, job *Job) (map[string]any, error) {
	for !job.State.Terminal() {
		if job.Attempts >= c.pollAttempts {
			job.State = StateTimedOut
			break
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, eris.Wrapf(err, "espy: wait for %s", job.RequestID)
		}
		resp, err := c.Poll(ctx, job.RequestID)
		if err != nil {
			job.State = StateFailed
			c.observe(job.State)
			return nil, err
		}
		job.Advance(resp)
	}

	c.observe(job.State)
	switch job.State {
	case StateCompleted:
		return job.Last, nil
	case StateFailed:
		return nil, eris.Wrapf(ErrJobFailed, "espy: request %s", job.RequestID)
	default:
		return nil, &PollTimeoutError{RequestID: job.RequestID, Attempts: job.Attempts, LastResponse: job.Last}
	}
}

func (c *Client) observe(s State) {
	if c.observer != nil {
		c.observer.ObservePoll(s.String())
	}
}
