package clock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidTimeTravel is returned when an advance targets a date before the
// current simulated date. The clock is left unchanged.
var ErrInvalidTimeTravel = errors.New("target date precedes current simulated date")

// Runner processes every due financial event in the half-open date range
// (from, to]. The scheduler implements this.
type Runner interface {
	Run(ctx context.Context, from, to time.Time) error
}

// Clock is the process-wide simulated calendar. The current date moves
// forward only through Advance, and only after the runner has applied every
// event up to the target date, so no due event is ever skipped by a large
// jump. There are no wall-clock timers.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	runner  Runner
}

// New creates a clock positioned at start (truncated to a date).
func New(start time.Time, runner Runner) *Clock {
	return &Clock{current: DateOf(start), runner: runner}
}

// DateOf truncates a timestamp to a UTC calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current simulated date.
func (c *Clock) Today() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward to target, driving the runner across every
// intervening date first. On runner failure the clock keeps its previous
// date; already-committed dates are the runner's responsibility to report
// durably so a retry resumes rather than replays.
func (c *Clock) Advance(ctx context.Context, target time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	target = DateOf(target)
	if target.Before(c.current) {
		return ErrInvalidTimeTravel
	}
	if target.Equal(c.current) {
		return nil
	}

	if err := c.runner.Run(ctx, c.current, target); err != nil {
		return err
	}
	c.current = target
	return nil
}

// AdvanceDays advances the clock by n days.
func (c *Clock) AdvanceDays(ctx context.Context, n int) error {
	return c.Advance(ctx, c.Today().AddDate(0, 0, n))
}
