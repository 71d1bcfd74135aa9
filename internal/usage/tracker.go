package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultTrackTimeout = 5 * time.Second

// Tracker records one finished analysis.
type Tracker interface {
	Track(ctx context.Context, succeeded bool)
}

// Incrementer is the write side of Repository.
type Incrementer interface {
	IncrementDaily(ctx context.Context, date time.Time, field string, amount int) error
}

// AsyncTracker writes counters in the background. Errors are logged and
// dropped; an analysis never fails because its usage row could not be written.
type AsyncTracker struct {
	repo    Incrementer
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewAsyncTracker(repo Incrementer, logger *slog.Logger) *AsyncTracker {
	return &AsyncTracker{
		repo:    repo,
		logger:  logger.With("component", "usage_tracker"),
		timeout: defaultTrackTimeout,
		now:     time.Now,
	}
}

func (t *AsyncTracker) Track(ctx context.Context, succeeded bool) {
	field := FieldFailed
	if succeeded {
		field = FieldSucceeded
	}
	now := t.now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()

		if err := t.repo.IncrementDaily(ctx, date, field, 1); err != nil {
			t.logger.Warn("failed to track usage", "error", err, "field", field)
		}
	}()
}

// Wait blocks until every pending write has finished.
func (t *AsyncTracker) Wait() {
	t.wg.Wait()
}

type NoOpTracker struct{}

func (NoOpTracker) Track(context.Context, bool) {}
