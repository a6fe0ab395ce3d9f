// internal/loans/dispatcher.go
package loans

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Gamification actions emitted after successful loan mutations.
const (
	ActionBookBorrowed = "BOOK_BORROWED"
	ActionBookReturned = "BOOK_RETURNED"
)

// Notifier is the capability to tell the gamification service about a user action.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, action string) error
}

// Dispatcher delivers notifications best-effort: asynchronously, at most once,
// with no retry. Failures are logged and swallowed; the borrow or return that
// triggered the notification never waits on it or sees its outcome.
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(50), 100),
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Dispatch sends the notification in the background. The outbound call runs
// on a detached context so a slow gamification service cannot hold up the
// request that triggered it.
func (d *Dispatcher) Dispatch(userID uuid.UUID, action string) {
	if !d.limiter.Allow() {
		d.logger.Warn("notification dropped: rate limit exceeded",
			"user_id", userID.String(),
			"action", action,
		)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Notify(ctx, userID, action); err != nil {
			d.logger.Warn("failed to notify gamification service",
				"user_id", userID.String(),
				"action", action,
				"error", err,
			)
			return
		}
		d.logger.Info("notified gamification service",
			"user_id", userID.String(),
			"action", action,
		)
	}()
}

// Close waits for in-flight notifications to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
