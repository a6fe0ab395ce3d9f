// internal/loans/dispatcher_test.go
package loans

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestDispatcherDeliversActions(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, discardLogger())

	d.Dispatch(uuid.New(), ActionBookBorrowed)
	d.Dispatch(uuid.New(), ActionBookReturned)
	d.Close()

	assert.ElementsMatch(t, []string{ActionBookBorrowed, ActionBookReturned}, notifier.recorded())
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("boom")}
	d := NewDispatcher(notifier, discardLogger())

	d.Dispatch(uuid.New(), ActionBookBorrowed)
	d.Close()

	assert.Len(t, notifier.recorded(), 1, "the attempt is made exactly once, with no retry")
}

func TestDispatcherDropsWhenRateLimited(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, discardLogger())
	d.limiter = rate.NewLimiter(0, 0)

	d.Dispatch(uuid.New(), ActionBookBorrowed)
	d.Close()

	assert.Empty(t, notifier.recorded(), "over-limit dispatches are dropped, not queued")
}
