package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/tablecheck/internal/locator"
)

// Default wait bounds.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// Condition is polled by a Waiter until it reports true.
type Condition func(ctx context.Context) (bool, error)

// Waiter polls a Condition until it holds or the timeout expires.
type Waiter struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Until blocks until cond returns true, cond returns an error, ctx is done
// or the timeout expires. Expiry returns an error wrapping ErrTimeout.
func (w Waiter) Until(ctx context.Context, cond Condition) error {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		timer := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WaitPresent waits until ref matches an element and returns it.
func (w Waiter) WaitPresent(ctx context.Context, s Session, ref locator.Reference) (Element, error) {
	var found Element
	err := w.Until(ctx, func(ctx context.Context) (bool, error) {
		el, err := s.Find(ctx, ref)
		if IsTransient(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		found = el
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for presence of %s: %w", ref, err)
	}
	return found, nil
}

// WaitClickable waits until ref matches an element that is displayed and
// enabled, and returns it.
func (w Waiter) WaitClickable(ctx context.Context, s Session, ref locator.Reference) (Element, error) {
	var found Element
	err := w.Until(ctx, func(ctx context.Context) (bool, error) {
		el, err := s.Find(ctx, ref)
		if IsTransient(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		ok, err := Interactable(ctx, el)
		if IsTransient(err) {
			return false, nil
		}
		if err != nil || !ok {
			return false, err
		}
		found = el
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for %s to be clickable: %w", ref, err)
	}
	return found, nil
}

// Interactable reports whether el is displayed and enabled.
func Interactable(ctx context.Context, el Element) (bool, error) {
	shown, err := el.Displayed(ctx)
	if err != nil || !shown {
		return false, err
	}
	return el.Enabled(ctx)
}
