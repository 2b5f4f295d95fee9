package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telegram-resume-board/internal/config"
	"telegram-resume-board/internal/domain/ports/adapter"

	"golang.org/x/sync/semaphore"
)

// Compile-time check
var _ adapter.Messenger = (*ThrottledMessenger)(nil)

// ThrottledMessenger bounds the calls in flight against the chat API, keeps a
// minimum spacing between call starts and gives every call its own deadline.
type ThrottledMessenger struct {
	inner   adapter.Messenger
	sem     *semaphore.Weighted
	spacing time.Duration
	timeout time.Duration

	mu   sync.Mutex
	next time.Time
}

func NewThrottledMessenger(inner adapter.Messenger, cfg config.MessengerConfig) *ThrottledMessenger {
	inFlight := cfg.MaxInFlight
	if inFlight <= 0 {
		inFlight = 20
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ThrottledMessenger{
		inner:   inner,
		sem:     semaphore.NewWeighted(inFlight),
		spacing: cfg.MinSpacing,
		timeout: timeout,
	}
}

func (t *ThrottledMessenger) Send(ctx context.Context, p adapter.Post) (int, error) {
	var id int
	err := t.do(ctx, func(ctx context.Context) error {
		var err error
		id, err = t.inner.Send(ctx, p)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *ThrottledMessenger) Edit(ctx context.Context, messageID int, p adapter.Post) error {
	return t.do(ctx, func(ctx context.Context) error { return t.inner.Edit(ctx, messageID, p) })
}

func (t *ThrottledMessenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	return t.do(ctx, func(ctx context.Context) error { return t.inner.Delete(ctx, chatID, messageID) })
}

func (t *ThrottledMessenger) do(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("messenger slot: %w", err)
	}
	if err := t.wait(ctx); err != nil {
		t.sem.Release(1)
		return err
	}

	// The underlying client cannot be interrupted, so the call runs aside and
	// is abandoned on deadline. Its slot is released when it actually returns.
	done := make(chan error, 1)
	go func() {
		defer t.sem.Release(1)
		done <- fn(ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("messenger call: %w", ctx.Err())
	}
}

// wait reserves the next start slot and sleeps until it.
func (t *ThrottledMessenger) wait(ctx context.Context) error {
	if t.spacing <= 0 {
		return nil
	}
	t.mu.Lock()
	now := time.Now()
	start := t.next
	if start.Before(now) {
		start = now
	}
	t.next = start.Add(t.spacing)
	t.mu.Unlock()

	delay := time.Until(start)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("messenger spacing: %w", ctx.Err())
	}
}
