//go:build !integration

package sched

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-resume-board/internal/domain/model"
)

// stepClock hands every requested wait to the test, which releases it by sending on fire.
type stepClock struct {
	now   time.Time
	waits chan time.Duration
	fire  chan time.Time
}

func newStepClock() *stepClock {
	return &stepClock{
		now:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		waits: make(chan time.Duration, 16),
		fire:  make(chan time.Time),
	}
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.waits <- d
	return c.fire
}

// MockSweeper returns scripted results in order, then repeats the last one.
type MockSweeper struct {
	mu      sync.Mutex
	Results []sweepResult
	Calls   int
}

type sweepResult struct {
	n     int
	err   error
	panic bool
}

func newMockSweeper(results ...sweepResult) *MockSweeper {
	return &MockSweeper{Results: results}
}

func (m *MockSweeper) ExpireStale(ctx context.Context) (int, error) {
	m.mu.Lock()
	i := m.Calls
	m.Calls++
	var r sweepResult
	if len(m.Results) > 0 {
		if i >= len(m.Results) {
			i = len(m.Results) - 1
		}
		r = m.Results[i]
	}
	m.mu.Unlock()
	if r.panic {
		panic("sweeper exploded")
	}
	return r.n, r.err
}

func (m *MockSweeper) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockTaskQueue is an in-memory FIFO. Pop returns (nil, nil) when empty.
type MockTaskQueue struct {
	mu         sync.Mutex
	items      []*model.Task
	EnqueueErr error
	PopErr     error
}

func newMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{}
}

func (q *MockTaskQueue) Enqueue(ctx context.Context, t *model.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.EnqueueErr != nil {
		return q.EnqueueErr
	}
	q.items = append(q.items, t)
	return nil
}

func (q *MockTaskQueue) Pop(ctx context.Context, timeout time.Duration) (*model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.PopErr != nil {
		return nil, q.PopErr
	}
	if len(q.items) == 0 {
		time.Sleep(time.Millisecond) // stands in for the blocking wait
		return nil, nil
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, nil
}

func (q *MockTaskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
