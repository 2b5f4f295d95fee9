package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
)

// TaskScheduler enqueues a check_expired task at start and then on every interval.
// A failed enqueue is retried after backoff.
type TaskScheduler struct {
	queue    repository.TaskQueue
	interval time.Duration
	backoff  time.Duration
	clock    Clock
	log      *zerolog.Logger
}

func NewTaskScheduler(queue repository.TaskQueue, interval, backoff time.Duration, clock Clock, logger *zerolog.Logger) *TaskScheduler {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	if backoff <= 0 {
		backoff = 5 * time.Minute
	}
	if clock == nil {
		clock = RealClock
	}
	compLog := logger.With().Str("component", "TaskScheduler").Logger()
	return &TaskScheduler{queue: queue, interval: interval, backoff: backoff, clock: clock, log: &compLog}
}

func (s *TaskScheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("Starting task scheduler")
	for {
		wait := s.interval
		task := model.NewTask(model.TaskCheckExpired, s.clock.Now())
		if err := s.queue.Enqueue(ctx, task); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error().Err(err).Msg("enqueue check_expired failed")
			wait = s.backoff
		} else {
			s.log.Info().Str("task_id", task.ID).Msg("check_expired task enqueued")
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("Stopping task scheduler")
			return ctx.Err()
		case <-s.clock.After(wait):
		}
	}
}
