package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
	ucport "telegram-resume-board/internal/domain/ports/usecase"
	"telegram-resume-board/internal/infra/logging"
	"telegram-resume-board/internal/infra/metrics"
)

const (
	popTimeout   = time.Second
	errorBackoff = 5 * time.Second
)

// TaskConsumer pops task descriptors and dispatches them. Delivery is at-least-once,
// so handlers must tolerate duplicates.
type TaskConsumer struct {
	queue   repository.TaskQueue
	sweeper ucport.ExpirySweeper
	clock   Clock
	log     *zerolog.Logger
}

func NewTaskConsumer(queue repository.TaskQueue, sweeper ucport.ExpirySweeper, clock Clock, logger *zerolog.Logger) *TaskConsumer {
	if clock == nil {
		clock = RealClock
	}
	compLog := logger.With().Str("component", "TaskConsumer").Logger()
	return &TaskConsumer{queue: queue, sweeper: sweeper, clock: clock, log: &compLog}
}

func (c *TaskConsumer) Run(ctx context.Context) error {
	c.log.Info().Msg("Starting task consumer")
	for {
		if err := ctx.Err(); err != nil {
			c.log.Info().Msg("Stopping task consumer")
			return err
		}

		task, err := c.queue.Pop(ctx, popTimeout)
		if err == nil && task != nil {
			err = c.dispatch(ctx, task)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			c.log.Info().Msg("Stopping task consumer")
			return ctx.Err()
		}
		c.log.Error().Err(err).Msg("task processing failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(errorBackoff):
		}
	}
}

func (c *TaskConsumer) dispatch(ctx context.Context, task *model.Task) (err error) {
	ctx = logging.WithTaskID(ctx, task.ID)
	log := logging.With(ctx, c.log)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panic: %v", task.Type, r)
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IncTaskProcessed(task.Type, status)
	}()

	switch task.Type {
	case model.TaskCheckExpired:
		n, err := c.sweeper.ExpireStale(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("count", n).Msg("check_expired done")
		return nil
	default:
		log.Warn().Str("type", task.Type).Msg("unknown task type dropped")
		return nil
	}
}
