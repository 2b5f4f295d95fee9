package repository

import (
	"context"
	"time"

	"telegram-resume-board/internal/domain/model"
)

// TaskQueue is a durable at-least-once queue of task descriptors.
type TaskQueue interface {
	Enqueue(ctx context.Context, t *model.Task) error
	// Pop blocks up to timeout and returns (nil, nil) when nothing arrived.
	Pop(ctx context.Context, timeout time.Duration) (*model.Task, error)
}
