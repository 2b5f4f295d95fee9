package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
)

var _ repository.TaskQueue = (*TaskQueue)(nil)

// TaskQueue is a FIFO of JSON task descriptors on a Redis list (LPUSH in, BRPOP out).
type TaskQueue struct {
	client RedisClient
	key    string
}

func NewTaskQueue(client RedisClient, key string) *TaskQueue {
	if key == "" {
		key = "task_queue"
	}
	return &TaskQueue{client: client, key: key}
}

func (q *TaskQueue) Enqueue(ctx context.Context, t *model.Task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload); err != nil {
		return fmt.Errorf("push task: %w", err)
	}
	return nil
}

// Pop waits up to timeout for a task. It returns (nil, nil) when the wait elapses empty.
func (q *TaskQueue) Pop(ctx context.Context, timeout time.Duration) (*model.Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if len(res) != 2 {
		return nil, errors.New("redis queue: unexpected response")
	}
	var t model.Task
	if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}
