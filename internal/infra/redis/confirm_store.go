package redis

import (
	"context"
	"fmt"
	"time"

	"telegram-resume-board/internal/domain/ports/repository"
)

var _ repository.ConfirmationRepository = (*ConfirmStore)(nil)

// ConfirmStore keeps at most one pending two-step confirmation per user.
type ConfirmStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewConfirmStore(client RedisClient, ttl time.Duration) *ConfirmStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ConfirmStore{client: client, ttl: ttl}
}

func confirmKey(tgID int64) string { return fmt.Sprintf("confirm:%d", tgID) }

// luaTake deletes the key only when it holds the expected action.
const luaTake = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

func (s *ConfirmStore) Propose(ctx context.Context, tgID int64, action repository.ConfirmAction) error {
	return s.client.Set(ctx, confirmKey(tgID), string(action), s.ttl)
}

func (s *ConfirmStore) Take(ctx context.Context, tgID int64, action repository.ConfirmAction) (bool, error) {
	res, err := s.client.Eval(ctx, luaTake, []string{confirmKey(tgID)}, string(action))
	if err != nil {
		return false, fmt.Errorf("take confirmation: %w", err)
	}
	n, _ := res.(int64)
	return n == 1, nil
}

func (s *ConfirmStore) Cancel(ctx context.Context, tgID int64) error {
	return s.client.Del(ctx, confirmKey(tgID))
}
