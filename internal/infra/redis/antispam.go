package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"telegram-resume-board/internal/config"
	"telegram-resume-board/internal/domain/ports/adapter"
	"telegram-resume-board/internal/infra/metrics"
)

var _ adapter.SpamGuard = (*AntiSpam)(nil)

// violationWindow bounds how long repeated violations accumulate toward a ban.
const violationWindow = time.Minute

// AntiSpam enforces a minimum interval between actions per user. Acting inside the
// interval counts a violation; reaching maxViolations bans the user for banTime.
type AntiSpam struct {
	client        RedisClient
	minInterval   time.Duration
	maxViolations int64
	banTime       time.Duration
}

func NewAntiSpam(client RedisClient, cfg config.AntiSpamConfig) *AntiSpam {
	return &AntiSpam{
		client:        client,
		minInterval:   cfg.MinInterval,
		maxViolations: int64(cfg.MaxViolations),
		banTime:       cfg.BanTime,
	}
}

func lastActionKey(tgID int64) string { return fmt.Sprintf("antispam:last:%d", tgID) }
func violationsKey(tgID int64) string { return fmt.Sprintf("antispam:violations:%d", tgID) }
func banKey(tgID int64) string        { return fmt.Sprintf("antispam:ban:%d", tgID) }

func (a *AntiSpam) Check(ctx context.Context, tgID int64) (adapter.SpamVerdict, error) {
	left, err := a.client.PTTL(ctx, banKey(tgID))
	if err != nil && !errors.Is(err, redis.Nil) {
		return adapter.SpamVerdict{}, fmt.Errorf("antispam ban lookup: %w", err)
	}
	if left > 0 {
		metrics.IncAntiSpam(string(adapter.SpamBanned))
		return adapter.SpamVerdict{Kind: adapter.SpamBanned, Remaining: left}, nil
	}

	fresh, err := a.client.SetNX(ctx, lastActionKey(tgID), 1, a.minInterval)
	if err != nil {
		return adapter.SpamVerdict{}, fmt.Errorf("antispam interval: %w", err)
	}
	if fresh {
		_ = a.client.Del(ctx, violationsKey(tgID))
		return adapter.SpamVerdict{Kind: adapter.SpamAllow}, nil
	}

	n, err := a.client.Incr(ctx, violationsKey(tgID))
	if err != nil {
		return adapter.SpamVerdict{}, fmt.Errorf("antispam violations: %w", err)
	}
	if n == 1 {
		_ = a.client.Expire(ctx, violationsKey(tgID), violationWindow)
	}
	if n >= a.maxViolations {
		if err := a.client.Set(ctx, banKey(tgID), 1, a.banTime); err != nil {
			return adapter.SpamVerdict{}, fmt.Errorf("antispam ban: %w", err)
		}
		_ = a.client.Del(ctx, violationsKey(tgID))
		metrics.IncAntiSpam(string(adapter.SpamBanned))
		return adapter.SpamVerdict{Kind: adapter.SpamBanned, Remaining: a.banTime, NewBan: true}, nil
	}
	metrics.IncAntiSpam(string(adapter.SpamWarn))
	return adapter.SpamVerdict{Kind: adapter.SpamWarn}, nil
}
