package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/ports/adapter"
	"telegram-resume-board/internal/domain/ports/repository"
	ucport "telegram-resume-board/internal/domain/ports/usecase"
	"telegram-resume-board/internal/infra/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Compile-time check
var _ ucport.ExpirySweeper = (*expiryUC)(nil)

type ExpiryPolicy struct {
	ChatID      int64
	Lifetime    time.Duration
	Concurrency int // parallel chat deletions per pass
	Now         func() time.Time
}

type expiryUC struct {
	drafts    repository.DraftRepository
	cache     repository.DraftCache
	messenger adapter.Messenger
	policy    ExpiryPolicy
	now       func() time.Time
	log       *zerolog.Logger
}

func NewExpiryUseCase(drafts repository.DraftRepository, cache repository.DraftCache, messenger adapter.Messenger, policy ExpiryPolicy, logger *zerolog.Logger) *expiryUC {
	now := policy.Now
	if now == nil {
		now = time.Now
	}
	if policy.Concurrency <= 0 {
		policy.Concurrency = 1
	}
	l := logger.With().Str("component", "ExpiryUC").Logger()
	return &expiryUC{
		drafts:    drafts,
		cache:     cache,
		messenger: messenger,
		policy:    policy,
		now:       now,
		log:       &l,
	}
}

// ExpireStale demotes every post older than the lifetime in one atomic store update,
// then removes the posts from the chat. Chat and cache failures are logged and skipped.
func (uc *expiryUC) ExpireStale(ctx context.Context) (int, error) {
	cutoff := uc.now().Add(-uc.policy.Lifetime)
	expired, err := uc.drafts.ExpirePublished(ctx, repository.NoTX, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrExpirySweep, err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.policy.Concurrency)
	for _, e := range expired {
		e := e
		if err := uc.cache.Invalidate(ctx, e.TelegramID); err != nil {
			uc.log.Warn().Err(err).Int64("tg_id", e.TelegramID).Msg("draft cache invalidation failed")
		}
		for _, id := range []int{e.MessageID, e.ThemeMessageID} {
			if id == 0 {
				continue
			}
			id := id
			g.Go(func() error {
				if err := uc.messenger.Delete(gctx, uc.policy.ChatID, id); err != nil {
					metrics.IncGatewayFailure("messenger", "delete")
					uc.log.Warn().Err(err).Int64("tg_id", e.TelegramID).Int("message_id", id).Msg("expired post delete failed")
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	metrics.AddPostsExpired(len(expired))
	uc.log.Info().Int("count", len(expired)).Time("cutoff", cutoff).Msg("expired posts demoted")
	return len(expired), nil
}
