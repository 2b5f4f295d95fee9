package postgres

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
	"telegram-resume-board/internal/infra/metrics"
)

var _ repository.DraftRepository = (*draftRepoCacheDecorator)(nil)

// draftRepoCacheDecorator reads drafts through the cache and drops the entry on every write.
// Reads inside a transaction always go to the store.
type draftRepoCacheDecorator struct {
	inner repository.DraftRepository
	cache repository.DraftCache
	log   zerolog.Logger
}

func NewDraftRepoCacheDecorator(inner repository.DraftRepository, cache repository.DraftCache, logger *zerolog.Logger) repository.DraftRepository {
	return &draftRepoCacheDecorator{
		inner: inner,
		cache: cache,
		log:   logger.With().Str("component", "draft_cache_decorator").Logger(),
	}
}

func (d *draftRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, dr *model.Draft) error {
	if err := d.inner.Save(ctx, tx, dr); err != nil {
		return err
	}
	d.invalidate(ctx, dr.TelegramID)
	return nil
}

func (d *draftRepoCacheDecorator) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Draft, error) {
	if tx != nil {
		metrics.IncCacheRequest("draft", "bypass")
		return d.inner.FindByTelegramID(ctx, tx, tgID)
	}

	cached, err := d.cache.Get(ctx, tgID)
	if err != nil {
		d.log.Warn().Err(err).Int64("tg_id", tgID).Msg("draft cache read failed")
	}
	if cached != nil {
		metrics.IncCacheRequest("draft", "hit")
		return cached, nil
	}

	metrics.IncCacheRequest("draft", "miss")
	dr, err := d.inner.FindByTelegramID(ctx, tx, tgID)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Set(ctx, dr); err != nil {
		d.log.Warn().Err(err).Int64("tg_id", tgID).Msg("draft cache fill failed")
	}
	return dr, nil
}

func (d *draftRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, tgID int64) error {
	if err := d.inner.Delete(ctx, tx, tgID); err != nil {
		return err
	}
	d.invalidate(ctx, tgID)
	return nil
}

func (d *draftRepoCacheDecorator) ExpirePublished(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]repository.ExpiredDraft, error) {
	rows, err := d.inner.ExpirePublished(ctx, tx, cutoff)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		d.invalidate(ctx, r.TelegramID)
	}
	return rows, nil
}

// Pass-through
func (d *draftRepoCacheDecorator) CountByState(ctx context.Context, tx repository.Tx) (repository.DraftCounts, error) {
	return d.inner.CountByState(ctx, tx)
}

func (d *draftRepoCacheDecorator) invalidate(ctx context.Context, tgID int64) {
	if err := d.cache.Invalidate(ctx, tgID); err != nil {
		d.log.Warn().Err(err).Int64("tg_id", tgID).Msg("draft cache invalidate failed")
	}
}
