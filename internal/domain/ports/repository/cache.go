package repository

import (
	"context"

	"telegram-resume-board/internal/domain/model"
)

// DraftCache is the advisory cache of drafts keyed by owner telegram id.
// A miss returns (nil, nil).
type DraftCache interface {
	Get(ctx context.Context, tgID int64) (*model.Draft, error)
	Set(ctx context.Context, d *model.Draft) error
	Invalidate(ctx context.Context, tgID int64) error
}
