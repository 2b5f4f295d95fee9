package repository

import (
	"context"

	"telegram-resume-board/internal/domain/model"
)

type RatingRepository interface {
	// Save inserts a rating. A second rating for the same ordered pair fails with domain.ErrDuplicateRating.
	Save(ctx context.Context, tx Tx, r *model.Rating) error
	Exists(ctx context.Context, tx Tx, fromUserID, toUserID string) (bool, error)
	Summary(ctx context.Context, tx Tx, toUserID string) (model.RatingSummary, error)
}
