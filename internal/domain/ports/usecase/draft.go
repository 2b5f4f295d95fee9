package usecase

import (
	"context"

	"telegram-resume-board/internal/domain/model"
)

// PostRefresher re-renders a user's live post, e.g. after their rating changed.
type PostRefresher interface {
	RefreshPost(ctx context.Context, tgID int64) (*model.Draft, error)
}

// ExpirySweeper runs one expiry pass and returns how many posts were demoted.
type ExpirySweeper interface {
	ExpireStale(ctx context.Context) (int, error)
}
