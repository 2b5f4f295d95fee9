package repository

import (
	"context"
	"time"

	"telegram-resume-board/internal/domain/model"
)

// ExpiredDraft carries what the sweeper needs to clean a demoted post out of the chat.
type ExpiredDraft struct {
	DraftID        string
	TelegramID     int64
	MessageID      int
	ThemeMessageID int
}

type DraftCounts struct {
	Drafts    int
	Published int
}

type DraftRepository interface {
	Save(ctx context.Context, tx Tx, d *model.Draft) error
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.Draft, error)
	Delete(ctx context.Context, tx Tx, tgID int64) error
	// ExpirePublished demotes every live draft published at or before cutoff in one
	// atomic statement and returns the rows it flipped. Rows already flipped are never returned again.
	ExpirePublished(ctx context.Context, tx Tx, cutoff time.Time) ([]ExpiredDraft, error)
	CountByState(ctx context.Context, tx Tx) (DraftCounts, error)
}
