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

var _ repository.DraftCache = (*DraftCache)(nil)

// DraftCache stores draft snapshots under draft:{telegram_id}.
type DraftCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewDraftCache(client RedisClient, ttl time.Duration) *DraftCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DraftCache{client: client, ttl: ttl}
}

func draftKey(tgID int64) string { return fmt.Sprintf("draft:%d", tgID) }

// draftSnapshot is the one wire schema for cached drafts. Both encode and decode go through it.
type draftSnapshot struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	TelegramID       int64   `json:"telegram_id"`
	PhotoID          string  `json:"photo_id"`
	Description      string  `json:"description"`
	Contact          string  `json:"contact"`
	MessageID        int     `json:"message_id"`
	ThemeMessageID   int     `json:"theme_message_id"`
	Theme            string  `json:"theme"`
	ThemeChangeCount int     `json:"theme_change_count"`
	CreatedAt        string  `json:"created_at"`
	PublishedAt      *string `json:"published_at"`
	Paid             bool    `json:"paid"`
	PaymentID        string  `json:"payment_id"`
	IsDraft          bool    `json:"is_draft"`
	Hash             string  `json:"hash"`
	PublishedHash    string  `json:"published_hash"`
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func snapshotOf(d *model.Draft) draftSnapshot {
	s := draftSnapshot{
		ID:               d.ID,
		UserID:           d.UserID,
		TelegramID:       d.TelegramID,
		PhotoID:          d.PhotoID,
		Description:      d.Description,
		Contact:          d.Contact,
		MessageID:        d.MessageID,
		ThemeMessageID:   d.ThemeMessageID,
		Theme:            string(d.Theme),
		ThemeChangeCount: d.ThemeChangeCount,
		CreatedAt:        formatTime(d.CreatedAt),
		Paid:             d.Paid,
		PaymentID:        d.PaymentID,
		IsDraft:          d.IsDraft,
		Hash:             d.Hash,
		PublishedHash:    d.PublishedHash,
	}
	if d.PublishedAt != nil {
		p := formatTime(*d.PublishedAt)
		s.PublishedAt = &p
	}
	return s
}

func (s draftSnapshot) draft() (*model.Draft, error) {
	created, err := time.Parse(time.RFC3339Nano, s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	d := &model.Draft{
		ID:               s.ID,
		UserID:           s.UserID,
		TelegramID:       s.TelegramID,
		PhotoID:          s.PhotoID,
		Description:      s.Description,
		Contact:          s.Contact,
		MessageID:        s.MessageID,
		ThemeMessageID:   s.ThemeMessageID,
		Theme:            model.Theme(s.Theme),
		ThemeChangeCount: s.ThemeChangeCount,
		CreatedAt:        created,
		Paid:             s.Paid,
		PaymentID:        s.PaymentID,
		IsDraft:          s.IsDraft,
		Hash:             s.Hash,
		PublishedHash:    s.PublishedHash,
	}
	if s.PublishedAt != nil {
		p, err := time.Parse(time.RFC3339Nano, *s.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("published_at: %w", err)
		}
		d.PublishedAt = &p
	}
	return d, nil
}

// Get returns (nil, nil) on a miss. An undecodable entry is dropped and reported as a miss.
func (c *DraftCache) Get(ctx context.Context, tgID int64) (*model.Draft, error) {
	raw, err := c.client.Get(ctx, draftKey(tgID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s draftSnapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		_ = c.client.Del(ctx, draftKey(tgID))
		return nil, nil
	}
	d, err := s.draft()
	if err != nil {
		_ = c.client.Del(ctx, draftKey(tgID))
		return nil, nil
	}
	return d, nil
}

func (c *DraftCache) Set(ctx context.Context, d *model.Draft) error {
	if d == nil {
		return nil
	}
	data, err := json.Marshal(snapshotOf(d))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, draftKey(d.TelegramID), data, c.ttl)
}

func (c *DraftCache) Invalidate(ctx context.Context, tgID int64) error {
	return c.client.Del(ctx, draftKey(tgID))
}
