package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"telegram-resume-board/internal/domain"

	"github.com/google/uuid"
)

// RatingKeyRefreshWindow is the minimum age of a rating key before a refresh rotates it.
const RatingKeyRefreshWindow = 7 * 24 * time.Hour

// User is a Telegram user known to the bot. Users are never deleted.
type User struct {
	ID                 string
	TelegramID         int64
	Username           string
	RatingKey          string
	RatingKeyUpdatedAt time.Time
	HasFreePublication bool
	RatingAvg          float64
	RatingCount        int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewUser(tgID int64, username string, now time.Time) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	key, err := newRatingKey()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:                 uuid.NewString(),
		TelegramID:         tgID,
		Username:           username,
		RatingKey:          key,
		RatingKeyUpdatedAt: now,
		HasFreePublication: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// RotateRatingKey unconditionally issues a fresh rating key.
func (u *User) RotateRatingKey(now time.Time) error {
	key, err := newRatingKey()
	if err != nil {
		return err
	}
	u.RatingKey = key
	u.RatingKeyUpdatedAt = now
	u.UpdatedAt = now
	return nil
}

// RefreshRatingKey rotates the key only when the current one is at least a week old.
// It reports whether a rotation happened.
func (u *User) RefreshRatingKey(now time.Time) (bool, error) {
	if u.RatingKey != "" && now.Sub(u.RatingKeyUpdatedAt) < RatingKeyRefreshWindow {
		return false, nil
	}
	if err := u.RotateRatingKey(now); err != nil {
		return false, err
	}
	return true, nil
}

// ConsumeFreePublication reports whether the one-time free publish was available and clears it.
func (u *User) ConsumeFreePublication(now time.Time) bool {
	if !u.HasFreePublication {
		return false
	}
	u.HasFreePublication = false
	u.UpdatedAt = now
	return true
}

func (u *User) ApplyRatingSummary(s RatingSummary, now time.Time) {
	u.RatingAvg = s.Average
	u.RatingCount = s.Count
	u.UpdatedAt = now
}

func newRatingKey() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
