package model

import (
	"math"
	"time"

	"telegram-resume-board/internal/domain"

	"github.com/google/uuid"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is a directed score from one user to another. One per ordered pair.
type Rating struct {
	ID         string
	FromUserID string
	ToUserID   string
	Score      int
	CreatedAt  time.Time
}

func NewRating(fromUserID, toUserID string, score int, now time.Time) (*Rating, error) {
	if fromUserID == "" || toUserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if fromUserID == toUserID {
		return nil, domain.ErrSelfRating
	}
	if score < MinScore || score > MaxScore {
		return nil, domain.ErrInvalidScore
	}
	return &Rating{
		ID:         uuid.NewString(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Score:      score,
		CreatedAt:  now,
	}, nil
}

// RatingSummary is the aggregate shown on a user's post.
type RatingSummary struct {
	Average float64
	Count   int
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 { return math.Round(v*10) / 10 }
