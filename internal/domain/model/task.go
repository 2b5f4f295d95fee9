package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

const TaskCheckExpired = "check_expired"

// Task is a queued trigger for background work.
type Task struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTask(typ string, now time.Time) *Task {
	return &Task{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Type:      typ,
		CreatedAt: now,
	}
}
