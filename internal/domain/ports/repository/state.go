package repository

import (
	"context"
)

// ConversationState holds the step a user is at while editing a draft.
type ConversationState struct {
	Step string            `json:"step"` // e.g. "awaiting_description", "awaiting_contact"
	Data map[string]string `json:"data,omitempty"`
}

type StateRepository interface {
	SetState(ctx context.Context, tgID int64, state *ConversationState) error
	GetState(ctx context.Context, tgID int64) (*ConversationState, error)
	ClearState(ctx context.Context, tgID int64) error
}

type ConfirmAction string

const (
	ConfirmRecall ConfirmAction = "recall"
	ConfirmDelete ConfirmAction = "delete"
)

// ConfirmationRepository stores pending two-step confirmations.
type ConfirmationRepository interface {
	Propose(ctx context.Context, tgID int64, action ConfirmAction) error
	// Take removes the pending action and reports whether it was proposed.
	Take(ctx context.Context, tgID int64, action ConfirmAction) (bool, error)
	Cancel(ctx context.Context, tgID int64) error
}
