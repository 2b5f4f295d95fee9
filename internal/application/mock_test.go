//go:build !integration

package application_test

import (
	"context"
	"fmt"
	"io"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
	"telegram-resume-board/internal/usecase"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// keyTranslator echoes keys so assertions do not depend on the locale wording.
type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	return key + fmt.Sprint(args...)
}

// --- Mock UserUseCase ---
type MockUserUC struct {
	RegisterOrFetchFunc func(ctx context.Context, tgID int64, username string) (*model.User, error)
	GetByTelegramIDFunc func(ctx context.Context, tgID int64) (*model.User, error)
}

func (m *MockUserUC) RegisterOrFetch(ctx context.Context, tgID int64, username string) (*model.User, error) {
	if m.RegisterOrFetchFunc != nil {
		return m.RegisterOrFetchFunc(ctx, tgID, username)
	}
	return &model.User{ID: "u-1", TelegramID: tgID, Username: username}, nil
}

func (m *MockUserUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	if m.GetByTelegramIDFunc != nil {
		return m.GetByTelegramIDFunc(ctx, tgID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserUC) Count(ctx context.Context) (int, error) { return 0, nil }

// --- Mock DraftUseCase ---
type MockDraftUC struct {
	GetDraftFunc      func(ctx context.Context, tgID int64) (*model.Draft, error)
	UpsertDraftFunc   func(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error)
	ApplyEditFunc     func(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error)
	SetThemeFunc      func(ctx context.Context, tgID int64, username string, theme model.Theme) (*model.Draft, error)
	PublishFunc       func(ctx context.Context, tgID int64) (*usecase.PublishResult, error)
	CheckPaymentFunc  func(ctx context.Context, tgID int64) (*model.PaymentOutcome, error)
	RequestRecallFunc func(ctx context.Context, tgID int64) error
	ConfirmRecallFunc func(ctx context.Context, tgID int64) (*model.Draft, error)
	RequestDeleteFunc func(ctx context.Context, tgID int64) error
	ConfirmDeleteFunc func(ctx context.Context, tgID int64) error
	CancelPendingFunc func(ctx context.Context, tgID int64) error
}

func (m *MockDraftUC) GetDraft(ctx context.Context, tgID int64) (*model.Draft, error) {
	if m.GetDraftFunc != nil {
		return m.GetDraftFunc(ctx, tgID)
	}
	return nil, nil
}

func (m *MockDraftUC) UpsertDraft(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error) {
	if m.UpsertDraftFunc != nil {
		return m.UpsertDraftFunc(ctx, tgID, username, patch)
	}
	d := &model.Draft{TelegramID: tgID, IsDraft: true}
	patch.Apply(d)
	return d, nil
}

func (m *MockDraftUC) ApplyEdit(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error) {
	if m.ApplyEditFunc != nil {
		return m.ApplyEditFunc(ctx, tgID, username, patch)
	}
	return m.UpsertDraft(ctx, tgID, username, patch)
}

func (m *MockDraftUC) DeleteDraft(ctx context.Context, tgID int64) error { return nil }

func (m *MockDraftUC) SetTheme(ctx context.Context, tgID int64, username string, theme model.Theme) (*model.Draft, error) {
	if m.SetThemeFunc != nil {
		return m.SetThemeFunc(ctx, tgID, username, theme)
	}
	return &model.Draft{TelegramID: tgID, Theme: theme, IsDraft: true}, nil
}

func (m *MockDraftUC) Publish(ctx context.Context, tgID int64) (*usecase.PublishResult, error) {
	return m.PublishFunc(ctx, tgID)
}

func (m *MockDraftUC) CheckPayment(ctx context.Context, tgID int64) (*model.PaymentOutcome, error) {
	return m.CheckPaymentFunc(ctx, tgID)
}

func (m *MockDraftUC) RefreshPost(ctx context.Context, tgID int64) (*model.Draft, error) {
	return nil, nil
}

func (m *MockDraftUC) RequestRecall(ctx context.Context, tgID int64) error {
	if m.RequestRecallFunc != nil {
		return m.RequestRecallFunc(ctx, tgID)
	}
	return nil
}

func (m *MockDraftUC) ConfirmRecall(ctx context.Context, tgID int64) (*model.Draft, error) {
	if m.ConfirmRecallFunc != nil {
		return m.ConfirmRecallFunc(ctx, tgID)
	}
	return &model.Draft{TelegramID: tgID, IsDraft: true}, nil
}

func (m *MockDraftUC) RequestDelete(ctx context.Context, tgID int64) error {
	if m.RequestDeleteFunc != nil {
		return m.RequestDeleteFunc(ctx, tgID)
	}
	return nil
}

func (m *MockDraftUC) ConfirmDelete(ctx context.Context, tgID int64) error {
	if m.ConfirmDeleteFunc != nil {
		return m.ConfirmDeleteFunc(ctx, tgID)
	}
	return nil
}

func (m *MockDraftUC) CancelPending(ctx context.Context, tgID int64) error {
	if m.CancelPendingFunc != nil {
		return m.CancelPendingFunc(ctx, tgID)
	}
	return nil
}

// --- Mock RatingUseCase ---
type MockRatingUC struct {
	ResolveRatingKeyFunc func(ctx context.Context, key string) (*model.User, error)
	RatingLinkFunc       func(ctx context.Context, tgID int64, username string) (string, error)
	SubmitRatingFunc     func(ctx context.Context, raterTgID int64, raterUsername, rateeID string, score int) (*model.User, error)
}

func (m *MockRatingUC) ResolveRatingKey(ctx context.Context, key string) (*model.User, error) {
	return m.ResolveRatingKeyFunc(ctx, key)
}

func (m *MockRatingUC) RatingLink(ctx context.Context, tgID int64, username string) (string, error) {
	return m.RatingLinkFunc(ctx, tgID, username)
}

func (m *MockRatingUC) SubmitRating(ctx context.Context, raterTgID int64, raterUsername, rateeID string, score int) (*model.User, error) {
	return m.SubmitRatingFunc(ctx, raterTgID, raterUsername, rateeID, score)
}

// --- In-memory StateRepository ---
type memStates struct {
	states map[int64]*repository.ConversationState
}

func newMemStates() *memStates { return &memStates{states: map[int64]*repository.ConversationState{}} }

func (m *memStates) SetState(ctx context.Context, tgID int64, st *repository.ConversationState) error {
	m.states[tgID] = st
	return nil
}

func (m *memStates) GetState(ctx context.Context, tgID int64) (*repository.ConversationState, error) {
	return m.states[tgID], nil
}

func (m *memStates) ClearState(ctx context.Context, tgID int64) error {
	delete(m.states, tgID)
	return nil
}
