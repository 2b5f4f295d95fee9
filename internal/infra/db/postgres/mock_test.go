//go:build !integration

package postgres

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerDraftRepo mocks the database repository that the draft decorator wraps.
type mockInnerDraftRepo struct {
	SaveFunc             func(ctx context.Context, tx repository.Tx, d *model.Draft) error
	FindByTelegramIDFunc func(ctx context.Context, tx repository.Tx, tgID int64) (*model.Draft, error)
	DeleteFunc           func(ctx context.Context, tx repository.Tx, tgID int64) error
	ExpirePublishedFunc  func(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]repository.ExpiredDraft, error)

	finds int
}

func (m *mockInnerDraftRepo) Save(ctx context.Context, tx repository.Tx, d *model.Draft) error {
	return m.SaveFunc(ctx, tx, d)
}
func (m *mockInnerDraftRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Draft, error) {
	m.finds++
	return m.FindByTelegramIDFunc(ctx, tx, tgID)
}
func (m *mockInnerDraftRepo) Delete(ctx context.Context, tx repository.Tx, tgID int64) error {
	return m.DeleteFunc(ctx, tx, tgID)
}
func (m *mockInnerDraftRepo) ExpirePublished(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]repository.ExpiredDraft, error) {
	return m.ExpirePublishedFunc(ctx, tx, cutoff)
}
func (m *mockInnerDraftRepo) CountByState(ctx context.Context, tx repository.Tx) (repository.DraftCounts, error) {
	return repository.DraftCounts{}, nil
}

// mockDraftCache is an in-memory DraftCache with optional error injection.
type mockDraftCache struct {
	mu          sync.Mutex
	entries     map[int64]*model.Draft
	invalidated []int64
	GetErr      error
}

func newMockDraftCache() *mockDraftCache {
	return &mockDraftCache{entries: map[int64]*model.Draft{}}
}

func (m *mockDraftCache) Get(ctx context.Context, tgID int64) (*model.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	d, ok := m.entries[tgID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *mockDraftCache) Set(ctx context.Context, d *model.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.entries[d.TelegramID] = &cp
	return nil
}

func (m *mockDraftCache) Invalidate(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, tgID)
	m.invalidated = append(m.invalidated, tgID)
	return nil
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
