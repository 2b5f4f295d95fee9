//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/adapter"
	"telegram-resume-board/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- In-memory UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	Saves int

	SaveFunc func(ctx context.Context, tx repository.Tx, u *model.User) error
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{byID: make(map[string]*model.User)}
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byID[u.ID] = &cp
	m.Saves++
	return nil
}

func (m *MockUserRepo) find(pred func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if pred(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.TelegramID == tgID })
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *MockUserRepo) FindByRatingKey(ctx context.Context, tx repository.Tx, key string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.RatingKey == key })
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

// ---- In-memory DraftRepository ----

type MockDraftRepo struct {
	mu    sync.Mutex
	byTg  map[int64]*model.Draft
	Reads int

	SaveFunc            func(ctx context.Context, tx repository.Tx, d *model.Draft) error
	ExpirePublishedFunc func(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]repository.ExpiredDraft, error)
}

func NewMockDraftRepo() *MockDraftRepo {
	return &MockDraftRepo{byTg: make(map[int64]*model.Draft)}
}

var _ repository.DraftRepository = (*MockDraftRepo)(nil)

func (m *MockDraftRepo) Save(ctx context.Context, tx repository.Tx, d *model.Draft) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.byTg[d.TelegramID] = &cp
	return nil
}

func (m *MockDraftRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	d, ok := m.byTg[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MockDraftRepo) Delete(ctx context.Context, tx repository.Tx, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byTg, tgID)
	return nil
}

// ExpirePublished mirrors the atomic flip of the SQL implementation under a single lock.
func (m *MockDraftRepo) ExpirePublished(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]repository.ExpiredDraft, error) {
	if m.ExpirePublishedFunc != nil {
		return m.ExpirePublishedFunc(ctx, tx, cutoff)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ExpiredDraft
	for _, d := range m.byTg {
		if d.IsDraft || d.PublishedAt == nil || d.PublishedAt.After(cutoff) {
			continue
		}
		out = append(out, repository.ExpiredDraft{
			DraftID:        d.ID,
			TelegramID:     d.TelegramID,
			MessageID:      d.MessageID,
			ThemeMessageID: d.ThemeMessageID,
		})
		d.IsDraft = true
		d.Paid = false
		d.PublishedAt = nil
		d.PaymentID = ""
		d.MessageID = 0
		d.ThemeMessageID = 0
		d.PublishedHash = ""
	}
	return out, nil
}

func (m *MockDraftRepo) CountByState(ctx context.Context, tx repository.Tx) (repository.DraftCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c repository.DraftCounts
	for _, d := range m.byTg {
		if d.IsDraft {
			c.Drafts++
		} else {
			c.Published++
		}
	}
	return c, nil
}

func (m *MockDraftRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byTg)
}

// ---- In-memory RatingRepository ----

type MockRatingRepo struct {
	mu      sync.Mutex
	ratings []model.Rating
}

func NewMockRatingRepo() *MockRatingRepo { return &MockRatingRepo{} }

var _ repository.RatingRepository = (*MockRatingRepo)(nil)

func (m *MockRatingRepo) Save(ctx context.Context, tx repository.Tx, r *model.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.ratings {
		if x.FromUserID == r.FromUserID && x.ToUserID == r.ToUserID {
			return domain.ErrDuplicateRating
		}
	}
	m.ratings = append(m.ratings, *r)
	return nil
}

func (m *MockRatingRepo) Exists(ctx context.Context, tx repository.Tx, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.ratings {
		if x.FromUserID == from && x.ToUserID == to {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRatingRepo) Summary(ctx context.Context, tx repository.Tx, to string) (model.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s model.RatingSummary
	total := 0
	for _, x := range m.ratings {
		if x.ToUserID == to {
			s.Count++
			total += x.Score
		}
	}
	if s.Count > 0 {
		s.Average = float64(total) / float64(s.Count)
	}
	return s, nil
}

// ---- Cache-first DraftRepository decorator over a map, for cache semantics tests ----

type MockDraftCache struct {
	mu          sync.Mutex
	entries     map[int64]model.Draft
	Invalidated []int64
}

func NewMockDraftCache() *MockDraftCache {
	return &MockDraftCache{entries: make(map[int64]model.Draft)}
}

var _ repository.DraftCache = (*MockDraftCache)(nil)

func (c *MockDraftCache) Get(ctx context.Context, tgID int64) (*model.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[tgID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (c *MockDraftCache) Set(ctx context.Context, d *model.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[d.TelegramID] = *d
	return nil
}

func (c *MockDraftCache) Invalidate(ctx context.Context, tgID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tgID)
	c.Invalidated = append(c.Invalidated, tgID)
	return nil
}

// cachedDrafts reads through the cache the way the postgres decorator does.
type cachedDrafts struct {
	*MockDraftRepo
	cache *MockDraftCache
}

func (c cachedDrafts) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Draft, error) {
	if tx == nil {
		if d, _ := c.cache.Get(ctx, tgID); d != nil {
			return d, nil
		}
	}
	d, err := c.MockDraftRepo.FindByTelegramID(ctx, tx, tgID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		_ = c.cache.Set(ctx, d)
	}
	return d, nil
}

func (c cachedDrafts) Save(ctx context.Context, tx repository.Tx, d *model.Draft) error {
	_ = c.cache.Invalidate(ctx, d.TelegramID)
	return c.MockDraftRepo.Save(ctx, tx, d)
}

// ---- In-memory ConfirmationRepository ----

type MockConfirmRepo struct {
	mu      sync.Mutex
	pending map[int64]repository.ConfirmAction
}

func NewMockConfirmRepo() *MockConfirmRepo {
	return &MockConfirmRepo{pending: make(map[int64]repository.ConfirmAction)}
}

var _ repository.ConfirmationRepository = (*MockConfirmRepo)(nil)

func (m *MockConfirmRepo) Propose(ctx context.Context, tgID int64, a repository.ConfirmAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[tgID] = a
	return nil
}

func (m *MockConfirmRepo) Take(ctx context.Context, tgID int64, a repository.ConfirmAction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending[tgID] != a {
		return false, nil
	}
	delete(m.pending, tgID)
	return true, nil
}

func (m *MockConfirmRepo) Cancel(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, tgID)
	return nil
}

// ---- MockTxManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with a non-nil marker handle unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, mockTx{})
}

type mockTx struct{}

// =============================
// Adapters
// =============================

// ---- MockMessenger ----

type sentPost struct {
	ID   int
	Post adapter.Post
}

type editedPost struct {
	MessageID int
	Post      adapter.Post
}

type MockMessenger struct {
	mu      sync.Mutex
	nextID  int
	Sent    []sentPost
	Edited  []editedPost
	Deleted []int

	SendFunc   func(ctx context.Context, p adapter.Post) (int, error)
	EditFunc   func(ctx context.Context, id int, p adapter.Post) error
	DeleteFunc func(ctx context.Context, chatID int64, id int) error
}

var _ adapter.Messenger = (*MockMessenger)(nil)

func (m *MockMessenger) Send(ctx context.Context, p adapter.Post) (int, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := 1000 + m.nextID
	m.Sent = append(m.Sent, sentPost{ID: id, Post: p})
	return id, nil
}

func (m *MockMessenger) Edit(ctx context.Context, id int, p adapter.Post) error {
	if m.EditFunc != nil {
		return m.EditFunc(ctx, id, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edited = append(m.Edited, editedPost{MessageID: id, Post: p})
	return nil
}

func (m *MockMessenger) Delete(ctx context.Context, chatID int64, id int) error {
	m.mu.Lock()
	m.Deleted = append(m.Deleted, id)
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, chatID, id)
	}
	return nil
}

func (m *MockMessenger) calls() (sent, edited, deleted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent), len(m.Edited), len(m.Deleted)
}

// ---- MockPaymentGateway ----

type MockPaymentGateway struct {
	Created int

	CreatePaymentFunc func(ctx context.Context, amount int64, description, payerRef string) (string, string, error)
	CheckStatusFunc   func(ctx context.Context, ref string) (model.PaymentStatus, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, amount int64, description, payerRef string) (string, string, error) {
	m.Created++
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, amount, description, payerRef)
	}
	ref := fmt.Sprintf("pay-%d", m.Created)
	return "https://checkout.test/" + ref, ref, nil
}

func (m *MockPaymentGateway) CheckStatus(ctx context.Context, ref string) (model.PaymentStatus, error) {
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, ref)
	}
	return model.PaymentPending, nil
}

// ---- MockPostRefresher ----

type MockPostRefresher struct {
	mu        sync.Mutex
	Refreshed []int64
}

func (m *MockPostRefresher) RefreshPost(ctx context.Context, tgID int64) (*model.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refreshed = append(m.Refreshed, tgID)
	return nil, nil
}

// =============================
// Utilities
// =============================

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
