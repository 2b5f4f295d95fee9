package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/adapter"
	"telegram-resume-board/internal/domain/ports/repository"
	"telegram-resume-board/internal/infra/logging"
	"telegram-resume-board/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ DraftUseCase = (*draftUC)(nil)

type PublishStatus string

const (
	PublishPublished       PublishStatus = "published"
	PublishUpdated         PublishStatus = "updated"
	PublishUnchanged       PublishStatus = "unchanged"
	PublishPaymentRequired PublishStatus = "payment_required"
	PublishPaymentPending  PublishStatus = "payment_pending"
)

type PublishResult struct {
	Status      PublishStatus
	CheckoutURL string
	Draft       *model.Draft
}

// DraftUseCase owns the draft state machine. Every operation is keyed by the owner's telegram id.
type DraftUseCase interface {
	// GetDraft returns (nil, nil) when the user has no draft.
	GetDraft(ctx context.Context, tgID int64) (*model.Draft, error)
	UpsertDraft(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error)
	// ApplyEdit upserts and, for a live draft, updates the chat posts in place.
	ApplyEdit(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error)
	DeleteDraft(ctx context.Context, tgID int64) error
	SetTheme(ctx context.Context, tgID int64, username string, theme model.Theme) (*model.Draft, error)
	Publish(ctx context.Context, tgID int64) (*PublishResult, error)
	CheckPayment(ctx context.Context, tgID int64) (*model.PaymentOutcome, error)
	RefreshPost(ctx context.Context, tgID int64) (*model.Draft, error)

	RequestRecall(ctx context.Context, tgID int64) error
	ConfirmRecall(ctx context.Context, tgID int64) (*model.Draft, error)
	RequestDelete(ctx context.Context, tgID int64) error
	ConfirmDelete(ctx context.Context, tgID int64) error
	CancelPending(ctx context.Context, tgID int64) error
}

// DraftPolicy carries the publication settings of the shared chat.
type DraftPolicy struct {
	ChatID       int64
	Topics       map[model.Theme]int64 // theme -> forum thread id
	PriceRUB     int64
	RequireTheme bool
	Now          func() time.Time
}

type draftUC struct {
	users     repository.UserRepository
	drafts    repository.DraftRepository
	cache     repository.DraftCache
	confirms  repository.ConfirmationRepository
	messenger adapter.Messenger
	payments  adapter.PaymentGateway
	tm        repository.TransactionManager
	policy    DraftPolicy
	now       func() time.Time
	log       *zerolog.Logger
}

func NewDraftUseCase(
	users repository.UserRepository,
	drafts repository.DraftRepository,
	cache repository.DraftCache,
	confirms repository.ConfirmationRepository,
	messenger adapter.Messenger,
	payments adapter.PaymentGateway,
	tm repository.TransactionManager,
	policy DraftPolicy,
	logger *zerolog.Logger,
) *draftUC {
	now := policy.Now
	if now == nil {
		now = time.Now
	}
	l := logger.With().Str("component", "DraftUC").Logger()
	return &draftUC{
		users:     users,
		drafts:    drafts,
		cache:     cache,
		confirms:  confirms,
		messenger: messenger,
		payments:  payments,
		tm:        tm,
		policy:    policy,
		now:       now,
		log:       &l,
	}
}

func (uc *draftUC) GetDraft(ctx context.Context, tgID int64) (*model.Draft, error) {
	defer logging.TraceDuration(uc.log, "DraftUC.GetDraft")()

	d, err := uc.drafts.FindByTelegramID(ctx, repository.NoTX, tgID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return d, err
}

func (uc *draftUC) UpsertDraft(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error) {
	defer logging.TraceDuration(uc.log, "DraftUC.UpsertDraft")()

	if patch.Contact.IsSet() {
		c, err := model.NormalizeContact(patch.Contact.Value())
		if err != nil {
			return nil, err
		}
		patch.Contact = model.Set(c)
	}

	var out *model.Draft
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		_, d, err := uc.loadOrCreate(ctx, tx, tgID, username)
		if err != nil {
			return err
		}
		patch.Apply(d)
		if err := uc.drafts.Save(ctx, tx, d); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, tgID)
	return out, nil
}

func (uc *draftUC) ApplyEdit(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error) {
	d, err := uc.UpsertDraft(ctx, tgID, username, patch)
	if err != nil || !d.IsLive() {
		return d, err
	}
	owner, err := uc.users.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return nil, err
	}
	return uc.refreshLive(ctx, d, owner)
}

func (uc *draftUC) DeleteDraft(ctx context.Context, tgID int64) error {
	defer logging.TraceDuration(uc.log, "DraftUC.DeleteDraft")()

	if err := uc.drafts.Delete(ctx, repository.NoTX, tgID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	uc.invalidate(ctx, tgID)
	metrics.IncDraftEvent("deleted")
	return nil
}

func (uc *draftUC) SetTheme(ctx context.Context, tgID int64, username string, theme model.Theme) (*model.Draft, error) {
	defer logging.TraceDuration(uc.log, "DraftUC.SetTheme")()

	if _, err := model.ParseTheme(string(theme)); err != nil {
		return nil, err
	}
	var out *model.Draft
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		_, d, err := uc.loadOrCreate(ctx, tx, tgID, username)
		if err != nil {
			return err
		}
		if err := d.SetTheme(theme); err != nil {
			return err
		}
		if err := uc.drafts.Save(ctx, tx, d); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, tgID)
	return out, nil
}

func (uc *draftUC) Publish(ctx context.Context, tgID int64) (*PublishResult, error) {
	defer logging.TraceDuration(uc.log, "DraftUC.Publish")()

	owner, d, err := uc.load(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if err := d.MissingForPublish(uc.policy.RequireTheme); err != nil {
		return nil, err
	}

	if d.IsLive() {
		if d.Hash == d.PublishedHash && !uc.promotionPending(d) {
			metrics.IncDraftEvent("unchanged")
			return &PublishResult{Status: PublishUnchanged, Draft: d}, nil
		}
		d, err = uc.refreshLive(ctx, d, owner)
		if err != nil {
			return nil, err
		}
		return &PublishResult{Status: PublishUpdated, Draft: d}, nil
	}

	if !d.Paid && d.PaymentID != "" {
		var status model.PaymentStatus
		status, d, err = uc.pollPayment(ctx, d)
		if err != nil {
			return nil, err
		}
		if status == model.PaymentPending {
			return &PublishResult{Status: PublishPaymentPending, Draft: d}, nil
		}
	}

	if !d.Paid && !owner.HasFreePublication {
		return uc.requestPayment(ctx, d)
	}
	return uc.publishNew(ctx, d, owner)
}

// publishNew posts a draft that is not live yet. The chat sends come first: a failed
// main send aborts with no state change; the store transition commits afterwards
// against the locked row, and only if that row is still the unpublished draft that was posted.
func (uc *draftUC) publishNew(ctx context.Context, d *model.Draft, owner *model.User) (*PublishResult, error) {
	post := uc.post(d, owner)
	mainID, err := uc.messenger.Send(ctx, post)
	if err != nil {
		metrics.IncGatewayFailure("messenger", "send")
		return nil, fmt.Errorf("%w: send post: %v", domain.ErrGateway, err)
	}

	thread := uc.thread(d.Theme)
	topicID := 0
	if thread != 0 {
		post.ThreadID = thread
		if topicID, err = uc.messenger.Send(ctx, post); err != nil {
			metrics.IncGatewayFailure("messenger", "send_topic")
			uc.log.Warn().Err(err).Int64("tg_id", d.TelegramID).Str("theme", string(d.Theme)).Msg("topic post failed")
			topicID = 0
		}
	}

	useFree := !d.Paid
	var out *model.Draft
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := uc.drafts.FindByTelegramID(ctx, tx, d.TelegramID)
		if err != nil {
			return err
		}
		if cur.IsLive() || cur.ID != d.ID {
			return fmt.Errorf("%w: draft changed while posting", domain.ErrConflict)
		}
		if useFree {
			u, err := uc.users.FindByTelegramID(ctx, tx, d.TelegramID)
			if err != nil {
				return err
			}
			if !u.ConsumeFreePublication(uc.now()) {
				return fmt.Errorf("%w: free publication already used", domain.ErrValidation)
			}
			if err := uc.users.Save(ctx, tx, u); err != nil {
				return fmt.Errorf("save user: %w", err)
			}
		}
		cur.MarkPublished(mainID, topicID, uc.now())
		// the posts show d's content even if cur was edited during the sends
		cur.PublishedHash = d.Hash
		if cur.ThemeChangeCount == model.ThemePromotionTrigger && (topicID != 0 || thread == 0) {
			cur.ThemeChangeCount = model.ThemePromoted
		}
		out = cur
		return uc.drafts.Save(ctx, tx, cur)
	})
	if err != nil {
		uc.log.Error().Err(err).Int64("tg_id", d.TelegramID).Msg("publish commit failed, removing sent posts")
		uc.deletePosts(ctx, d.TelegramID, mainID, topicID)
		return nil, fmt.Errorf("publish draft: %w", err)
	}
	uc.invalidate(ctx, d.TelegramID)
	metrics.IncDraftEvent("published")
	uc.log.Info().Int64("tg_id", d.TelegramID).Bool("free", useFree).Int("message_id", mainID).Msg("draft published")
	return &PublishResult{Status: PublishPublished, Draft: out}, nil
}

func (uc *draftUC) requestPayment(ctx context.Context, d *model.Draft) (*PublishResult, error) {
	prevRef := d.PaymentID
	url, ref, err := uc.payments.CreatePayment(ctx, uc.policy.PriceRUB, "Публикация резюме", strconv.FormatInt(d.TelegramID, 10))
	if err != nil {
		metrics.IncGatewayFailure(uc.payments.Name(), "create")
		return nil, fmt.Errorf("%w: create payment: %v", domain.ErrGateway, err)
	}
	cur, ok, err := uc.saveIfCurrent(ctx, d.TelegramID, func(cur *model.Draft) bool {
		if cur.IsLive() || cur.Paid || cur.PaymentID != prevRef {
			return false
		}
		cur.PaymentID = ref
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("save payment reference: %w", err)
	}
	if !ok {
		uc.log.Warn().Int64("tg_id", d.TelegramID).Str("payment_id", ref).Msg("draft changed during checkout, payment reference dropped")
		return nil, fmt.Errorf("%w: draft changed while the checkout was opened", domain.ErrConflict)
	}
	metrics.IncPayment("created")
	return &PublishResult{Status: PublishPaymentRequired, CheckoutURL: url, Draft: cur}, nil
}

func (uc *draftUC) CheckPayment(ctx context.Context, tgID int64) (*model.PaymentOutcome, error) {
	defer logging.TraceDuration(uc.log, "DraftUC.CheckPayment")()

	_, d, err := uc.load(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoPendingPayment
		}
		return nil, err
	}
	if d.Paid {
		return &model.PaymentOutcome{Status: model.PaymentSucceeded, Draft: d}, nil
	}
	if d.PaymentID == "" {
		return nil, domain.ErrNoPendingPayment
	}
	status, d, err := uc.pollPayment(ctx, d)
	if err != nil {
		return nil, err
	}
	return &model.PaymentOutcome{Status: status, Draft: d}, nil
}

// pollPayment asks the gateway about d's stored transaction and persists a final outcome.
// The outcome is written only while the stored draft still waits on that same reference.
// It returns the draft as stored afterwards.
func (uc *draftUC) pollPayment(ctx context.Context, d *model.Draft) (model.PaymentStatus, *model.Draft, error) {
	ref := d.PaymentID
	status, err := uc.payments.CheckStatus(ctx, ref)
	if err != nil {
		metrics.IncGatewayFailure(uc.payments.Name(), "check")
		return "", nil, fmt.Errorf("%w: check payment: %v", domain.ErrGateway, err)
	}
	metrics.IncPayment(string(status))
	if status != model.PaymentSucceeded && status != model.PaymentFailed {
		return status, d, nil
	}

	cur, ok, err := uc.saveIfCurrent(ctx, d.TelegramID, func(cur *model.Draft) bool {
		if cur.Paid || cur.PaymentID != ref {
			return false
		}
		if status == model.PaymentSucceeded {
			cur.Paid = true
		} else {
			cur.PaymentID = ""
		}
		return true
	})
	if err != nil {
		if status == model.PaymentSucceeded {
			uc.log.Warn().Err(err).Int64("tg_id", d.TelegramID).Str("payment_id", ref).Msg("payment settled but its outcome was not stored")
		}
		return "", nil, fmt.Errorf("save payment outcome: %w", err)
	}
	if !ok {
		uc.log.Info().Int64("tg_id", d.TelegramID).Str("payment_id", ref).Str("status", string(status)).Msg("payment outcome for a superseded reference ignored")
	}
	return status, cur, nil
}

func (uc *draftUC) RefreshPost(ctx context.Context, tgID int64) (*model.Draft, error) {
	defer logging.TraceDuration(uc.log, "DraftUC.RefreshPost")()

	owner, d, err := uc.load(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if !d.IsLive() {
		return d, nil
	}
	return uc.refreshLive(ctx, d, owner)
}

// refreshLive edits the live posts in place. Edit failures are logged only.
// A draft at the promotion trigger gets its topic twin reposted once; with no
// thread for its theme the old twin is only removed.
// The result is stored only if the row is still live under the same main post.
func (uc *draftUC) refreshLive(ctx context.Context, d *model.Draft, owner *model.User) (*model.Draft, error) {
	post := uc.post(d, owner)
	if err := uc.messenger.Edit(ctx, d.MessageID, post); err != nil {
		metrics.IncGatewayFailure("messenger", "edit")
		uc.log.Warn().Err(err).Int64("tg_id", d.TelegramID).Int("message_id", d.MessageID).Msg("main post edit failed")
	}

	thread := uc.thread(d.Theme)
	sentTopic := 0
	switch {
	case d.NeedsTopicPromotion():
		if d.ThemeMessageID != 0 {
			uc.deletePosts(ctx, d.TelegramID, d.ThemeMessageID)
			d.ThemeMessageID = 0
		}
		if thread == 0 {
			d.ThemeChangeCount = model.ThemePromoted
			break
		}
		post.ThreadID = thread
		id, err := uc.messenger.Send(ctx, post)
		if err != nil {
			metrics.IncGatewayFailure("messenger", "send_topic")
			uc.log.Warn().Err(err).Int64("tg_id", d.TelegramID).Msg("topic repost failed, will retry on next update")
			break
		}
		d.ThemeMessageID, sentTopic = id, id
		d.ThemeChangeCount = model.ThemePromoted
	case d.ThemeMessageID != 0:
		post.ThreadID = thread
		if err := uc.messenger.Edit(ctx, d.ThemeMessageID, post); err != nil {
			metrics.IncGatewayFailure("messenger", "edit_topic")
			uc.log.Warn().Err(err).Int64("tg_id", d.TelegramID).Int("message_id", d.ThemeMessageID).Msg("topic post edit failed")
		}
	}

	cur, ok, err := uc.saveIfCurrent(ctx, d.TelegramID, func(cur *model.Draft) bool {
		if !cur.IsLive() || cur.MessageID != d.MessageID {
			return false
		}
		cur.ThemeMessageID = d.ThemeMessageID
		if d.ThemeChangeCount > cur.ThemeChangeCount {
			cur.ThemeChangeCount = d.ThemeChangeCount
		}
		cur.PublishedHash = d.Hash
		return true
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.deletePosts(ctx, d.TelegramID, sentTopic)
		}
		return nil, fmt.Errorf("save refreshed draft: %w", err)
	}
	if !ok {
		uc.log.Info().Int64("tg_id", d.TelegramID).Int("message_id", d.MessageID).Msg("draft left the live state during refresh, result dropped")
		uc.deletePosts(ctx, d.TelegramID, sentTopic)
		return cur, nil
	}
	metrics.IncDraftEvent("updated")
	return cur, nil
}

func (uc *draftUC) RequestRecall(ctx context.Context, tgID int64) error {
	d, err := uc.GetDraft(ctx, tgID)
	if err != nil {
		return err
	}
	if !d.IsLive() {
		return domain.ErrNotPublished
	}
	return uc.confirms.Propose(ctx, tgID, repository.ConfirmRecall)
}

// ConfirmRecall commits the demotion first and removes the chat posts afterwards.
func (uc *draftUC) ConfirmRecall(ctx context.Context, tgID int64) (*model.Draft, error) {
	defer logging.TraceDuration(uc.log, "DraftUC.ConfirmRecall")()

	ok, err := uc.confirms.Take(ctx, tgID, repository.ConfirmRecall)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoPendingConfirmation
	}

	var mainID, topicID int
	var out *model.Draft
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		d, err := uc.drafts.FindByTelegramID(ctx, tx, tgID)
		if err != nil {
			return err
		}
		if !d.IsLive() {
			return domain.ErrNotPublished
		}
		mainID, topicID = d.MessageID, d.ThemeMessageID
		d.Recall()
		out = d
		return uc.drafts.Save(ctx, tx, d)
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, tgID)
	uc.deletePosts(ctx, tgID, mainID, topicID)
	metrics.IncDraftEvent("recalled")
	return out, nil
}

func (uc *draftUC) RequestDelete(ctx context.Context, tgID int64) error {
	d, err := uc.GetDraft(ctx, tgID)
	if err != nil {
		return err
	}
	if d == nil {
		return domain.ErrNotFound
	}
	return uc.confirms.Propose(ctx, tgID, repository.ConfirmDelete)
}

func (uc *draftUC) ConfirmDelete(ctx context.Context, tgID int64) error {
	defer logging.TraceDuration(uc.log, "DraftUC.ConfirmDelete")()

	ok, err := uc.confirms.Take(ctx, tgID, repository.ConfirmDelete)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoPendingConfirmation
	}
	d, err := uc.GetDraft(ctx, tgID)
	if err != nil {
		return err
	}
	if err := uc.DeleteDraft(ctx, tgID); err != nil {
		return err
	}
	if d.IsLive() {
		uc.deletePosts(ctx, tgID, d.MessageID, d.ThemeMessageID)
	}
	return nil
}

func (uc *draftUC) CancelPending(ctx context.Context, tgID int64) error {
	return uc.confirms.Cancel(ctx, tgID)
}

// load returns the owner and draft outside a transaction.
func (uc *draftUC) load(ctx context.Context, tgID int64) (*model.User, *model.Draft, error) {
	owner, err := uc.users.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return nil, nil, err
	}
	d, err := uc.drafts.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return nil, nil, err
	}
	return owner, d, nil
}

// loadOrCreate lazily creates the user and the draft inside tx.
func (uc *draftUC) loadOrCreate(ctx context.Context, tx repository.Tx, tgID int64, username string) (*model.User, *model.Draft, error) {
	now := uc.now()
	owner, err := ensureUser(ctx, uc.users, tx, tgID, username, now)
	if err != nil {
		return nil, nil, err
	}
	d, err := uc.drafts.FindByTelegramID(ctx, tx, tgID)
	switch {
	case err == nil:
		return owner, d, nil
	case errors.Is(err, domain.ErrNotFound):
		return owner, model.NewDraft(owner, now), nil
	default:
		return nil, nil, err
	}
}

// saveIfCurrent re-reads the draft under a row lock and stores it only when apply
// accepts the stored state, so a slow gateway call never overwrites a sweep, recall or delete
// that committed meanwhile. It returns the stored draft and whether it was written.
func (uc *draftUC) saveIfCurrent(ctx context.Context, tgID int64, apply func(cur *model.Draft) bool) (*model.Draft, bool, error) {
	var (
		out     *model.Draft
		written bool
	)
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := uc.drafts.FindByTelegramID(ctx, tx, tgID)
		if err != nil {
			return err
		}
		out = cur
		if !apply(cur) {
			return nil
		}
		if err := uc.drafts.Save(ctx, tx, cur); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if written {
		uc.invalidate(ctx, tgID)
	}
	return out, written, nil
}

// promotionPending reports whether a live draft still owes a topic repost. A theme
// without a thread has nothing to repost into, so only a leftover twin keeps it pending.
func (uc *draftUC) promotionPending(d *model.Draft) bool {
	return d.NeedsTopicPromotion() && (uc.thread(d.Theme) != 0 || d.ThemeMessageID != 0)
}

func (uc *draftUC) post(d *model.Draft, owner *model.User) adapter.Post {
	return adapter.Post{
		ChatID:  uc.policy.ChatID,
		Text:    ComposePost(d, owner),
		PhotoID: d.PhotoID,
	}
}

func (uc *draftUC) thread(t model.Theme) int64 {
	if t == "" {
		return 0
	}
	return uc.policy.Topics[t]
}

func (uc *draftUC) deletePosts(ctx context.Context, tgID int64, ids ...int) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if err := uc.messenger.Delete(ctx, uc.policy.ChatID, id); err != nil {
			metrics.IncGatewayFailure("messenger", "delete")
			uc.log.Warn().Err(err).Int64("tg_id", tgID).Int("message_id", id).Msg("post delete failed")
		}
	}
}

func (uc *draftUC) invalidate(ctx context.Context, tgID int64) {
	if err := uc.cache.Invalidate(ctx, tgID); err != nil {
		uc.log.Warn().Err(err).Int64("tg_id", tgID).Msg("draft cache invalidation failed")
	}
}
