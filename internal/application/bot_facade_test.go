//go:build !integration

package application_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"telegram-resume-board/internal/application"
	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/adapter"
	"telegram-resume-board/internal/usecase"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type facadeDeps struct {
	users   *MockUserUC
	drafts  *MockDraftUC
	ratings *MockRatingUC
	states  *memStates
}

func newFacade() (*application.BotFacade, *facadeDeps) {
	deps := &facadeDeps{
		users:   &MockUserUC{},
		drafts:  &MockDraftUC{},
		ratings: &MockRatingUC{},
		states:  newMemStates(),
	}
	f := application.NewBotFacade(deps.users, deps.drafts, deps.ratings, deps.states, keyTranslator{},
		application.FacadeOptions{Lifetime: 30 * 24 * time.Hour, PriceRUB: 150, Now: func() time.Time { return t0 }},
		newTestLogger())
	return f, deps
}

func hasButton(r application.Reply, data string) bool {
	for _, row := range r.Buttons {
		for _, b := range row {
			if b.Data == data || b.URL == data {
				return true
			}
		}
	}
	return false
}

func TestStart(t *testing.T) {
	ctx := context.Background()

	t.Run("plain start shows the menu", func(t *testing.T) {
		f, deps := newFacade()
		deps.states.states[1] = nil
		r := f.Start(ctx, 1, "alice", "")
		if !strings.HasPrefix(r.Text, "welcome_message") || !hasButton(r, application.CbCreate) {
			t.Errorf("unexpected reply %+v", r)
		}
	})

	t.Run("rating deep link opens the score prompt", func(t *testing.T) {
		f, deps := newFacade()
		deps.ratings.ResolveRatingKeyFunc = func(ctx context.Context, key string) (*model.User, error) {
			if key != "abc" {
				t.Errorf("unexpected key %q", key)
			}
			return &model.User{ID: "ratee-1", TelegramID: 2, Username: "bob"}, nil
		}
		r := f.Start(ctx, 1, "alice", "rate_abc")
		if r.Text != "rating_promptbob" {
			t.Errorf("unexpected text %q", r.Text)
		}
		for s := 1; s <= 5; s++ {
			if !hasButton(r, application.RatePayload("ratee-1", s)) {
				t.Errorf("missing score button %d", s)
			}
		}
	})

	t.Run("stale key", func(t *testing.T) {
		f, deps := newFacade()
		deps.ratings.ResolveRatingKeyFunc = func(context.Context, string) (*model.User, error) { return nil, domain.ErrNotFound }
		if r := f.Start(ctx, 1, "alice", "rate_old"); r.Text != "rating_link_invalid" {
			t.Errorf("unexpected text %q", r.Text)
		}
	})

	t.Run("own link", func(t *testing.T) {
		f, deps := newFacade()
		deps.ratings.ResolveRatingKeyFunc = func(context.Context, string) (*model.User, error) {
			return &model.User{ID: "u-1", TelegramID: 1}, nil
		}
		if r := f.Start(ctx, 1, "alice", "rate_mine"); r.Text != "error_self_rating" {
			t.Errorf("unexpected text %q", r.Text)
		}
	})
}

func TestEditFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("description step", func(t *testing.T) {
		f, deps := newFacade()
		var got model.DraftPatch
		deps.drafts.ApplyEditFunc = func(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error) {
			got = patch
			return &model.Draft{TelegramID: tgID, Description: patch.Description.Value(), IsDraft: true}, nil
		}

		f.BeginEdit(ctx, 1, application.StepAwaitingDescription)
		r := f.HandleText(ctx, 1, "alice", "  Go developer  ")

		if !got.Description.IsSet() || got.Description.Value() != "Go developer" {
			t.Errorf("unexpected patch %+v", got)
		}
		if !got.Contact.IsUnset() || !got.PhotoID.IsUnset() {
			t.Error("only the description may be touched")
		}
		if !strings.HasPrefix(r.Text, "saved") || !strings.Contains(r.Text, "Go developer") {
			t.Errorf("unexpected reply %q", r.Text)
		}
		if _, ok := deps.states.states[1]; ok {
			t.Error("state should be cleared after a successful edit")
		}
	})

	t.Run("invalid contact keeps the step", func(t *testing.T) {
		f, deps := newFacade()
		deps.drafts.ApplyEditFunc = func(context.Context, int64, string, model.DraftPatch) (*model.Draft, error) {
			return nil, domain.ErrInvalidContact
		}
		f.BeginEdit(ctx, 1, application.StepAwaitingContact)
		r := f.HandleText(ctx, 1, "alice", "no")
		if r.Text != "error_invalid_contact" {
			t.Errorf("unexpected text %q", r.Text)
		}
		if st := deps.states.states[1]; st == nil || st.Step != application.StepAwaitingContact {
			t.Errorf("expected to stay at the contact step, got %+v", st)
		}
	})

	t.Run("photo step accepts a photo or a skip word", func(t *testing.T) {
		f, deps := newFacade()
		var patches []model.DraftPatch
		deps.drafts.ApplyEditFunc = func(ctx context.Context, tgID int64, username string, patch model.DraftPatch) (*model.Draft, error) {
			patches = append(patches, patch)
			d := &model.Draft{IsDraft: true}
			patch.Apply(d)
			return d, nil
		}

		f.BeginEdit(ctx, 1, application.StepAwaitingPhoto)
		if r := f.HandleText(ctx, 1, "alice", "hello"); r.Text != "prompt_photo_again" {
			t.Errorf("unexpected text %q", r.Text)
		}
		r := f.HandlePhoto(ctx, 1, "alice", "file-9")
		if r.PhotoID != "file-9" {
			t.Errorf("expected the card to carry the photo, got %+v", r)
		}

		f.BeginEdit(ctx, 1, application.StepAwaitingPhoto)
		f.HandleText(ctx, 1, "alice", "Без фото")

		if len(patches) != 2 || !patches[0].PhotoID.IsSet() || !patches[1].PhotoID.IsCleared() {
			t.Errorf("unexpected patches %+v", patches)
		}
	})

	t.Run("text outside a step", func(t *testing.T) {
		f, _ := newFacade()
		if r := f.HandleText(ctx, 1, "alice", "hi"); r.Text != "prompt_unknown" {
			t.Errorf("unexpected text %q", r.Text)
		}
		if r := f.HandlePhoto(ctx, 1, "alice", "file"); r.Text != "prompt_unknown" {
			t.Errorf("unexpected text %q", r.Text)
		}
	})
}

func TestDraftCard(t *testing.T) {
	ctx := context.Background()
	f, deps := newFacade()
	published := t0.Add(-24*time.Hour - 90*time.Minute)
	deps.drafts.GetDraftFunc = func(context.Context, int64) (*model.Draft, error) {
		return &model.Draft{Description: "desc", Contact: "alice_dev", Theme: model.ThemeDesign, ThemeChangeCount: 2, PublishedAt: &published}, nil
	}
	deps.users.GetByTelegramIDFunc = func(context.Context, int64) (*model.User, error) {
		return &model.User{RatingAvg: 4.5, RatingCount: 2}, nil
	}

	r := f.ShowPublished(ctx, 1)

	// 30d minus 1d 1h30m
	for _, want := range []string{"draft_card_descriptiondesc", "draft_card_contactalice_dev", "draft_card_themetheme_design", "draft_card_rating4.5 2", "draft_card_live28 22 30"} {
		if !strings.Contains(r.Text, want) {
			t.Errorf("card %q lacks %q", r.Text, want)
		}
	}
	if !hasButton(r, application.CbRecall) {
		t.Error("live card should offer a recall")
	}
	if hasButton(r, application.CbThemeMenu) {
		t.Error("theme button must be hidden once the change cap is reached")
	}
}

func TestShowDraft_None(t *testing.T) {
	f, _ := newFacade()
	r := f.ShowDraft(context.Background(), 1)
	if r.Text != "draft_none" || !hasButton(r, application.CbCreate) {
		t.Errorf("unexpected reply %+v", r)
	}
	if r := f.ShowPublished(context.Background(), 1); r.Text != "published_none" {
		t.Errorf("unexpected reply %q", r.Text)
	}
}

func TestCreateDraft(t *testing.T) {
	ctx := context.Background()
	f, deps := newFacade()
	r := f.CreateDraft(ctx, 1, "alice")
	if !strings.HasPrefix(r.Text, "draft_created") || !hasButton(r, application.CbPublish) {
		t.Errorf("unexpected reply %+v", r)
	}

	deps.drafts.GetDraftFunc = func(context.Context, int64) (*model.Draft, error) { return &model.Draft{IsDraft: true}, nil }
	deps.drafts.UpsertDraftFunc = func(context.Context, int64, string, model.DraftPatch) (*model.Draft, error) {
		t.Fatal("an existing draft must not be recreated")
		return nil, nil
	}
	if r := f.CreateDraft(ctx, 1, "alice"); !strings.HasPrefix(r.Text, "draft_exists") {
		t.Errorf("unexpected reply %q", r.Text)
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name     string
		result   *usecase.PublishResult
		err      error
		wantText string
		wantBtn  string
	}{
		{"published", &usecase.PublishResult{Status: usecase.PublishPublished, Draft: &model.Draft{}}, nil, "publish_published30", application.CbRecall},
		{"updated", &usecase.PublishResult{Status: usecase.PublishUpdated, Draft: &model.Draft{}}, nil, "publish_updated", ""},
		{"unchanged", &usecase.PublishResult{Status: usecase.PublishUnchanged, Draft: &model.Draft{}}, nil, "publish_unchanged", ""},
		{"payment required", &usecase.PublishResult{Status: usecase.PublishPaymentRequired, CheckoutURL: "https://pay/1"}, nil, "publish_payment_required150", "https://pay/1"},
		{"payment pending", &usecase.PublishResult{Status: usecase.PublishPaymentPending}, nil, "publish_payment_pending", application.CbCheckPayment},
		{"missing fields", nil, domain.ErrMissingFields, "error_missing_fields", ""},
		{"gateway down", nil, fmt.Errorf("%w: send post: timeout", domain.ErrGateway), "error_gateway", ""},
		{"draft changed meanwhile", nil, fmt.Errorf("%w: draft changed while posting", domain.ErrConflict), "error_conflict", ""},
		{"unexpected", nil, errors.New("db gone"), "error_generic", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, deps := newFacade()
			if tc.result != nil && tc.result.Draft != nil && tc.result.Status == usecase.PublishPublished {
				tc.result.Draft.PublishedAt = &t0
			}
			deps.drafts.PublishFunc = func(context.Context, int64) (*usecase.PublishResult, error) { return tc.result, tc.err }
			r := f.Publish(ctx, 1)
			if !strings.HasPrefix(r.Text, tc.wantText) {
				t.Errorf("expected text starting with %q, got %q", tc.wantText, r.Text)
			}
			if tc.wantBtn != "" && !hasButton(r, tc.wantBtn) {
				t.Errorf("expected button %q in %+v", tc.wantBtn, r.Buttons)
			}
		})
	}
}

func TestCheckPayment(t *testing.T) {
	ctx := context.Background()
	cases := map[string]struct {
		out  *model.PaymentOutcome
		err  error
		want string
	}{
		"none":      {nil, domain.ErrNoPendingPayment, "payment_none"},
		"error":     {nil, fmt.Errorf("%w: check", domain.ErrGateway), "payment_check_error"},
		"succeeded": {&model.PaymentOutcome{Status: model.PaymentSucceeded}, nil, "payment_succeeded"},
		"pending":   {&model.PaymentOutcome{Status: model.PaymentPending}, nil, "payment_pending"},
		"failed":    {&model.PaymentOutcome{Status: model.PaymentFailed}, nil, "payment_failed"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f, deps := newFacade()
			deps.drafts.CheckPaymentFunc = func(context.Context, int64) (*model.PaymentOutcome, error) { return tc.out, tc.err }
			if r := f.CheckPayment(ctx, 1); r.Text != tc.want {
				t.Errorf("expected %q, got %q", tc.want, r.Text)
			}
		})
	}
}

func TestConfirmations(t *testing.T) {
	ctx := context.Background()

	t.Run("recall asks first", func(t *testing.T) {
		f, _ := newFacade()
		r := f.RequestRecall(ctx, 1)
		if r.Text != "confirm_recall" || !hasButton(r, application.CbConfirmRecall) || !hasButton(r, application.CbCancel) {
			t.Errorf("unexpected reply %+v", r)
		}
		if r := f.ConfirmRecall(ctx, 1); !strings.HasPrefix(r.Text, "recalled") {
			t.Errorf("unexpected reply %q", r.Text)
		}
	})

	t.Run("recall of an unpublished draft", func(t *testing.T) {
		f, deps := newFacade()
		deps.drafts.RequestRecallFunc = func(context.Context, int64) error { return domain.ErrNotPublished }
		if r := f.RequestRecall(ctx, 1); r.Text != "error_not_published" {
			t.Errorf("unexpected reply %q", r.Text)
		}
	})

	t.Run("confirm without a request", func(t *testing.T) {
		f, deps := newFacade()
		deps.drafts.ConfirmDeleteFunc = func(context.Context, int64) error { return domain.ErrNoPendingConfirmation }
		if r := f.ConfirmDelete(ctx, 1); r.Text != "error_no_confirmation" {
			t.Errorf("unexpected reply %q", r.Text)
		}
	})

	t.Run("cancel clears pending state", func(t *testing.T) {
		f, deps := newFacade()
		cancelled := false
		deps.drafts.CancelPendingFunc = func(context.Context, int64) error { cancelled = true; return nil }
		f.BeginEdit(ctx, 1, application.StepAwaitingContact)
		if r := f.Cancel(ctx, 1); r.Text != "cancelled" {
			t.Errorf("unexpected reply %q", r.Text)
		}
		if !cancelled || deps.states.states[1] != nil {
			t.Error("cancel should drop the confirmation and the input step")
		}
	})
}

func TestThemes(t *testing.T) {
	ctx := context.Background()

	t.Run("menu lists every theme", func(t *testing.T) {
		f, _ := newFacade()
		r := f.ThemeMenu(ctx, 1)
		for _, th := range model.Themes {
			if !hasButton(r, application.CbThemePrefix+string(th)) {
				t.Errorf("missing theme %s", th)
			}
		}
	})

	t.Run("menu refuses after the cap", func(t *testing.T) {
		f, deps := newFacade()
		deps.drafts.GetDraftFunc = func(context.Context, int64) (*model.Draft, error) {
			return &model.Draft{ThemeChangeCount: model.ThemeChangeCap}, nil
		}
		if r := f.ThemeMenu(ctx, 1); r.Text != "error_theme_limit" {
			t.Errorf("unexpected reply %q", r.Text)
		}
	})

	t.Run("select", func(t *testing.T) {
		f, _ := newFacade()
		if r := f.SelectTheme(ctx, 1, "alice", "design"); !strings.HasPrefix(r.Text, "theme_settheme_design") {
			t.Errorf("unexpected reply %q", r.Text)
		}
		if r := f.SelectTheme(ctx, 1, "alice", "astrology"); r.Text != "error_invalid_theme" {
			t.Errorf("unexpected reply %q", r.Text)
		}
	})
}

func TestRating(t *testing.T) {
	ctx := context.Background()

	t.Run("link", func(t *testing.T) {
		f, deps := newFacade()
		deps.ratings.RatingLinkFunc = func(context.Context, int64, string) (string, error) {
			return "https://t.me/bot?start=rate_k", nil
		}
		if r := f.RatingLink(ctx, 1, "alice"); r.Text != "rating_linkhttps://t.me/bot?start=rate_k" {
			t.Errorf("unexpected reply %q", r.Text)
		}
	})

	t.Run("submit", func(t *testing.T) {
		f, deps := newFacade()
		deps.ratings.SubmitRatingFunc = func(ctx context.Context, raterTgID int64, raterUsername, rateeID string, score int) (*model.User, error) {
			if rateeID != "ratee-1" || score != 4 {
				t.Errorf("unexpected args %s %d", rateeID, score)
			}
			return &model.User{RatingAvg: 4.5, RatingCount: 2}, nil
		}
		if r := f.SubmitRating(ctx, 1, "alice", "ratee-1", 4); r.Text != "rating_thanks4.5 2" {
			t.Errorf("unexpected reply %q", r.Text)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		f, deps := newFacade()
		deps.ratings.SubmitRatingFunc = func(context.Context, int64, string, string, int) (*model.User, error) {
			return nil, domain.ErrDuplicateRating
		}
		if r := f.SubmitRating(ctx, 1, "alice", "ratee-1", 4); r.Text != "error_duplicate_rating" {
			t.Errorf("unexpected reply %q", r.Text)
		}
	})
}

func TestRatePayload(t *testing.T) {
	data := application.RatePayload("8c1f-uuid", 5)
	id, score, ok := application.ParseRatePayload(data)
	if !ok || id != "8c1f-uuid" || score != 5 {
		t.Errorf("round trip failed: %q -> %q %d %v", data, id, score, ok)
	}
	for _, bad := range []string{"rate:", "rate:x", "rate:x:y", "theme:design"} {
		if _, _, ok := application.ParseRatePayload(bad); ok {
			t.Errorf("%q should not parse", bad)
		}
	}
}

func TestThrottled(t *testing.T) {
	f, _ := newFacade()
	if r := f.Throttled(adapter.SpamVerdict{Kind: adapter.SpamAllow}); r.Text != "" {
		t.Errorf("allow should render nothing, got %q", r.Text)
	}
	if r := f.Throttled(adapter.SpamVerdict{Kind: adapter.SpamWarn}); r.Text != "antispam_warn" {
		t.Errorf("unexpected %q", r.Text)
	}
	if r := f.Throttled(adapter.SpamVerdict{Kind: adapter.SpamBanned, Remaining: 9500 * time.Millisecond}); r.Text != "antispam_ban10" {
		t.Errorf("unexpected %q", r.Text)
	}
	if r := f.Throttled(adapter.SpamVerdict{Kind: adapter.SpamBanned, Remaining: 10 * time.Second, NewBan: true}); r.Text != "antispam_new_ban10" {
		t.Errorf("unexpected %q", r.Text)
	}
}
