package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/adapter"
	"telegram-resume-board/internal/domain/ports/repository"
	"telegram-resume-board/internal/infra/logging"
	"telegram-resume-board/internal/usecase"

	"github.com/rs/zerolog"
)

// Translator resolves a message key into user-facing text.
type Translator interface {
	T(key string, args ...interface{}) string
}

// FacadeOptions carries the publication terms shown to users.
type FacadeOptions struct {
	Lifetime time.Duration
	PriceRUB int64
	Now      func() time.Time
}

// BotFacade composes usecases into chat actions. Every method returns a ready
// Reply: errors are logged here and turned into messages, never returned.
type BotFacade struct {
	Users   usecase.UserUseCase
	Drafts  usecase.DraftUseCase
	Ratings usecase.RatingUseCase
	States  repository.StateRepository

	tr   Translator
	opts FacadeOptions
	log  *zerolog.Logger
}

func NewBotFacade(
	users usecase.UserUseCase,
	drafts usecase.DraftUseCase,
	ratings usecase.RatingUseCase,
	states repository.StateRepository,
	tr Translator,
	opts FacadeOptions,
	logger *zerolog.Logger,
) *BotFacade {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		Users:   users,
		Drafts:  drafts,
		Ratings: ratings,
		States:  states,
		tr:      tr,
		opts:    opts,
		log:     &l,
	}
}

// Start registers the user. A rate_<key> payload opens the rating prompt instead of the menu.
func (b *BotFacade) Start(ctx context.Context, tgID int64, username, payload string) Reply {
	if _, err := b.Users.RegisterOrFetch(ctx, tgID, username); err != nil {
		return b.fail(ctx, "start", err)
	}
	b.clearState(ctx, tgID)
	if key, ok := strings.CutPrefix(strings.TrimSpace(payload), "rate_"); ok {
		return b.ratingPrompt(ctx, tgID, key)
	}
	return Reply{Text: b.tr.T("welcome_message", b.lifetimeDays()), Buttons: b.menuButtons()}
}

func (b *BotFacade) Menu(ctx context.Context, tgID int64) Reply {
	b.clearState(ctx, tgID)
	return Reply{Text: b.tr.T("menu_title"), Buttons: b.menuButtons()}
}

func (b *BotFacade) Help() Reply {
	return Reply{
		Text:    b.tr.T("help_message", b.opts.PriceRUB, b.lifetimeDays()),
		Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_menu"), CbMenu))},
	}
}

func (b *BotFacade) CreateDraft(ctx context.Context, tgID int64, username string) Reply {
	d, err := b.Drafts.GetDraft(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "create_draft", err)
	}
	if d != nil {
		return b.card(ctx, tgID, d, b.tr.T("draft_exists"))
	}
	d, err = b.Drafts.UpsertDraft(ctx, tgID, username, model.DraftPatch{})
	if err != nil {
		return b.fail(ctx, "create_draft", err)
	}
	return b.card(ctx, tgID, d, b.tr.T("draft_created"))
}

func (b *BotFacade) ShowDraft(ctx context.Context, tgID int64) Reply {
	d, err := b.Drafts.GetDraft(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "show_draft", err)
	}
	if d == nil {
		return Reply{
			Text:    b.tr.T("draft_none"),
			Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_create"), CbCreate)), row(button(b.tr.T("button_menu"), CbMenu))},
		}
	}
	return b.card(ctx, tgID, d, "")
}

func (b *BotFacade) ShowPublished(ctx context.Context, tgID int64) Reply {
	d, err := b.Drafts.GetDraft(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "show_published", err)
	}
	if !d.IsLive() {
		return Reply{Text: b.tr.T("published_none"), Buttons: b.menuButtons()}
	}
	return b.card(ctx, tgID, d, "")
}

// BeginEdit puts the user into the input step of one draft field.
func (b *BotFacade) BeginEdit(ctx context.Context, tgID int64, step string) Reply {
	var prompt string
	switch step {
	case StepAwaitingPhoto:
		prompt = "prompt_photo"
	case StepAwaitingDescription:
		prompt = "prompt_description"
	case StepAwaitingContact:
		prompt = "prompt_contact"
	default:
		return Reply{Text: b.tr.T("prompt_unknown")}
	}
	if err := b.States.SetState(ctx, tgID, &repository.ConversationState{Step: step}); err != nil {
		return b.fail(ctx, "begin_edit", err)
	}
	return Reply{Text: b.tr.T(prompt), Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_cancel"), CbShowDraft))}}
}

var noPhotoWords = map[string]bool{"без фото": true, "skip": true, "no photo": true}

// HandleText feeds free text into the current input step.
func (b *BotFacade) HandleText(ctx context.Context, tgID int64, username, text string) Reply {
	st, err := b.States.GetState(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "handle_text", err)
	}
	if st == nil {
		return Reply{Text: b.tr.T("prompt_unknown"), Buttons: b.menuButtons()}
	}

	text = strings.TrimSpace(text)
	var patch model.DraftPatch
	switch st.Step {
	case StepAwaitingDescription:
		if text == "" {
			return Reply{Text: b.tr.T("prompt_description")}
		}
		patch.Description = model.Set(text)
	case StepAwaitingContact:
		patch.Contact = model.Set(text)
	case StepAwaitingPhoto:
		if !noPhotoWords[strings.ToLower(text)] {
			return Reply{Text: b.tr.T("prompt_photo_again")}
		}
		patch.PhotoID = model.Clear[string]()
	default:
		b.clearState(ctx, tgID)
		return Reply{Text: b.tr.T("prompt_unknown"), Buttons: b.menuButtons()}
	}
	return b.applyEdit(ctx, tgID, username, patch)
}

// HandlePhoto attaches a photo when the user is at the photo step.
func (b *BotFacade) HandlePhoto(ctx context.Context, tgID int64, username, fileID string) Reply {
	st, err := b.States.GetState(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "handle_photo", err)
	}
	if st == nil || st.Step != StepAwaitingPhoto {
		return Reply{Text: b.tr.T("prompt_unknown"), Buttons: b.menuButtons()}
	}
	return b.applyEdit(ctx, tgID, username, model.DraftPatch{PhotoID: model.Set(fileID)})
}

func (b *BotFacade) applyEdit(ctx context.Context, tgID int64, username string, patch model.DraftPatch) Reply {
	d, err := b.Drafts.ApplyEdit(ctx, tgID, username, patch)
	if err != nil {
		// invalid input keeps the step so the user can retry
		return b.fail(ctx, "apply_edit", err)
	}
	b.clearState(ctx, tgID)
	header := "saved"
	if d.IsLive() {
		header = "saved_live"
	}
	return b.card(ctx, tgID, d, b.tr.T(header))
}

func (b *BotFacade) ThemeMenu(ctx context.Context, tgID int64) Reply {
	d, err := b.Drafts.GetDraft(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "theme_menu", err)
	}
	if d != nil && !d.CanChangeTheme() {
		return b.fail(ctx, "theme_menu", domain.ErrThemeChangeLimit)
	}
	rows := make([][]adapter.InlineButton, 0, len(model.Themes)/2+2)
	for i := 0; i < len(model.Themes); i += 2 {
		r := row(button(b.themeLabel(model.Themes[i]), CbThemePrefix+string(model.Themes[i])))
		if i+1 < len(model.Themes) {
			r = append(r, button(b.themeLabel(model.Themes[i+1]), CbThemePrefix+string(model.Themes[i+1])))
		}
		rows = append(rows, r)
	}
	rows = append(rows, row(button(b.tr.T("button_cancel"), CbShowDraft)))
	return Reply{Text: b.tr.T("theme_menu"), Buttons: rows}
}

func (b *BotFacade) SelectTheme(ctx context.Context, tgID int64, username, raw string) Reply {
	theme, err := model.ParseTheme(raw)
	if err != nil {
		return b.fail(ctx, "select_theme", err)
	}
	d, err := b.Drafts.SetTheme(ctx, tgID, username, theme)
	if err != nil {
		return b.fail(ctx, "select_theme", err)
	}
	return b.card(ctx, tgID, d, b.tr.T("theme_set", b.themeLabel(theme)))
}

func (b *BotFacade) Publish(ctx context.Context, tgID int64) Reply {
	res, err := b.Drafts.Publish(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "publish", err)
	}
	switch res.Status {
	case usecase.PublishPublished:
		return b.card(ctx, tgID, res.Draft, b.tr.T("publish_published", b.lifetimeDays()))
	case usecase.PublishUpdated:
		return b.card(ctx, tgID, res.Draft, b.tr.T("publish_updated"))
	case usecase.PublishUnchanged:
		return b.card(ctx, tgID, res.Draft, b.tr.T("publish_unchanged"))
	case usecase.PublishPaymentRequired:
		return Reply{
			Text: b.tr.T("publish_payment_required", b.opts.PriceRUB),
			Buttons: [][]adapter.InlineButton{
				row(linkButton(b.tr.T("button_pay", b.opts.PriceRUB), res.CheckoutURL)),
				row(button(b.tr.T("button_check_payment"), CbCheckPayment)),
			},
		}
	case usecase.PublishPaymentPending:
		return Reply{
			Text:    b.tr.T("publish_payment_pending"),
			Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_check_payment"), CbCheckPayment))},
		}
	default:
		b.log.Error().Str("status", string(res.Status)).Msg("unknown publish status")
		return Reply{Text: b.tr.T("error_generic")}
	}
}

func (b *BotFacade) CheckPayment(ctx context.Context, tgID int64) Reply {
	out, err := b.Drafts.CheckPayment(ctx, tgID)
	switch {
	case errors.Is(err, domain.ErrNoPendingPayment):
		return Reply{Text: b.tr.T("payment_none")}
	case err != nil:
		b.logger(ctx).Error().Err(err).Msg("payment check failed")
		return Reply{Text: b.tr.T("payment_check_error")}
	}
	switch out.Status {
	case model.PaymentSucceeded:
		return Reply{
			Text:    b.tr.T("payment_succeeded"),
			Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_publish"), CbPublish))},
		}
	case model.PaymentPending:
		return Reply{
			Text:    b.tr.T("payment_pending"),
			Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_check_payment"), CbCheckPayment))},
		}
	default:
		return Reply{
			Text:    b.tr.T("payment_failed"),
			Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_publish"), CbPublish))},
		}
	}
}

func (b *BotFacade) RequestRecall(ctx context.Context, tgID int64) Reply {
	if err := b.Drafts.RequestRecall(ctx, tgID); err != nil {
		return b.fail(ctx, "request_recall", err)
	}
	return b.confirmation("confirm_recall", CbConfirmRecall)
}

func (b *BotFacade) ConfirmRecall(ctx context.Context, tgID int64) Reply {
	d, err := b.Drafts.ConfirmRecall(ctx, tgID)
	if err != nil {
		return b.fail(ctx, "confirm_recall", err)
	}
	return b.card(ctx, tgID, d, b.tr.T("recalled"))
}

func (b *BotFacade) RequestDelete(ctx context.Context, tgID int64) Reply {
	if err := b.Drafts.RequestDelete(ctx, tgID); err != nil {
		return b.fail(ctx, "request_delete", err)
	}
	return b.confirmation("confirm_delete", CbConfirmDelete)
}

func (b *BotFacade) ConfirmDelete(ctx context.Context, tgID int64) Reply {
	if err := b.Drafts.ConfirmDelete(ctx, tgID); err != nil {
		return b.fail(ctx, "confirm_delete", err)
	}
	return Reply{Text: b.tr.T("deleted"), Buttons: b.menuButtons()}
}

func (b *BotFacade) Cancel(ctx context.Context, tgID int64) Reply {
	if err := b.Drafts.CancelPending(ctx, tgID); err != nil {
		return b.fail(ctx, "cancel", err)
	}
	b.clearState(ctx, tgID)
	return Reply{Text: b.tr.T("cancelled"), Buttons: b.menuButtons()}
}

func (b *BotFacade) RatingLink(ctx context.Context, tgID int64, username string) Reply {
	link, err := b.Ratings.RatingLink(ctx, tgID, username)
	if err != nil {
		return b.fail(ctx, "rating_link", err)
	}
	return Reply{Text: b.tr.T("rating_link", link), Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_menu"), CbMenu))}}
}

func (b *BotFacade) SubmitRating(ctx context.Context, tgID int64, username, rateeID string, score int) Reply {
	ratee, err := b.Ratings.SubmitRating(ctx, tgID, username, rateeID, score)
	if errors.Is(err, domain.ErrNotFound) {
		return Reply{Text: b.tr.T("rating_link_invalid"), Buttons: b.menuButtons()}
	}
	if err != nil {
		return b.fail(ctx, "submit_rating", err)
	}
	return Reply{Text: b.tr.T("rating_thanks", ratee.RatingAvg, ratee.RatingCount), Buttons: b.menuButtons()}
}

// Throttled renders an anti-spam verdict. Allowed verdicts render nothing.
func (b *BotFacade) Throttled(v adapter.SpamVerdict) Reply {
	switch v.Kind {
	case adapter.SpamWarn:
		return Reply{Text: b.tr.T("antispam_warn")}
	case adapter.SpamBanned:
		secs := int((v.Remaining + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		if v.NewBan {
			return Reply{Text: b.tr.T("antispam_new_ban", secs)}
		}
		return Reply{Text: b.tr.T("antispam_ban", secs)}
	default:
		return Reply{}
	}
}

func (b *BotFacade) ratingPrompt(ctx context.Context, tgID int64, key string) Reply {
	ratee, err := b.Ratings.ResolveRatingKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return Reply{Text: b.tr.T("rating_link_invalid"), Buttons: b.menuButtons()}
	}
	if err != nil {
		return b.fail(ctx, "rating_prompt", err)
	}
	if ratee.TelegramID == tgID {
		return b.fail(ctx, "rating_prompt", domain.ErrSelfRating)
	}
	text := b.tr.T("rating_prompt_anonymous")
	if ratee.Username != "" {
		text = b.tr.T("rating_prompt", ratee.Username)
	}
	scores := make([]adapter.InlineButton, 0, 5)
	for s := 1; s <= 5; s++ {
		scores = append(scores, button(b.tr.T("button_score", s), RatePayload(ratee.ID, s)))
	}
	return Reply{Text: text, Buttons: [][]adapter.InlineButton{scores}}
}

func (b *BotFacade) card(ctx context.Context, tgID int64, d *model.Draft, header string) Reply {
	var sb strings.Builder
	if header != "" {
		sb.WriteString(header)
		sb.WriteString("\n\n")
	}
	sb.WriteString(b.tr.T("draft_card_description", orDash(d.Description, b.tr.T("draft_card_empty"))))
	sb.WriteString("\n\n")
	sb.WriteString(b.tr.T("draft_card_contact", orDash(d.Contact, b.tr.T("draft_card_empty"))))
	if d.Theme != "" {
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("draft_card_theme", b.themeLabel(d.Theme)))
	}
	if d.HasPhoto() {
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("draft_card_photo"))
	}
	if u, err := b.Users.GetByTelegramID(ctx, tgID); err == nil && u.RatingCount > 0 {
		sb.WriteString("\n")
		sb.WriteString(b.tr.T("draft_card_rating", u.RatingAvg, u.RatingCount))
	}
	sb.WriteString("\n\n")
	if d.IsLive() {
		left := d.Remaining(b.opts.Now(), b.opts.Lifetime)
		days := int(left / (24 * time.Hour))
		hours := int(left % (24 * time.Hour) / time.Hour)
		mins := int(left % time.Hour / time.Minute)
		sb.WriteString(b.tr.T("draft_card_live", days, hours, mins))
	} else {
		sb.WriteString(b.tr.T("draft_card_draft"))
	}
	return Reply{Text: sb.String(), PhotoID: d.PhotoID, Buttons: b.draftButtons(d)}
}

func (b *BotFacade) draftButtons(d *model.Draft) [][]adapter.InlineButton {
	rows := [][]adapter.InlineButton{
		row(button(b.tr.T("button_photo"), CbEditPhoto), button(b.tr.T("button_description"), CbEditDescription)),
	}
	second := row(button(b.tr.T("button_contact"), CbEditContact))
	if d.CanChangeTheme() {
		second = append(second, button(b.tr.T("button_theme"), CbThemeMenu))
	}
	rows = append(rows, second)
	if d.IsLive() {
		rows = append(rows, row(button(b.tr.T("button_update"), CbPublish), button(b.tr.T("button_recall"), CbRecall)))
	} else {
		rows = append(rows, row(button(b.tr.T("button_publish"), CbPublish)))
	}
	rows = append(rows, row(button(b.tr.T("button_delete"), CbDelete), button(b.tr.T("button_menu"), CbMenu)))
	return rows
}

func (b *BotFacade) menuButtons() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		row(button(b.tr.T("button_create"), CbCreate)),
		row(button(b.tr.T("button_drafts"), CbShowDraft), button(b.tr.T("button_published"), CbShowPublished)),
		row(button(b.tr.T("button_rating"), CbRatingLink), button(b.tr.T("button_help"), CbHelp)),
	}
}

func (b *BotFacade) confirmation(key, confirmData string) Reply {
	return Reply{
		Text:    b.tr.T(key),
		Buttons: [][]adapter.InlineButton{row(button(b.tr.T("button_confirm"), confirmData), button(b.tr.T("button_cancel"), CbCancel))},
	}
}

func (b *BotFacade) themeLabel(t model.Theme) string { return b.tr.T("theme_" + string(t)) }

func (b *BotFacade) lifetimeDays() int { return int(b.opts.Lifetime / (24 * time.Hour)) }

func (b *BotFacade) clearState(ctx context.Context, tgID int64) {
	if err := b.States.ClearState(ctx, tgID); err != nil {
		b.logger(ctx).Warn().Err(err).Msg("clear conversation state failed")
	}
}

func (b *BotFacade) logger(ctx context.Context) *zerolog.Logger { return logging.With(ctx, b.log) }

// fail maps an error kind to its message. Only unexpected errors are logged as errors.
func (b *BotFacade) fail(ctx context.Context, op string, err error) Reply {
	key := errorKey(err)
	log := b.logger(ctx)
	switch key {
	case "error_generic", "error_gateway":
		log.Error().Err(err).Str("op", op).Msg("bot action failed")
	default:
		log.Debug().Err(err).Str("op", op).Msg("bot action rejected")
	}
	r := Reply{Text: b.tr.T(key)}
	if key == "draft_none" {
		r.Buttons = [][]adapter.InlineButton{row(button(b.tr.T("button_create"), CbCreate))}
	}
	return r
}

func errorKey(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		return "error_missing_fields"
	case errors.Is(err, domain.ErrMissingTheme):
		return "error_missing_theme"
	case errors.Is(err, domain.ErrInvalidContact):
		return "error_invalid_contact"
	case errors.Is(err, domain.ErrInvalidTheme):
		return "error_invalid_theme"
	case errors.Is(err, domain.ErrThemeChangeLimit):
		return "error_theme_limit"
	case errors.Is(err, domain.ErrSelfRating):
		return "error_self_rating"
	case errors.Is(err, domain.ErrDuplicateRating):
		return "error_duplicate_rating"
	case errors.Is(err, domain.ErrInvalidScore):
		return "error_invalid_score"
	case errors.Is(err, domain.ErrNotPublished):
		return "error_not_published"
	case errors.Is(err, domain.ErrNoPendingConfirmation):
		return "error_no_confirmation"
	case errors.Is(err, domain.ErrNoPendingPayment):
		return "payment_none"
	case errors.Is(err, domain.ErrNotFound):
		return "draft_none"
	case errors.Is(err, domain.ErrGateway):
		return "error_gateway"
	case errors.Is(err, domain.ErrConflict):
		return "error_conflict"
	default:
		return "error_generic"
	}
}

func orDash(s, dash string) string {
	if strings.TrimSpace(s) == "" {
		return dash
	}
	return s
}
