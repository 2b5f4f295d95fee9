package telegram

import (
	"context"
	"strings"

	"telegram-resume-board/internal/application"
	"telegram-resume-board/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type cbHandler func(ctx context.Context, from *tgbotapi.User, data string) application.Reply
type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Exact-match callbacks
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		application.CbMenu:            r.menuCBRoute,
		application.CbHelp:            r.helpCBRoute,
		application.CbCreate:          r.createCBRoute,
		application.CbShowDraft:       r.showDraftCBRoute,
		application.CbShowPublished:   r.showPublishedCBRoute,
		application.CbPublish:         r.publishCBRoute,
		application.CbCheckPayment:    r.checkPaymentCBRoute,
		application.CbRecall:          r.recallCBRoute,
		application.CbDelete:          r.deleteCBRoute,
		application.CbConfirmRecall:   r.confirmRecallCBRoute,
		application.CbConfirmDelete:   r.confirmDeleteCBRoute,
		application.CbCancel:          r.cancelCBRoute,
		application.CbEditPhoto:       r.editCBRoute(application.StepAwaitingPhoto),
		application.CbEditDescription: r.editCBRoute(application.StepAwaitingDescription),
		application.CbEditContact:     r.editCBRoute(application.StepAwaitingContact),
		application.CbThemeMenu:       r.themeMenuCBRoute,
		application.CbRatingLink:      r.ratingLinkCBRoute,
	}
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: application.CbThemePrefix, Fn: r.themePrefixCBRoute},
		{Prefix: application.CbRatePrefix, Fn: r.ratePrefixCBRoute},
	}
}

func (r *RealTelegramBotAdapter) menuCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.Menu(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) helpCBRoute(ctx context.Context, _ *tgbotapi.User, _ string) application.Reply {
	return r.facade.Help()
}

func (r *RealTelegramBotAdapter) createCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.CreateDraft(ctx, from.ID, from.UserName)
}

func (r *RealTelegramBotAdapter) showDraftCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.ShowDraft(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) showPublishedCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.ShowPublished(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) publishCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	metrics.IncTelegramCommand("cb:publish")
	return r.facade.Publish(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) checkPaymentCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.CheckPayment(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) recallCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.RequestRecall(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) deleteCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.RequestDelete(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) confirmRecallCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.ConfirmRecall(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) confirmDeleteCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.ConfirmDelete(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) cancelCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.Cancel(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) editCBRoute(step string) cbHandler {
	return func(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
		return r.facade.BeginEdit(ctx, from.ID, step)
	}
}

func (r *RealTelegramBotAdapter) themeMenuCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.ThemeMenu(ctx, from.ID)
}

func (r *RealTelegramBotAdapter) ratingLinkCBRoute(ctx context.Context, from *tgbotapi.User, _ string) application.Reply {
	return r.facade.RatingLink(ctx, from.ID, from.UserName)
}

func (r *RealTelegramBotAdapter) themePrefixCBRoute(ctx context.Context, from *tgbotapi.User, data string) application.Reply {
	return r.facade.SelectTheme(ctx, from.ID, from.UserName, strings.TrimPrefix(data, application.CbThemePrefix))
}

func (r *RealTelegramBotAdapter) ratePrefixCBRoute(ctx context.Context, from *tgbotapi.User, data string) application.Reply {
	rateeID, score, ok := application.ParseRatePayload(data)
	if !ok {
		return application.Reply{}
	}
	metrics.IncTelegramCommand("cb:rate")
	return r.facade.SubmitRating(ctx, from.ID, from.UserName, rateeID, score)
}
