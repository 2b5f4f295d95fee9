package telegram

import (
	"context"

	"telegram-resume-board/internal/application"
	"telegram-resume-board/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) application.Reply

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":  r.handleStartCommand,
		"menu":   r.handleMenuCommand,
		"help":   r.handleHelpCommand,
		"draft":  r.handleDraftCommand,
		"check":  r.handleCheckCommand,
		"rating": r.handleRatingCommand,
		"cancel": r.handleCancelCommand,
	}
}

func (r *RealTelegramBotAdapter) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	fn, ok := r.commandRoutes()[message.Command()]
	if !ok {
		metrics.IncTelegramCommand("unknown")
		return r.sendReply(ctx, message.Chat.ID, r.facade.Help())
	}
	metrics.IncTelegramCommand("/" + message.Command())
	return r.sendReply(ctx, message.Chat.ID, fn(ctx, message))
}

// handleStartCommand registers the user; a deep-link payload is passed through.
func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) application.Reply {
	return r.facade.Start(ctx, message.From.ID, message.From.UserName, message.CommandArguments())
}

func (r *RealTelegramBotAdapter) handleMenuCommand(ctx context.Context, message *tgbotapi.Message) application.Reply {
	return r.facade.Menu(ctx, message.From.ID)
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) application.Reply {
	return r.facade.Help()
}

func (r *RealTelegramBotAdapter) handleDraftCommand(ctx context.Context, message *tgbotapi.Message) application.Reply {
	return r.facade.ShowDraft(ctx, message.From.ID)
}

func (r *RealTelegramBotAdapter) handleCheckCommand(ctx context.Context, message *tgbotapi.Message) application.Reply {
	return r.facade.CheckPayment(ctx, message.From.ID)
}

func (r *RealTelegramBotAdapter) handleRatingCommand(ctx context.Context, message *tgbotapi.Message) application.Reply {
	return r.facade.RatingLink(ctx, message.From.ID, message.From.UserName)
}

func (r *RealTelegramBotAdapter) handleCancelCommand(ctx context.Context, message *tgbotapi.Message) application.Reply {
	return r.facade.Cancel(ctx, message.From.ID)
}
