package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"telegram-resume-board/internal/application"
	"telegram-resume-board/internal/domain/ports/adapter"
	"telegram-resume-board/internal/infra/logging"
	"telegram-resume-board/internal/infra/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

const (
	pollTimeoutSeconds = 60
	captionLimit       = 1024
)

// NewBotClient connects to the Bot API. The HTTP timeout leaves room for long polling.
func NewBotClient(token string) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: (pollTimeoutSeconds + 15) * time.Second}
	return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
}

// RealTelegramBotAdapter long-polls private chats and delegates to BotFacade.
// Updates of one user are handled in order on the same pool worker.
type RealTelegramBotAdapter struct {
	bot    *tgbotapi.BotAPI
	facade *application.BotFacade
	guard  adapter.SpamGuard
	pool   *worker.Pool
	log    *zerolog.Logger

	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(bot *tgbotapi.BotAPI, facade *application.BotFacade, guard adapter.SpamGuard, pool *worker.Pool, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if bot == nil {
		return nil, errors.New("bot client is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if pool == nil {
		return nil, errors.New("worker pool is nil")
	}
	l := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		bot:    bot,
		facade: facade,
		guard:  guard,
		pool:   pool,
		log:    &l,
	}, nil
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	r.pool.Start(ctx)
	defer r.pool.Stop()

	r.log.Info().Str("bot", r.bot.Self.UserName).Int("workers", r.pool.Size()).Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.dispatch(ctx, up)
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, up tgbotapi.Update) {
	from := up.SentFrom()
	if from == nil {
		return
	}
	err := r.pool.Submit(ctx, from.ID, func(ctx context.Context) error {
		return r.handleUpdate(ctx, up)
	})
	if err != nil {
		r.log.Warn().Err(err).Int64("tg_id", from.ID).Int("update_id", up.UpdateID).Msg("update dropped")
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	from := update.SentFrom()
	if from == nil || from.IsBot {
		return nil
	}
	// Posts live in the shared group; only private conversations are handled.
	if update.Message != nil && (update.Message.Chat == nil || !update.Message.Chat.IsPrivate()) {
		return nil
	}
	ctx = logging.WithTgID(ctx, from.ID)

	if r.guard != nil {
		verdict, err := r.guard.Check(ctx, from.ID)
		if err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("anti-spam check failed, letting the event through")
		} else if !verdict.Allowed() {
			return r.rejectThrottled(ctx, update, verdict)
		}
	}

	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message != nil {
		return r.handleMessage(ctx, update.Message)
	}
	return nil
}

func (r *RealTelegramBotAdapter) rejectThrottled(ctx context.Context, update tgbotapi.Update, v adapter.SpamVerdict) error {
	text := r.facade.Throttled(v).Text
	if q := update.CallbackQuery; q != nil {
		cb := tgbotapi.NewCallback(q.ID, text)
		if v.NewBan {
			cb = tgbotapi.NewCallbackWithAlert(q.ID, text)
		}
		_, err := r.bot.Request(cb)
		return err
	}
	if update.Message != nil {
		return r.SendMessage(ctx, update.Message.Chat.ID, text)
	}
	return nil
}

func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		return r.handleCommand(ctx, msg)
	}
	var reply application.Reply
	switch {
	case len(msg.Photo) > 0:
		// the last size is the largest
		photo := msg.Photo[len(msg.Photo)-1]
		reply = r.facade.HandlePhoto(ctx, msg.From.ID, msg.From.UserName, photo.FileID)
	case strings.TrimSpace(msg.Text) != "":
		reply = r.facade.HandleText(ctx, msg.From.ID, msg.From.UserName, msg.Text)
	default:
		return nil
	}
	return r.sendReply(ctx, msg.Chat.ID, reply)
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop telegram spinner when we return
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	data := strings.TrimSpace(query.Data)

	if fn, ok := r.cbRoutes()[data]; ok {
		return r.sendReply(ctx, chatID, fn(ctx, query.From, data))
	}
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return r.sendReply(ctx, chatID, pr.Fn(ctx, query.From, data))
		}
	}
	logging.With(ctx, r.log).Debug().Str("data", data).Msg("unknown callback data")
	return nil
}

// SendMessage implements the adapter port.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	_, err := r.bot.Send(tgbotapi.NewMessage(tgID, text))
	return err
}

// SendButtons sends a message with inline buttons.
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, telegramID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewMessage(telegramID, text)
	if markup := keyboard(rows); markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := r.bot.Send(msg)
	return err
}

// sendReply renders a facade reply. A photo whose caption would be too long is
// sent bare and followed by the text.
func (r *RealTelegramBotAdapter) sendReply(ctx context.Context, chatID int64, reply application.Reply) error {
	if reply.PhotoID == "" {
		if reply.Text == "" {
			return nil
		}
		return r.SendButtons(ctx, chatID, reply.Text, reply.Buttons)
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(reply.PhotoID))
	if utf8.RuneCountInString(reply.Text) > captionLimit {
		if _, err := r.bot.Send(photo); err != nil {
			return err
		}
		return r.SendButtons(ctx, chatID, reply.Text, reply.Buttons)
	}
	photo.Caption = reply.Text
	if markup := keyboard(reply.Buttons); markup != nil {
		photo.ReplyMarkup = *markup
	}
	_, err := r.bot.Send(photo)
	return err
}

// keyboard builds inline markup. URL buttons open a link, the rest send callback data.
func keyboard(rows [][]adapter.InlineButton) *tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	if len(kbRows) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	return &markup
}
