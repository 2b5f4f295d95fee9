package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"telegram-resume-board/internal/domain/ports/adapter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ adapter.Messenger = (*BotMessenger)(nil)

// BotMessenger posts to the shared chat through the Bot API.
type BotMessenger struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewBotMessenger(bot *tgbotapi.BotAPI, logger *zerolog.Logger) *BotMessenger {
	l := logger.With().Str("component", "BotMessenger").Logger()
	return &BotMessenger{bot: bot, log: &l}
}

// Send posts p and returns the new message id. The library configs carry no
// forum thread id, so the request parameters are built directly.
func (m *BotMessenger) Send(ctx context.Context, p adapter.Post) (int, error) {
	params := tgbotapi.Params{}
	if err := params.AddFirstValid("chat_id", p.ChatID); err != nil {
		return 0, err
	}
	if p.ThreadID != 0 {
		params["message_thread_id"] = strconv.FormatInt(p.ThreadID, 10)
	}
	params["parse_mode"] = tgbotapi.ModeMarkdown

	endpoint := "sendMessage"
	if p.PhotoID != "" {
		endpoint = "sendPhoto"
		params["photo"] = p.PhotoID
		params["caption"] = p.Text
	} else {
		params["text"] = p.Text
		params["disable_web_page_preview"] = "true"
	}

	resp, err := m.bot.MakeRequest(endpoint, params)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", endpoint, err)
	}
	var msg tgbotapi.Message
	if err := json.Unmarshal(resp.Result, &msg); err != nil {
		return 0, fmt.Errorf("decode %s result: %w", endpoint, err)
	}
	m.log.Debug().Int64("chat_id", p.ChatID).Int64("thread_id", p.ThreadID).Int("message_id", msg.MessageID).Msg("post sent")
	return msg.MessageID, nil
}

// Edit replaces the content of an existing post. An unchanged post is not an error.
func (m *BotMessenger) Edit(ctx context.Context, messageID int, p adapter.Post) error {
	var cfg tgbotapi.Chattable
	if p.PhotoID != "" {
		media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(p.PhotoID))
		media.Caption = p.Text
		media.ParseMode = tgbotapi.ModeMarkdown
		cfg = tgbotapi.EditMessageMediaConfig{
			BaseEdit: tgbotapi.BaseEdit{ChatID: p.ChatID, MessageID: messageID},
			Media:    media,
		}
	} else {
		edit := tgbotapi.NewEditMessageText(p.ChatID, messageID, p.Text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		edit.DisableWebPagePreview = true
		cfg = edit
	}
	if _, err := m.bot.Request(cfg); err != nil {
		if isNotModified(err) {
			return nil
		}
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

func (m *BotMessenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	if _, err := m.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
