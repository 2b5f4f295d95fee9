package telegram

import (
	"context"
	"sync/atomic"

	"telegram-resume-board/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.Messenger = (*NoopMessenger)(nil)

// NoopMessenger implements adapter.Messenger for local/dev runs.
// It logs posts instead of publishing them to the shared chat.
type NoopMessenger struct {
	nextID atomic.Int64
	log    *zerolog.Logger
}

func NewNoopMessenger(logger *zerolog.Logger) *NoopMessenger {
	l := logger.With().Str("component", "NoopMessenger").Logger()
	return &NoopMessenger{log: &l}
}

func (m *NoopMessenger) Send(ctx context.Context, p adapter.Post) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id := int(m.nextID.Add(1))
	m.log.Info().Int64("chat_id", p.ChatID).Int64("thread_id", p.ThreadID).Int("message_id", id).
		Bool("photo", p.PhotoID != "").Str("text", p.Text).Msg("[noop] send")
	return id, nil
}

func (m *NoopMessenger) Edit(ctx context.Context, messageID int, p adapter.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.Info().Int64("chat_id", p.ChatID).Int("message_id", messageID).Str("text", p.Text).Msg("[noop] edit")
	return nil
}

func (m *NoopMessenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.Info().Int64("chat_id", chatID).Int("message_id", messageID).Msg("[noop] delete")
	return nil
}
