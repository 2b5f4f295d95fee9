package adapter

import "context"

// Post is chat content addressed to a chat and optionally to a forum thread.
type Post struct {
	ChatID   int64
	ThreadID int64 // 0 = main thread
	Text     string
	PhotoID  string
}

// Messenger is the port for the chat surface the posts live on.
type Messenger interface {
	Send(ctx context.Context, p Post) (messageID int, err error)
	Edit(ctx context.Context, messageID int, p Post) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// TelegramBotAdapter is the port for direct conversations with users.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, telegramID int64, text string) error
	SendButtons(ctx context.Context, telegramID int64, text string, rows [][]InlineButton) error
}
