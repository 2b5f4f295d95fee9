package application

import (
	"strconv"
	"strings"

	"telegram-resume-board/internal/domain/ports/adapter"
)

// Reply is what the bot sends back for one user action.
type Reply struct {
	Text    string
	PhotoID string
	Buttons [][]adapter.InlineButton
}

// Callback data understood by the bot adapter.
const (
	CbMenu            = "menu"
	CbHelp            = "help"
	CbCreate          = "draft:create"
	CbShowDraft       = "draft:show"
	CbShowPublished   = "draft:live"
	CbPublish         = "draft:publish"
	CbRecall          = "draft:recall"
	CbDelete          = "draft:delete"
	CbEditPhoto       = "edit:photo"
	CbEditDescription = "edit:description"
	CbEditContact     = "edit:contact"
	CbThemeMenu       = "theme:menu"
	CbThemePrefix     = "theme:"
	CbCheckPayment    = "pay:check"
	CbConfirmRecall   = "confirm:recall"
	CbConfirmDelete   = "confirm:delete"
	CbCancel          = "confirm:cancel"
	CbRatingLink      = "rating:link"
	CbRatePrefix      = "rate:"
)

// Conversation steps kept in the state store.
const (
	StepAwaitingPhoto       = "awaiting_photo"
	StepAwaitingDescription = "awaiting_description"
	StepAwaitingContact     = "awaiting_contact"
)

// RatePayload encodes a rating button.
func RatePayload(rateeID string, score int) string {
	return CbRatePrefix + rateeID + ":" + strconv.Itoa(score)
}

// ParseRatePayload is the inverse of RatePayload.
func ParseRatePayload(data string) (rateeID string, score int, ok bool) {
	rest, found := strings.CutPrefix(data, CbRatePrefix)
	if !found {
		return "", 0, false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return "", 0, false
	}
	score, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:i], score, true
}

func button(text, data string) adapter.InlineButton {
	return adapter.InlineButton{Text: text, Data: data}
}

func linkButton(text, url string) adapter.InlineButton {
	return adapter.InlineButton{Text: text, URL: url}
}

func row(buttons ...adapter.InlineButton) []adapter.InlineButton { return buttons }
