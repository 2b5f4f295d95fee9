package usecase

import (
	"fmt"
	"strings"

	"telegram-resume-board/internal/domain/model"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// ComposePost renders the chat text of a post in Telegram legacy Markdown:
// description, the aggregate rating line when the owner has ratings, and the contact link.
func ComposePost(d *model.Draft, owner *model.User) string {
	var b strings.Builder
	b.WriteString(markdownEscaper.Replace(strings.TrimSpace(d.Description)))
	if owner != nil && owner.RatingCount > 0 {
		fmt.Fprintf(&b, "\n\n⭐ %.1f (%d)", owner.RatingAvg, owner.RatingCount)
	}
	fmt.Fprintf(&b, "\n\n📩 [Связаться со мной](https://t.me/%s)", d.Contact)
	return b.String()
}
