package model

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"telegram-resume-board/internal/domain"

	"github.com/google/uuid"
)

// Theme change policy. A manual set is allowed while the counter is below
// ThemeChangeCap. Reaching ThemePromotionTrigger makes the next publish or
// update repost the topic-thread twin once, after which the counter is ThemePromoted.
const (
	ThemeChangeCap        = 2
	ThemePromotionTrigger = 2
	ThemePromoted         = 3
)

type Theme string

const (
	ThemeDevelopment Theme = "development"
	ThemeDesign      Theme = "design"
	ThemeMarketing   Theme = "marketing"
	ThemeManagement  Theme = "management"
	ThemeAnalytics   Theme = "analytics"
	ThemeOther       Theme = "other"
)

// Themes lists the selectable themes in menu order.
var Themes = []Theme{ThemeDevelopment, ThemeDesign, ThemeMarketing, ThemeManagement, ThemeAnalytics, ThemeOther}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Themes {
		if t == known {
			return t, nil
		}
	}
	return "", domain.ErrInvalidTheme
}

// Draft is the single resume/vacancy record a user owns, either unpublished or live in the chat.
type Draft struct {
	ID               string
	UserID           string
	TelegramID       int64
	PhotoID          string
	Description      string
	Contact          string
	MessageID        int
	ThemeMessageID   int
	Theme            Theme
	ThemeChangeCount int
	CreatedAt        time.Time
	PublishedAt      *time.Time
	Paid             bool
	PaymentID        string
	IsDraft          bool
	Hash             string // content hash of the current fields
	PublishedHash    string // content hash at the last successful publish or refresh
}

func NewDraft(u *User, now time.Time) *Draft {
	d := &Draft{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		TelegramID: u.TelegramID,
		CreatedAt:  now,
		IsDraft:    true,
	}
	d.Hash = d.ContentHash()
	return d
}

func (d *Draft) IsLive() bool { return d != nil && !d.IsDraft }

func (d *Draft) HasPhoto() bool { return d.PhotoID != "" }

// ContentHash digests the fields that make up the visible post.
func (d *Draft) ContentHash() string {
	h := sha256.New()
	for _, part := range []string{d.Description, d.Contact, string(d.Theme), strconv.FormatBool(d.HasPhoto())} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MissingForPublish returns the validation error that blocks publishing, if any.
func (d *Draft) MissingForPublish(requireTheme bool) error {
	if strings.TrimSpace(d.Description) == "" || strings.TrimSpace(d.Contact) == "" {
		return domain.ErrMissingFields
	}
	if requireTheme && d.Theme == "" {
		return domain.ErrMissingTheme
	}
	return nil
}

func (d *Draft) CanChangeTheme() bool { return d.ThemeChangeCount < ThemeChangeCap }

// SetTheme applies a manual theme selection and bumps the change counter.
func (d *Draft) SetTheme(t Theme) error {
	if !d.CanChangeTheme() {
		return domain.ErrThemeChangeLimit
	}
	d.Theme = t
	d.ThemeChangeCount++
	d.Hash = d.ContentHash()
	return nil
}

// NeedsTopicPromotion reports whether the next publish or update must repost the topic twin.
func (d *Draft) NeedsTopicPromotion() bool {
	return d.Theme != "" && d.ThemeChangeCount == ThemePromotionTrigger
}

// MarkPublished moves the draft live with the given chat message ids.
func (d *Draft) MarkPublished(mainID, topicID int, now time.Time) {
	at := now
	d.IsDraft = false
	d.PublishedAt = &at
	d.MessageID = mainID
	d.ThemeMessageID = topicID
	if d.ThemeChangeCount < 1 {
		d.ThemeChangeCount = 1
	}
	d.PublishedHash = d.Hash
}

// Recall returns a live draft to the unpublished state. Payment is not carried over.
func (d *Draft) Recall() {
	d.IsDraft = true
	d.PublishedAt = nil
	d.MessageID = 0
	d.ThemeMessageID = 0
	d.Paid = false
	d.PaymentID = ""
	d.PublishedHash = ""
}

// Remaining is the time left before a live draft expires. Zero for unpublished drafts.
func (d *Draft) Remaining(now time.Time, lifetime time.Duration) time.Duration {
	if !d.IsLive() || d.PublishedAt == nil {
		return 0
	}
	left := d.PublishedAt.Add(lifetime).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Field is an optional patch value with three states: unset (zero value), set, or cleared.
type Field[T any] struct {
	value T
	state fieldState
}

type fieldState uint8

const (
	fieldUnset fieldState = iota
	fieldSet
	fieldCleared
)

func Set[T any](v T) Field[T] { return Field[T]{value: v, state: fieldSet} }

func Clear[T any]() Field[T] { return Field[T]{state: fieldCleared} }

func (f Field[T]) IsSet() bool     { return f.state == fieldSet }
func (f Field[T]) IsCleared() bool { return f.state == fieldCleared }
func (f Field[T]) IsUnset() bool   { return f.state == fieldUnset }
func (f Field[T]) Value() T        { return f.value }

// apply writes the field into dst unless it is unset.
func (f Field[T]) apply(dst *T) {
	switch f.state {
	case fieldSet:
		*dst = f.value
	case fieldCleared:
		var zero T
		*dst = zero
	}
}

// DraftPatch lists every user-editable draft field. Unset fields leave the draft untouched.
type DraftPatch struct {
	PhotoID     Field[string]
	Description Field[string]
	Contact     Field[string]
}

func (p DraftPatch) IsEmpty() bool {
	return p.PhotoID.IsUnset() && p.Description.IsUnset() && p.Contact.IsUnset()
}

// Apply writes the patch into d and recomputes the content hash.
func (p DraftPatch) Apply(d *Draft) {
	p.PhotoID.apply(&d.PhotoID)
	p.Description.apply(&d.Description)
	p.Contact.apply(&d.Contact)
	d.Hash = d.ContentHash()
}

var contactRe = regexp.MustCompile(`^[a-zA-Z0-9_]{5,32}$`)

// NormalizeContact strips a leading @ and validates the telegram username format.
func NormalizeContact(raw string) (string, error) {
	c := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if !contactRe.MatchString(c) {
		return "", domain.ErrInvalidContact
	}
	return c, nil
}
