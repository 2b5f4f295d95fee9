package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
)

var _ repository.DraftRepository = (*PostgresDraftRepo)(nil)

type PostgresDraftRepo struct {
	pool *pgxpool.Pool
}

func NewDraftRepo(pool *pgxpool.Pool) *PostgresDraftRepo {
	return &PostgresDraftRepo{pool: pool}
}

// Save upserts on user_id, so a user never owns more than one draft row.
func (r *PostgresDraftRepo) Save(ctx context.Context, tx repository.Tx, d *model.Draft) error {
	const q = `
INSERT INTO drafts (
  id, user_id, photo_id, description, contact, message_id, theme_message_id,
  theme, theme_change_count, created_at, published_at, paid, payment_id,
  is_draft, hash, published_hash
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (user_id) DO UPDATE SET
  photo_id=$3, description=$4, contact=$5, message_id=$6, theme_message_id=$7,
  theme=$8, theme_change_count=$9, published_at=$11, paid=$12, payment_id=$13,
  is_draft=$14, hash=$15, published_hash=$16
RETURNING id;
`
	row := pickRow(ctx, r.pool, tx, q,
		d.ID, d.UserID, d.PhotoID, d.Description, d.Contact, d.MessageID, d.ThemeMessageID,
		string(d.Theme), d.ThemeChangeCount, d.CreatedAt, d.PublishedAt, d.Paid, d.PaymentID,
		d.IsDraft, d.Hash, d.PublishedHash)
	if err := row.Scan(&d.ID); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

const findDraftSQL = `
SELECT d.id, d.user_id, u.telegram_id, d.photo_id, d.description, d.contact,
       d.message_id, d.theme_message_id, d.theme, d.theme_change_count, d.created_at,
       d.published_at, d.paid, d.payment_id, d.is_draft, d.hash, d.published_hash
  FROM drafts d
  JOIN users u ON u.id = d.user_id
 WHERE u.telegram_id = $1`

// FindByTelegramID locks the draft row when called inside a transaction, so a
// read-check-write in one tx cannot interleave with a sweep or another writer.
func (r *PostgresDraftRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Draft, error) {
	q := findDraftSQL
	if tx != nil {
		q += "\n   FOR UPDATE OF d"
	}
	row := pickRow(ctx, r.pool, tx, q, tgID)
	var (
		d     model.Draft
		theme string
	)
	if err := row.Scan(
		&d.ID, &d.UserID, &d.TelegramID, &d.PhotoID, &d.Description, &d.Contact,
		&d.MessageID, &d.ThemeMessageID, &theme, &d.ThemeChangeCount, &d.CreatedAt,
		&d.PublishedAt, &d.Paid, &d.PaymentID, &d.IsDraft, &d.Hash, &d.PublishedHash,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find draft: %w", err)
	}
	d.Theme = model.Theme(theme)
	return &d, nil
}

// Delete removes the user's draft. Deleting a missing draft is a no-op.
func (r *PostgresDraftRepo) Delete(ctx context.Context, tx repository.Tx, tgID int64) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, `DELETE FROM drafts WHERE user_id = (SELECT id FROM users WHERE telegram_id = $1);`, tgID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// ExpirePublished flips every stale live draft back to the unpublished state in a single statement.
// Rows locked by a concurrent sweep are skipped and rows already flipped no longer match the filter.
func (r *PostgresDraftRepo) ExpirePublished(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]repository.ExpiredDraft, error) {
	const q = `
WITH stale AS (
  SELECT d.id, u.telegram_id, d.message_id, d.theme_message_id
    FROM drafts d
    JOIN users u ON u.id = d.user_id
   WHERE d.is_draft = FALSE AND d.published_at <= $1
   FOR UPDATE OF d SKIP LOCKED
)
UPDATE drafts d
   SET is_draft = TRUE, paid = FALSE, published_at = NULL, payment_id = '',
       message_id = 0, theme_message_id = 0, published_hash = ''
  FROM stale s
 WHERE d.id = s.id
RETURNING s.id, s.telegram_id, s.message_id, s.theme_message_id;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, cutoff)
	if err != nil {
		return nil, fmt.Errorf("expire drafts: %w", err)
	}
	defer rows.Close()

	var out []repository.ExpiredDraft
	for rows.Next() {
		var e repository.ExpiredDraft
		if err := rows.Scan(&e.DraftID, &e.TelegramID, &e.MessageID, &e.ThemeMessageID); err != nil {
			return nil, fmt.Errorf("scan expired draft: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("expire drafts: %w", err)
	}
	return out, nil
}

func (r *PostgresDraftRepo) CountByState(ctx context.Context, tx repository.Tx) (repository.DraftCounts, error) {
	const q = `
SELECT COUNT(*) FILTER (WHERE is_draft),
       COUNT(*) FILTER (WHERE NOT is_draft)
  FROM drafts;
`
	var c repository.DraftCounts
	if err := pickRow(ctx, r.pool, tx, q).Scan(&c.Drafts, &c.Published); err != nil {
		return c, fmt.Errorf("count drafts: %w", err)
	}
	return c, nil
}
