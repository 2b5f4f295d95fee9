package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

const userColumns = `id, telegram_id, username, rating_key, rating_key_updated_at,
       has_free_publication, rating_avg, rating_count, created_at, updated_at`

// Save upserts by telegram id. On a concurrent first contact the existing row wins and u.ID is rewritten to it.
func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, telegram_id, username, rating_key, rating_key_updated_at,
  has_free_publication, rating_avg, rating_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (telegram_id) DO UPDATE SET
  username=$3, rating_key=$4, rating_key_updated_at=$5,
  has_free_publication=$6, rating_avg=$7, rating_count=$8, updated_at=$10
RETURNING id;
`
	row := pickRow(ctx, r.pool, tx, q,
		u.ID, u.TelegramID, u.Username, u.RatingKey, u.RatingKeyUpdatedAt,
		u.HasFreePublication, u.RatingAvg, u.RatingCount, u.CreatedAt, u.UpdatedAt)
	if err := row.Scan(&u.ID); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	return r.findOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE telegram_id=$1;`, tgID)
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id)
}

func (r *PostgresUserRepo) FindByRatingKey(ctx context.Context, tx repository.Tx, key string) (*model.User, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, tx, `SELECT `+userColumns+` FROM users WHERE rating_key=$1;`, key)
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *PostgresUserRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.User, error) {
	row := pickRow(ctx, r.pool, tx, q, arg)
	var u model.User
	if err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.RatingKey, &u.RatingKeyUpdatedAt,
		&u.HasFreePublication, &u.RatingAvg, &u.RatingCount, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
