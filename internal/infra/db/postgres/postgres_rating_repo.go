package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
)

var _ repository.RatingRepository = (*PostgresRatingRepo)(nil)

const uniqueViolation = "23505"

type PostgresRatingRepo struct {
	pool *pgxpool.Pool
}

func NewRatingRepo(pool *pgxpool.Pool) *PostgresRatingRepo {
	return &PostgresRatingRepo{pool: pool}
}

func (r *PostgresRatingRepo) Save(ctx context.Context, tx repository.Tx, rt *model.Rating) error {
	const q = `
INSERT INTO ratings (id, from_user_id, to_user_id, score, created_at)
VALUES ($1,$2,$3,$4,$5);
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, rt.ID, rt.FromUserID, rt.ToUserID, rt.Score, rt.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateRating
		}
		return fmt.Errorf("save rating: %w", err)
	}
	return nil
}

func (r *PostgresRatingRepo) Exists(ctx context.Context, tx repository.Tx, fromUserID, toUserID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM ratings WHERE from_user_id=$1 AND to_user_id=$2);`
	var ok bool
	if err := pickRow(ctx, r.pool, tx, q, fromUserID, toUserID).Scan(&ok); err != nil {
		return false, fmt.Errorf("rating exists: %w", err)
	}
	return ok, nil
}

func (r *PostgresRatingRepo) Summary(ctx context.Context, tx repository.Tx, toUserID string) (model.RatingSummary, error) {
	const q = `SELECT COALESCE(AVG(score), 0)::float8, COUNT(*) FROM ratings WHERE to_user_id=$1;`
	var s model.RatingSummary
	if err := pickRow(ctx, r.pool, tx, q, toUserID).Scan(&s.Average, &s.Count); err != nil {
		return s, fmt.Errorf("rating summary: %w", err)
	}
	return s, nil
}
