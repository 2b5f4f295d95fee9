package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
	ucport "telegram-resume-board/internal/domain/ports/usecase"
	"telegram-resume-board/internal/infra/logging"
	"telegram-resume-board/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ RatingUseCase = (*ratingUC)(nil)

// RatingUseCase is the peer rating ledger.
type RatingUseCase interface {
	// ResolveRatingKey maps a rating-link key to the user it rates. It is the only authorization check of the flow.
	ResolveRatingKey(ctx context.Context, key string) (*model.User, error)
	// RatingLink returns the user's deep link, rotating a key older than a week first.
	RatingLink(ctx context.Context, tgID int64, username string) (string, error)
	// SubmitRating records one rating per ordered pair and returns the updated ratee.
	SubmitRating(ctx context.Context, raterTgID int64, raterUsername, rateeID string, score int) (*model.User, error)
}

type ratingUC struct {
	users       repository.UserRepository
	ratings     repository.RatingRepository
	posts       ucport.PostRefresher
	tm          repository.TransactionManager
	botUsername string
	now         func() time.Time
	log         *zerolog.Logger
}

func NewRatingUseCase(users repository.UserRepository, ratings repository.RatingRepository, posts ucport.PostRefresher, tm repository.TransactionManager, botUsername string, logger *zerolog.Logger) *ratingUC {
	l := logger.With().Str("component", "RatingUC").Logger()
	return &ratingUC{
		users:       users,
		ratings:     ratings,
		posts:       posts,
		tm:          tm,
		botUsername: botUsername,
		now:         time.Now,
		log:         &l,
	}
}

func (uc *ratingUC) ResolveRatingKey(ctx context.Context, key string) (*model.User, error) {
	defer logging.TraceDuration(uc.log, "RatingUC.ResolveRatingKey")()
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return uc.users.FindByRatingKey(ctx, repository.NoTX, key)
}

func (uc *ratingUC) RatingLink(ctx context.Context, tgID int64, username string) (string, error) {
	defer logging.TraceDuration(uc.log, "RatingUC.RatingLink")()

	var key string
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := uc.now()
		u, err := ensureUser(ctx, uc.users, tx, tgID, username, now)
		if err != nil {
			return err
		}
		rotated, err := u.RefreshRatingKey(now)
		if err != nil {
			return err
		}
		if rotated {
			if err := uc.users.Save(ctx, tx, u); err != nil {
				return fmt.Errorf("save user: %w", err)
			}
		}
		key = u.RatingKey
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://t.me/%s?start=rate_%s", uc.botUsername, key), nil
}

func (uc *ratingUC) SubmitRating(ctx context.Context, raterTgID int64, raterUsername, rateeID string, score int) (*model.User, error) {
	defer logging.TraceDuration(uc.log, "RatingUC.SubmitRating")()

	var ratee *model.User
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := uc.now()
		rater, err := ensureUser(ctx, uc.users, tx, raterTgID, raterUsername, now)
		if err != nil {
			return err
		}
		if rater.ID == rateeID {
			return domain.ErrSelfRating
		}
		target, err := uc.users.FindByID(ctx, tx, rateeID)
		if err != nil {
			return err
		}
		r, err := model.NewRating(rater.ID, target.ID, score, now)
		if err != nil {
			return err
		}
		exists, err := uc.ratings.Exists(ctx, tx, rater.ID, target.ID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateRating
		}
		if err := uc.ratings.Save(ctx, tx, r); err != nil {
			return err
		}
		if err := target.RotateRatingKey(now); err != nil {
			return err
		}
		sum, err := uc.ratings.Summary(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		sum.Average = model.RoundRating(sum.Average)
		target.ApplyRatingSummary(sum, now)
		if err := uc.users.Save(ctx, tx, target); err != nil {
			return fmt.Errorf("save ratee: %w", err)
		}
		ratee = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncRatingSubmitted(score)

	if uc.posts != nil {
		if _, err := uc.posts.RefreshPost(ctx, ratee.TelegramID); err != nil {
			uc.log.Warn().Err(err).Int64("tg_id", ratee.TelegramID).Msg("post refresh after rating failed")
		}
	}
	return ratee, nil
}
