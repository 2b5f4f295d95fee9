package usecase

import (
	"context"
	"errors"
	"time"

	"telegram-resume-board/internal/domain"
	"telegram-resume-board/internal/domain/model"
	"telegram-resume-board/internal/domain/ports/repository"
	"telegram-resume-board/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user-related operations used by bot/admin flows.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, tgID int64, username string) (*model.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	now   func() time.Time
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		tm:    tm,
		now:   time.Now,
		log:   logger,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, tgID int64, username string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	var user *model.User
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		usr, err := ensureUser(ctx, u.users, tx, tgID, username, u.now())
		user = usr
		return err
	})
	return user, err
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetByTelegramID")()
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.CountUsers(ctx, repository.NoTX)
}

// ensureUser fetches the user inside tx, creating it on first interaction.
// A changed username is persisted.
func ensureUser(ctx context.Context, users repository.UserRepository, tx repository.Tx, tgID int64, username string, now time.Time) (*model.User, error) {
	usr, err := users.FindByTelegramID(ctx, tx, tgID)
	switch {
	case err == nil:
		if username != "" && usr.Username != username {
			usr.Username = username
			usr.UpdatedAt = now
			if err := users.Save(ctx, tx, usr); err != nil {
				return nil, err
			}
		}
		return usr, nil
	case errors.Is(err, domain.ErrNotFound):
		nu, err := model.NewUser(tgID, username, now)
		if err != nil {
			return nil, err
		}
		if err := users.Save(ctx, tx, nu); err != nil {
			return nil, err
		}
		return nu, nil
	default:
		return nil, err
	}
}
