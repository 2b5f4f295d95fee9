package usecase

import (
	"context"

	"telegram-resume-board/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type Stats struct {
	Users     int `json:"users"`
	Drafts    int `json:"drafts"`
	Published int `json:"published"`
}

type StatsUseCase interface {
	Totals(ctx context.Context) (Stats, error)
}

type statsUC struct {
	users  repository.UserRepository
	drafts repository.DraftRepository

	log *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, drafts repository.DraftRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, drafts: drafts, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (Stats, error) {
	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return Stats{}, err
	}
	counts, err := s.drafts.CountByState(ctx, repository.NoTX)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Users: users, Drafts: counts.Drafts, Published: counts.Published}, nil
}
