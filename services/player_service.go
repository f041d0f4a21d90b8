package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ssclub/club-system/models"
	"github.com/ssclub/club-system/repositories"
)

// PlayerService — справочник игроков.
type PlayerService interface {
	Create(ctx context.Context, name string) (*models.Player, error)
	List(ctx context.Context) ([]models.Player, error)
}

type playerService struct {
	repo repositories.PlayerRepository
}

func NewPlayerService(repo repositories.PlayerRepository) PlayerService {
	return &playerService{repo: repo}
}

func (s *playerService) Create(ctx context.Context, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlayerNameEmpty
	}

	player := &models.Player{Name: name}
	if err := s.repo.Create(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return nil, ErrPlayerNameConflict
		}
		return nil, err
	}
	return player, nil
}

func (s *playerService) List(ctx context.Context) ([]models.Player, error) {
	return s.repo.List(ctx)
}
