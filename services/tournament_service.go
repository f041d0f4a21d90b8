package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ssclub/club-system/models"
	"github.com/ssclub/club-system/repositories"
)

// Обязательные позиции сетки. Порядок проверки фиксирован:
// именно он определяет, какая ошибка будет первой у некорректного турнира.
var mandatoryRatings = []struct {
	Rating int
	Name   string
}{
	{1, "Cup Champion"},
	{2, "Cup Runner Up"},
	{3, "Cup Semi Finalists"},
	{5, "Plate Champion"},
	{6, "Plate Runner Up"},
	{7, "Plate Semi Finalists"},
}

type RankGroupInput struct {
	Rank    int      `json:"rank"`
	Rating  int      `json:"rating"`
	Players []string `json:"players"`
}

type TournamentInput struct {
	ID          string           `json:"id"`
	Date        models.Date      `json:"date"`
	PlaylistURL *string          `json:"playlist_url"`
	EmbedURL    *string          `json:"embed_url"`
	IsOfficial  *bool            `json:"is_official"`
	Ranks       []RankGroupInput `json:"ranks"`
}

type TournamentService interface {
	List(ctx context.Context) ([]models.Tournament, error)
	Create(ctx context.Context, input TournamentInput) error
	Update(ctx context.Context, id string, input TournamentInput) error
	Delete(ctx context.Context, id string) error
	// PlayersByDate возвращает уникальные имена игроков турнира на дату,
	// отсортированные по алфавиту.
	PlayersByDate(ctx context.Context, date models.Date) ([]string, error)
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	rankGroupRepo  repositories.RankGroupRepository
	playerRepo     repositories.PlayerRepository
	attendanceRepo repositories.AttendanceRepository
	fundRepo       repositories.FundRepository
	publisher      EventPublisher
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	rankGroupRepo repositories.RankGroupRepository,
	playerRepo repositories.PlayerRepository,
	attendanceRepo repositories.AttendanceRepository,
	fundRepo repositories.FundRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		rankGroupRepo:  rankGroupRepo,
		playerRepo:     playerRepo,
		attendanceRepo: attendanceRepo,
		fundRepo:       fundRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

// validateTournamentRules проверяет форму сетки перед любой записью в БД.
// Чистая функция; порядок проверок воспроизводится точно:
// сначала размер групп в порядке запроса, затем дубликаты игроков,
// затем обязательные позиции по возрастанию кода.
func validateTournamentRules(input TournamentInput) error {
	allPlayers := make([]string, 0)
	ratingsPresent := make(map[int]int)

	for _, group := range input.Ranks {
		ratingsPresent[group.Rating] = len(group.Players)
		allPlayers = append(allPlayers, group.Players...)

		// Коды 3 и 7 — полуфиналы, ровно два игрока.
		if (group.Rating == 3 || group.Rating == 7) && len(group.Players) != 2 {
			bracket := "Cup"
			if group.Rating == 7 {
				bracket = "Plate"
			}
			return fmt.Errorf("%w: %s Semi-Finals must have exactly 2 players", ErrBracketSize, bracket)
		}

		// Коды 4 и 8 — четвертьфиналы, не более четырёх игроков.
		if (group.Rating == 4 || group.Rating == 8) && len(group.Players) > 4 {
			bracket := "Cup"
			if group.Rating == 8 {
				bracket = "Plate"
			}
			return fmt.Errorf("%w: %s Quarter-Finals cannot have more than 4 players", ErrBracketSize, bracket)
		}
	}

	seen := make(map[string]bool, len(allPlayers))
	for _, name := range allPlayers {
		if seen[name] {
			return fmt.Errorf("%w: %q", ErrDuplicatePlayer, name)
		}
		seen[name] = true
	}

	for _, mandatory := range mandatoryRatings {
		if count, ok := ratingsPresent[mandatory.Rating]; !ok || count == 0 {
			return fmt.Errorf("%w: %s is mandatory", ErrMissingMandatoryRank, mandatory.Name)
		}
	}

	return nil
}

func (s *tournamentService) List(ctx context.Context) ([]models.Tournament, error) {
	return s.tournamentRepo.ListAll(ctx)
}

func (s *tournamentService) Create(ctx context.Context, input TournamentInput) error {
	if err := validateTournamentRules(input); err != nil {
		return err
	}

	isOfficial := true
	if input.IsOfficial != nil {
		isOfficial = *input.IsOfficial
	}

	tournament := &models.Tournament{
		ID:          input.ID,
		Date:        input.Date,
		PlaylistURL: input.PlaylistURL,
		EmbedURL:    input.EmbedURL,
		IsOfficial:  isOfficial,
	}

	var allPlayers []models.Player

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.Create(ctx, tx, tournament); err != nil {
			return mapTournamentRepoError(err)
		}

		for _, groupInput := range input.Ranks {
			group := &models.RankGroup{
				TournamentID: tournament.ID,
				Rank:         groupInput.Rank,
				Rating:       groupInput.Rating,
			}
			if err := s.rankGroupRepo.Create(ctx, tx, group); err != nil {
				return err
			}

			for _, name := range groupInput.Players {
				player, err := s.playerRepo.FindOrCreateByName(ctx, tx, name)
				if err != nil {
					return err
				}
				if err := s.rankGroupRepo.AddMember(ctx, tx, group.ID, player.ID); err != nil {
					return err
				}
				allPlayers = append(allPlayers, *player)
			}
		}

		for _, player := range allPlayers {
			attendance := &models.TournamentAttendance{
				TournamentID: tournament.ID,
				PlayerID:     player.ID,
				IsClubMember: false,
			}
			if err := s.attendanceRepo.Upsert(ctx, tx, attendance); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	// Обновление days_played делается после коммита и не валит создание
	// турнира: при сбое остаётся расхождение в статистике, не в результатах.
	for _, player := range allPlayers {
		if _, err := s.fundRepo.GetOrCreate(ctx, nil, player.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to ensure player fund after tournament create",
				slog.String("player", player.Name), slog.Any("error", err))
			continue
		}
		if err := s.fundRepo.IncrementDaysPlayed(ctx, nil, player.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to increment days played",
				slog.String("player", player.Name), slog.Any("error", err))
		}
	}

	s.publish(EventTournamentCreated, tournament)
	return nil
}

func (s *tournamentService) Update(ctx context.Context, id string, input TournamentInput) error {
	if err := validateTournamentRules(input); err != nil {
		return err
	}

	isOfficial := true
	if input.IsOfficial != nil {
		isOfficial = *input.IsOfficial
	}

	tournament := &models.Tournament{
		ID:          id,
		Date:        input.Date,
		PlaylistURL: input.PlaylistURL,
		EmbedURL:    input.EmbedURL,
		IsOfficial:  isOfficial,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.Update(ctx, tx, tournament); err != nil {
			return mapTournamentRepoError(err)
		}

		// Группы пересоздаются целиком.
		if err := s.rankGroupRepo.DeleteByTournament(ctx, tx, id); err != nil {
			return err
		}

		for _, groupInput := range input.Ranks {
			group := &models.RankGroup{
				TournamentID: id,
				Rank:         groupInput.Rank,
				Rating:       groupInput.Rating,
			}
			if err := s.rankGroupRepo.Create(ctx, tx, group); err != nil {
				return err
			}
			for _, name := range groupInput.Players {
				player, err := s.playerRepo.FindOrCreateByName(ctx, tx, name)
				if err != nil {
					return err
				}
				if err := s.rankGroupRepo.AddMember(ctx, tx, group.ID, player.ID); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.publish(EventTournamentUpdated, tournament)
	return nil
}

func (s *tournamentService) Delete(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.rankGroupRepo.DeleteByTournament(ctx, tx, id); err != nil {
			return err
		}
		if err := s.tournamentRepo.Delete(ctx, tx, id); err != nil {
			return mapTournamentRepoError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(EventTournamentDeleted, map[string]string{"id": id})
	return nil
}

func (s *tournamentService) PlayersByDate(ctx context.Context, date models.Date) ([]string, error) {
	tournament, err := s.tournamentRepo.GetByDate(ctx, nil, date)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w for date %s", ErrTournamentNotFound, date)
		}
		return nil, err
	}

	return s.rankGroupRepo.ListPlayerNamesByTournament(ctx, nil, tournament.ID)
}

func (s *tournamentService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.ErrorContext(ctx, "transaction rollback failed", slog.Any("error", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *tournamentService) publish(eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, payload)
	}
}

func mapTournamentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentIDConflict):
		return ErrTournamentIDConflict
	case errors.Is(err, repositories.ErrTournamentDateConflict):
		return ErrTournamentDateConflict
	default:
		return err
	}
}
