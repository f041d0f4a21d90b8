package repositories

import (
	"context"
	"database/sql"

	"github.com/ssclub/club-system/models"
)

type RankGroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.RankGroup) error
	AddMember(ctx context.Context, exec SQLExecutor, rankGroupID, playerID int) error
	// DeleteByTournament удаляет группы турнира вместе со строками членства.
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error
	// ListPlayerNamesByTournament возвращает уникальные имена игроков турнира
	// по алфавиту.
	ListPlayerNamesByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]string, error)
}

type postgresRankGroupRepository struct {
	db *sql.DB
}

func NewPostgresRankGroupRepository(db *sql.DB) RankGroupRepository {
	return &postgresRankGroupRepository{db: db}
}

func (r *postgresRankGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRankGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.RankGroup) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rank_groups (tournament_id, rank, rating)
		VALUES ($1, $2, $3)
		RETURNING id`

	return executor.QueryRowContext(ctx, query, group.TournamentID, group.Rank, group.Rating).Scan(&group.ID)
}

func (r *postgresRankGroupRepository) AddMember(ctx context.Context, exec SQLExecutor, rankGroupID, playerID int) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rank_group_players (rank_group_id, player_id)
		VALUES ($1, $2)`

	_, err := executor.ExecContext(ctx, query, rankGroupID, playerID)
	return err
}

func (r *postgresRankGroupRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	executor := r.getExecutor(exec)

	memberQuery := `
		DELETE FROM rank_group_players
		WHERE rank_group_id IN (SELECT id FROM rank_groups WHERE tournament_id = $1)`
	if _, err := executor.ExecContext(ctx, memberQuery, tournamentID); err != nil {
		return err
	}

	groupQuery := `DELETE FROM rank_groups WHERE tournament_id = $1`
	_, err := executor.ExecContext(ctx, groupQuery, tournamentID)
	return err
}

func (r *postgresRankGroupRepository) ListPlayerNamesByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]string, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT DISTINCT p.name
		FROM rank_groups rg
		JOIN rank_group_players rgp ON rgp.rank_group_id = rg.id
		JOIN players p ON p.id = rgp.player_id
		WHERE rg.tournament_id = $1
		ORDER BY p.name ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			return nil, scanErr
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
