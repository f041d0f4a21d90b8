package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/ssclub/club-system/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentIDConflict   = errors.New("tournament id already exists")
	ErrTournamentDateConflict = errors.New("tournament date already exists")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error)
	GetByDate(ctx context.Context, exec SQLExecutor, date models.Date) (*models.Tournament, error)
	// ListAll возвращает все турниры с вложенными группами и именами игроков,
	// отсортированные по дате по убыванию.
	ListAll(ctx context.Context) ([]models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	Delete(ctx context.Context, exec SQLExecutor, id string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (id, date, playlist_url, embed_url, is_official)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := executor.ExecContext(ctx, query, t.ID, t.Date, t.PlaylistURL, t.EmbedURL, t.IsOfficial)
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, date, playlist_url, embed_url, is_official
		FROM tournaments
		WHERE id = $1`

	return r.scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetByDate(ctx context.Context, exec SQLExecutor, date models.Date) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, date, playlist_url, embed_url, is_official
		FROM tournaments
		WHERE date = $1`

	return r.scanTournament(executor.QueryRowContext(ctx, query, date))
}

func (r *postgresTournamentRepository) scanTournament(row *sql.Row) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(&t.ID, &t.Date, &t.PlaylistURL, &t.EmbedURL, &t.IsOfficial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) ListAll(ctx context.Context) ([]models.Tournament, error) {
	query := `
		SELECT id, date, playlist_url, embed_url, is_official
		FROM tournaments
		ORDER BY date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	index := make(map[string]int)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(&t.ID, &t.Date, &t.PlaylistURL, &t.EmbedURL, &t.IsOfficial); scanErr != nil {
			return nil, scanErr
		}
		t.Ranks = make([]models.RankGroup, 0)
		index[t.ID] = len(tournaments)
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	// Вторым запросом подтягиваем все группы с именами игроков.
	groupQuery := `
		SELECT rg.id, rg.tournament_id, rg.rank, rg.rating, p.name
		FROM rank_groups rg
		LEFT JOIN rank_group_players rgp ON rgp.rank_group_id = rg.id
		LEFT JOIN players p ON p.id = rgp.player_id
		ORDER BY rg.tournament_id, rg.rank ASC, rg.id ASC, p.name ASC`

	groupRows, err := r.db.QueryContext(ctx, groupQuery)
	if err != nil {
		return nil, err
	}
	defer groupRows.Close()

	groupIndex := make(map[int]*models.RankGroup)
	for groupRows.Next() {
		var (
			groupID      int
			tournamentID string
			rank         int
			rating       int
			playerName   sql.NullString
		)
		if scanErr := groupRows.Scan(&groupID, &tournamentID, &rank, &rating, &playerName); scanErr != nil {
			return nil, scanErr
		}

		ti, ok := index[tournamentID]
		if !ok {
			continue
		}

		group, ok := groupIndex[groupID]
		if !ok {
			tournaments[ti].Ranks = append(tournaments[ti].Ranks, models.RankGroup{
				ID:           groupID,
				TournamentID: tournamentID,
				Rank:         rank,
				Rating:       rating,
				Players:      make([]string, 0),
			})
			group = &tournaments[ti].Ranks[len(tournaments[ti].Ranks)-1]
			groupIndex[groupID] = group
		}
		if playerName.Valid {
			group.Players = append(group.Players, playerName.String)
		}
	}
	if err = groupRows.Err(); err != nil {
		return nil, err
	}

	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments SET
			date = $1,
			playlist_url = $2,
			embed_url = $3,
			is_official = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query, t.Date, t.PlaylistURL, t.EmbedURL, t.IsOfficial, t.ID)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM tournaments WHERE id = $1`

	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "tournaments_pkey":
			return ErrTournamentIDConflict
		case "tournaments_date_key":
			return ErrTournamentDateConflict
		}
	}
	return err
}
