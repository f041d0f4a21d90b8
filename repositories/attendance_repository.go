package repositories

import (
	"context"
	"database/sql"

	"github.com/ssclub/club-system/models"
)

type AttendanceRepository interface {
	// Upsert создаёт строку посещения либо обновляет флаг клубного членства,
	// если строка уже существует (ранее созданное неофициальное посещение).
	Upsert(ctx context.Context, exec SQLExecutor, attendance *models.TournamentAttendance) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.TournamentAttendance, error)
	ListAll(ctx context.Context) ([]models.TournamentAttendance, error)
}

type postgresAttendanceRepository struct {
	db *sql.DB
}

func NewPostgresAttendanceRepository(db *sql.DB) AttendanceRepository {
	return &postgresAttendanceRepository{db: db}
}

func (r *postgresAttendanceRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAttendanceRepository) Upsert(ctx context.Context, exec SQLExecutor, a *models.TournamentAttendance) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_attendance (tournament_id, player_id, is_club_member)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, player_id) DO UPDATE SET is_club_member = EXCLUDED.is_club_member
		RETURNING id`

	return executor.QueryRowContext(ctx, query, a.TournamentID, a.PlayerID, a.IsClubMember).Scan(&a.ID)
}

func (r *postgresAttendanceRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.TournamentAttendance, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ta.id, ta.tournament_id, ta.player_id, ta.is_club_member, p.name
		FROM tournament_attendance ta
		JOIN players p ON p.id = ta.player_id
		WHERE ta.tournament_id = $1
		ORDER BY ta.id ASC`

	return r.listAttendance(ctx, executor, query, tournamentID)
}

func (r *postgresAttendanceRepository) ListAll(ctx context.Context) ([]models.TournamentAttendance, error) {
	query := `
		SELECT ta.id, ta.tournament_id, ta.player_id, ta.is_club_member, p.name
		FROM tournament_attendance ta
		JOIN players p ON p.id = ta.player_id
		ORDER BY ta.id ASC`

	return r.listAttendance(ctx, r.db, query)
}

func (r *postgresAttendanceRepository) listAttendance(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]models.TournamentAttendance, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendance := make([]models.TournamentAttendance, 0)
	for rows.Next() {
		var a models.TournamentAttendance
		if scanErr := rows.Scan(&a.ID, &a.TournamentID, &a.PlayerID, &a.IsClubMember, &a.PlayerName); scanErr != nil {
			return nil, scanErr
		}
		attendance = append(attendance, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return attendance, nil
}
