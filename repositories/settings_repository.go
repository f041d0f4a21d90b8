package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ssclub/club-system/models"
)

type FundSettingsRepository interface {
	// GetOrCreate возвращает единственную строку настроек,
	// создавая нулевую при первом обращении.
	GetOrCreate(ctx context.Context, exec SQLExecutor) (*models.FundSettings, error)
	Update(ctx context.Context, exec SQLExecutor, settings *models.FundSettings) error
}

type postgresFundSettingsRepository struct {
	db *sql.DB
}

func NewPostgresFundSettingsRepository(db *sql.DB) FundSettingsRepository {
	return &postgresFundSettingsRepository{db: db}
}

func (r *postgresFundSettingsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresFundSettingsRepository) GetOrCreate(ctx context.Context, exec SQLExecutor) (*models.FundSettings, error) {
	executor := r.getExecutor(exec)
	selectQuery := `
		SELECT id, default_venue_fee, default_ball_fee, next_tournament_date, updated_at
		FROM fund_settings
		ORDER BY id ASC
		LIMIT 1`

	settings, err := r.scanSettings(executor.QueryRowContext(ctx, selectQuery))
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	insertQuery := `
		INSERT INTO fund_settings (default_venue_fee, default_ball_fee, updated_at)
		VALUES (0, 0, NOW())
		RETURNING id, default_venue_fee, default_ball_fee, next_tournament_date, updated_at`

	return r.scanSettings(executor.QueryRowContext(ctx, insertQuery))
}

func (r *postgresFundSettingsRepository) Update(ctx context.Context, exec SQLExecutor, settings *models.FundSettings) error {
	executor := r.getExecutor(exec)

	current, err := r.GetOrCreate(ctx, executor)
	if err != nil {
		return err
	}

	query := `
		UPDATE fund_settings SET
			default_venue_fee = $1,
			default_ball_fee = $2,
			next_tournament_date = $3,
			updated_at = NOW()
		WHERE id = $4
		RETURNING id, default_venue_fee, default_ball_fee, next_tournament_date, updated_at`

	updated, err := r.scanSettings(executor.QueryRowContext(ctx, query,
		settings.DefaultVenueFee,
		settings.DefaultBallFee,
		settings.NextTournamentDate,
		current.ID,
	))
	if err != nil {
		return err
	}
	*settings = *updated
	return nil
}

func (r *postgresFundSettingsRepository) scanSettings(row *sql.Row) (*models.FundSettings, error) {
	settings := &models.FundSettings{}
	var nextDate sql.NullTime
	err := row.Scan(
		&settings.ID,
		&settings.DefaultVenueFee,
		&settings.DefaultBallFee,
		&nextDate,
		&settings.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if nextDate.Valid {
		d := models.NewDate(nextDate.Time.Year(), nextDate.Time.Month(), nextDate.Time.Day())
		settings.NextTournamentDate = &d
	}
	return settings, nil
}
