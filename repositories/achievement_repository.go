package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ssclub/club-system/models"
)

var ErrAchievementNotFound = errors.New("achievement not found")

type AchievementRepository interface {
	Create(ctx context.Context, achievement *models.Achievement) error
	List(ctx context.Context, offset, limit int) ([]models.Achievement, error)
	Update(ctx context.Context, achievement *models.Achievement) error
	Delete(ctx context.Context, id int) error
}

type postgresAchievementRepository struct {
	db *sql.DB
}

func NewPostgresAchievementRepository(db *sql.DB) AchievementRepository {
	return &postgresAchievementRepository{db: db}
}

func (r *postgresAchievementRepository) Create(ctx context.Context, a *models.Achievement) error {
	urls, err := marshalImageURLs(a.ImageURLs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO achievements (title, description, date, image_urls)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query, a.Title, a.Description, a.Date, urls).Scan(&a.ID)
}

func (r *postgresAchievementRepository) List(ctx context.Context, offset, limit int) ([]models.Achievement, error) {
	query := `
		SELECT id, title, description, date, image_urls
		FROM achievements
		ORDER BY date DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	achievements := make([]models.Achievement, 0)
	for rows.Next() {
		var a models.Achievement
		var urls []byte
		if scanErr := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Date, &urls); scanErr != nil {
			return nil, scanErr
		}
		if unmarshalErr := unmarshalImageURLs(urls, &a.ImageURLs); unmarshalErr != nil {
			return nil, unmarshalErr
		}
		achievements = append(achievements, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return achievements, nil
}

func (r *postgresAchievementRepository) Update(ctx context.Context, a *models.Achievement) error {
	urls, err := marshalImageURLs(a.ImageURLs)
	if err != nil {
		return err
	}

	query := `
		UPDATE achievements SET
			title = $1,
			description = $2,
			date = $3,
			image_urls = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, a.Title, a.Description, a.Date, urls, a.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAchievementNotFound)
}

func (r *postgresAchievementRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM achievements WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAchievementNotFound)
}

func marshalImageURLs(urls []string) ([]byte, error) {
	if urls == nil {
		urls = []string{}
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image urls: %w", err)
	}
	return data, nil
}

func unmarshalImageURLs(data []byte, dst *[]string) error {
	if len(data) == 0 {
		*dst = []string{}
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal image urls: %w", err)
	}
	return nil
}
