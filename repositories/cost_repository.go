package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/ssclub/club-system/models"
)

var (
	ErrCostNotFound = errors.New("tournament cost record not found")
	// ErrCostConflict возвращается при попытке сохранить второй снимок
	// расходов для того же турнира (уникальный индекс по tournament_id).
	ErrCostConflict = errors.New("tournament cost record already exists")
)

type TournamentCostRepository interface {
	Create(ctx context.Context, exec SQLExecutor, cost *models.TournamentCost) error
	GetByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID string) (*models.TournamentCost, error)
	// ListDates возвращает даты турниров, для которых есть снимок расходов.
	ListDates(ctx context.Context) ([]models.Date, error)
	CreateSpecificCost(ctx context.Context, exec SQLExecutor, cost *models.PlayerSpecificCost) error
	ListSpecificCosts(ctx context.Context, exec SQLExecutor, tournamentCostID int) ([]models.PlayerSpecificCost, error)
}

type postgresTournamentCostRepository struct {
	db *sql.DB
}

func NewPostgresTournamentCostRepository(db *sql.DB) TournamentCostRepository {
	return &postgresTournamentCostRepository{db: db}
}

func (r *postgresTournamentCostRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentCostRepository) Create(ctx context.Context, exec SQLExecutor, cost *models.TournamentCost) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_costs (
			tournament_id, venue_fee_per_person, ball_fee_per_ball, num_balls_purchased,
			total_venue_cost, total_ball_cost, common_misc_cost, common_misc_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		cost.TournamentID,
		cost.VenueFeePerPerson,
		cost.BallFeePerBall,
		cost.NumBallsPurchased,
		cost.TotalVenueCost,
		cost.TotalBallCost,
		cost.CommonMiscCost,
		cost.CommonMiscName,
	).Scan(&cost.ID, &cost.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "tournament_costs_tournament_id_key" {
				return ErrCostConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresTournamentCostRepository) GetByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID string) (*models.TournamentCost, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, venue_fee_per_person, ball_fee_per_ball, num_balls_purchased,
			total_venue_cost, total_ball_cost, common_misc_cost, common_misc_name, created_at
		FROM tournament_costs
		WHERE tournament_id = $1`

	cost := &models.TournamentCost{}
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(
		&cost.ID,
		&cost.TournamentID,
		&cost.VenueFeePerPerson,
		&cost.BallFeePerBall,
		&cost.NumBallsPurchased,
		&cost.TotalVenueCost,
		&cost.TotalBallCost,
		&cost.CommonMiscCost,
		&cost.CommonMiscName,
		&cost.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCostNotFound
		}
		return nil, err
	}
	return cost, nil
}

func (r *postgresTournamentCostRepository) ListDates(ctx context.Context) ([]models.Date, error) {
	query := `
		SELECT t.date
		FROM tournaments t
		JOIN tournament_costs tc ON tc.tournament_id = t.id
		ORDER BY t.date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make([]models.Date, 0)
	for rows.Next() {
		var d models.Date
		if scanErr := rows.Scan(&d); scanErr != nil {
			return nil, scanErr
		}
		dates = append(dates, d)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

func (r *postgresTournamentCostRepository) CreateSpecificCost(ctx context.Context, exec SQLExecutor, cost *models.PlayerSpecificCost) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO player_specific_costs (tournament_cost_id, player_id, cost_amount, cost_name, cost_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		cost.TournamentCostID,
		cost.PlayerID,
		cost.CostAmount,
		cost.CostName,
		cost.CostDate,
	).Scan(&cost.ID)
}

func (r *postgresTournamentCostRepository) ListSpecificCosts(ctx context.Context, exec SQLExecutor, tournamentCostID int) ([]models.PlayerSpecificCost, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_cost_id, player_id, cost_amount, cost_name, cost_date
		FROM player_specific_costs
		WHERE tournament_cost_id = $1
		ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentCostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	costs := make([]models.PlayerSpecificCost, 0)
	for rows.Next() {
		var cost models.PlayerSpecificCost
		if scanErr := rows.Scan(
			&cost.ID,
			&cost.TournamentCostID,
			&cost.PlayerID,
			&cost.CostAmount,
			&cost.CostName,
			&cost.CostDate,
		); scanErr != nil {
			return nil, scanErr
		}
		costs = append(costs, cost)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return costs, nil
}
