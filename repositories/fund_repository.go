package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ssclub/club-system/models"
)

var ErrFundNotFound = errors.New("player fund not found")

type FundRepository interface {
	// GetOrCreate лениво создаёт нулевую запись фонда игрока.
	// Реализовано как upsert, поэтому безопасно при конкурентных вызовах.
	GetOrCreate(ctx context.Context, exec SQLExecutor, playerID int) (*models.PlayerFund, error)
	// ApplyCost списывает сумму: current_balance -= amount, total_cost += amount.
	ApplyCost(ctx context.Context, exec SQLExecutor, playerID int, amount float64) error
	// ApplyPayment зачисляет сумму: current_balance += amount, total_paid += amount.
	ApplyPayment(ctx context.Context, exec SQLExecutor, playerID int, amount float64) error
	IncrementDaysPlayed(ctx context.Context, exec SQLExecutor, playerID int) error
	// Upsert перезаписывает запись фонда целиком (начальная загрузка данных).
	Upsert(ctx context.Context, exec SQLExecutor, fund *models.PlayerFund) error
	// ListAll возвращает фонды с именами игроков, отсортированные по имени.
	ListAll(ctx context.Context) ([]models.PlayerFund, error)
	// ListByDaysPlayed возвращает фонды по убыванию days_played.
	ListByDaysPlayed(ctx context.Context) ([]models.PlayerFund, error)
}

type postgresFundRepository struct {
	db *sql.DB
}

func NewPostgresFundRepository(db *sql.DB) FundRepository {
	return &postgresFundRepository{db: db}
}

func (r *postgresFundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresFundRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, playerID int) (*models.PlayerFund, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO player_funds (player_id, current_balance, days_played, total_paid, total_cost, last_updated)
		VALUES ($1, 0, 0, 0, 0, NOW())
		ON CONFLICT (player_id) DO UPDATE SET player_id = EXCLUDED.player_id
		RETURNING id, player_id, current_balance, days_played, total_paid, total_cost, last_updated`

	fund := &models.PlayerFund{}
	err := executor.QueryRowContext(ctx, query, playerID).Scan(
		&fund.ID,
		&fund.PlayerID,
		&fund.CurrentBalance,
		&fund.DaysPlayed,
		&fund.TotalPaid,
		&fund.TotalCost,
		&fund.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return fund, nil
}

func (r *postgresFundRepository) ApplyCost(ctx context.Context, exec SQLExecutor, playerID int, amount float64) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE player_funds SET
			current_balance = current_balance - $2,
			total_cost = total_cost + $2,
			last_updated = NOW()
		WHERE player_id = $1`

	result, err := executor.ExecContext(ctx, query, playerID, amount)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFundNotFound)
}

func (r *postgresFundRepository) ApplyPayment(ctx context.Context, exec SQLExecutor, playerID int, amount float64) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE player_funds SET
			current_balance = current_balance + $2,
			total_paid = total_paid + $2,
			last_updated = NOW()
		WHERE player_id = $1`

	result, err := executor.ExecContext(ctx, query, playerID, amount)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFundNotFound)
}

func (r *postgresFundRepository) IncrementDaysPlayed(ctx context.Context, exec SQLExecutor, playerID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE player_funds SET
			days_played = days_played + 1,
			last_updated = NOW()
		WHERE player_id = $1`

	result, err := executor.ExecContext(ctx, query, playerID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFundNotFound)
}

func (r *postgresFundRepository) Upsert(ctx context.Context, exec SQLExecutor, fund *models.PlayerFund) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO player_funds (player_id, current_balance, days_played, total_paid, total_cost, last_updated)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (player_id) DO UPDATE SET
			current_balance = EXCLUDED.current_balance,
			days_played = EXCLUDED.days_played,
			total_paid = EXCLUDED.total_paid,
			total_cost = EXCLUDED.total_cost,
			last_updated = NOW()
		RETURNING id, last_updated`

	return executor.QueryRowContext(ctx, query,
		fund.PlayerID,
		fund.CurrentBalance,
		fund.DaysPlayed,
		fund.TotalPaid,
		fund.TotalCost,
	).Scan(&fund.ID, &fund.LastUpdated)
}

func (r *postgresFundRepository) ListAll(ctx context.Context) ([]models.PlayerFund, error) {
	query := `
		SELECT pf.id, pf.player_id, p.name, pf.current_balance, pf.days_played, pf.total_paid, pf.total_cost, pf.last_updated
		FROM player_funds pf
		JOIN players p ON p.id = pf.player_id
		ORDER BY p.name ASC`

	return r.listFunds(ctx, query)
}

func (r *postgresFundRepository) ListByDaysPlayed(ctx context.Context) ([]models.PlayerFund, error) {
	query := `
		SELECT pf.id, pf.player_id, p.name, pf.current_balance, pf.days_played, pf.total_paid, pf.total_cost, pf.last_updated
		FROM player_funds pf
		JOIN players p ON p.id = pf.player_id
		ORDER BY pf.days_played DESC, p.name ASC`

	return r.listFunds(ctx, query)
}

func (r *postgresFundRepository) listFunds(ctx context.Context, query string) ([]models.PlayerFund, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	funds := make([]models.PlayerFund, 0)
	for rows.Next() {
		var fund models.PlayerFund
		if scanErr := rows.Scan(
			&fund.ID,
			&fund.PlayerID,
			&fund.PlayerName,
			&fund.CurrentBalance,
			&fund.DaysPlayed,
			&fund.TotalPaid,
			&fund.TotalCost,
			&fund.LastUpdated,
		); scanErr != nil {
			return nil, scanErr
		}
		funds = append(funds, fund)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return funds, nil
}
