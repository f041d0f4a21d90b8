package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ssclub/club-system/models"
)

type PaymentFilter struct {
	PlayerName *string
	Limit      int
	Offset     int
}

type PaymentRepository interface {
	// Create добавляет строку журнала платежей. Журнал только растёт:
	// методов обновления и удаления нет намеренно.
	Create(ctx context.Context, exec SQLExecutor, payment *models.PaymentTransaction) error
	List(ctx context.Context, filter PaymentFilter) ([]models.PaymentTransaction, error)
	Count(ctx context.Context, playerName *string) (int, error)
}

type postgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) PaymentRepository {
	return &postgresPaymentRepository{db: db}
}

func (r *postgresPaymentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPaymentRepository) Create(ctx context.Context, exec SQLExecutor, p *models.PaymentTransaction) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO payment_transactions (player_id, amount, payment_date, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query, p.PlayerID, p.Amount, p.PaymentDate, p.Notes).Scan(&p.ID, &p.CreatedAt)
}

func (r *postgresPaymentRepository) List(ctx context.Context, filter PaymentFilter) ([]models.PaymentTransaction, error) {
	query := `
		SELECT pt.id, pt.player_id, p.name, pt.amount, pt.payment_date, pt.notes, pt.created_at
		FROM payment_transactions pt
		JOIN players p ON p.id = pt.player_id
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.PlayerName != nil {
		query += fmt.Sprintf(" AND p.name = $%d", argID)
		args = append(args, *filter.PlayerName)
		argID++
	}

	query += " ORDER BY pt.payment_date DESC, pt.id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.PaymentTransaction, 0)
	for rows.Next() {
		var p models.PaymentTransaction
		if scanErr := rows.Scan(&p.ID, &p.PlayerID, &p.PlayerName, &p.Amount, &p.PaymentDate, &p.Notes, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		payments = append(payments, p)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *postgresPaymentRepository) Count(ctx context.Context, playerName *string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM payment_transactions pt
		JOIN players p ON p.id = pt.player_id`

	args := []interface{}{}
	if playerName != nil {
		query += " WHERE p.name = $1"
		args = append(args, *playerName)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
