package models

import "time"

// PlayerFund — текущий баланс игрока перед клубом. Одна запись на игрока,
// создаётся лениво при первой операции, затрагивающей баланс.
// Инвариант: CurrentBalance = TotalPaid - TotalCost (поддерживается инкрементально).
type PlayerFund struct {
	ID             int       `json:"id" db:"id"`
	PlayerID       int       `json:"player_id" db:"player_id"`
	CurrentBalance float64   `json:"current_balance" db:"current_balance"`
	DaysPlayed     int       `json:"days_played" db:"days_played"`
	TotalPaid      float64   `json:"total_paid" db:"total_paid"`
	TotalCost      float64   `json:"total_cost" db:"total_cost"`
	LastUpdated    time.Time `json:"last_updated" db:"last_updated"`

	PlayerName string `json:"player_name,omitempty" db:"-"`
}

// TournamentCost — снимок параметров расходов турнира. Одна запись на турнир,
// после создания не изменяется; детали пересчитываются из снимка.
type TournamentCost struct {
	ID                int       `json:"id" db:"id"`
	TournamentID      string    `json:"tournament_id" db:"tournament_id"`
	VenueFeePerPerson float64   `json:"venue_fee_per_person" db:"venue_fee_per_person"`
	BallFeePerBall    float64   `json:"ball_fee_per_ball" db:"ball_fee_per_ball"`
	NumBallsPurchased int       `json:"num_balls_purchased" db:"num_balls_purchased"`
	TotalVenueCost    float64   `json:"total_venue_cost" db:"total_venue_cost"`
	TotalBallCost     float64   `json:"total_ball_cost" db:"total_ball_cost"`
	CommonMiscCost    float64   `json:"common_misc_cost" db:"common_misc_cost"`
	CommonMiscName    *string   `json:"common_misc_name,omitempty" db:"common_misc_name"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// FundSettings — единственная строка с настройками фонда по умолчанию.
type FundSettings struct {
	ID                 int       `json:"id" db:"id"`
	DefaultVenueFee    float64   `json:"default_venue_fee" db:"default_venue_fee"`
	DefaultBallFee     float64   `json:"default_ball_fee" db:"default_ball_fee"`
	NextTournamentDate *Date     `json:"next_tournament_date,omitempty" db:"next_tournament_date"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// PlayerSpecificCost — именованный расход, привязанный к конкретному игроку.
// TournamentCostID может быть NULL для расходов вне турнира.
type PlayerSpecificCost struct {
	ID               int        `json:"id" db:"id"`
	TournamentCostID *int       `json:"tournament_cost_id,omitempty" db:"tournament_cost_id"`
	PlayerID         int        `json:"player_id" db:"player_id"`
	CostAmount       float64    `json:"cost_amount" db:"cost_amount"`
	CostName         *string    `json:"cost_name,omitempty" db:"cost_name"`
	CostDate         *time.Time `json:"cost_date,omitempty" db:"cost_date"`
}

// TournamentAttendance — факт участия игрока в турнире.
// Одна строка на пару (турнир, игрок); флаг клубного членства
// может корректироваться при повторном сохранении расходов.
type TournamentAttendance struct {
	ID           int    `json:"id" db:"id"`
	TournamentID string `json:"tournament_id" db:"tournament_id"`
	PlayerID     int    `json:"player_id" db:"player_id"`
	IsClubMember bool   `json:"is_club_member" db:"is_club_member"`

	PlayerName string `json:"player_name,omitempty" db:"-"`
}

// PaymentTransaction — запись журнала платежей. Только добавляется,
// никогда не изменяется и не удаляется обычными операциями.
type PaymentTransaction struct {
	ID          int       `json:"id" db:"id"`
	PlayerID    int       `json:"player_id" db:"player_id"`
	Amount      float64   `json:"amount" db:"amount"`
	PaymentDate time.Time `json:"payment_date" db:"payment_date"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	PlayerName string `json:"player_name,omitempty" db:"-"`
}
