package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ssclub/club-system/models"
	"github.com/ssclub/club-system/repositories"
)

type FundSettingsInput struct {
	DefaultVenueFee    float64      `json:"default_venue_fee"`
	DefaultBallFee     float64      `json:"default_ball_fee"`
	NextTournamentDate *models.Date `json:"next_tournament_date"`
}

type SeedPlayerData struct {
	PlayerName     string  `json:"player_name"`
	CurrentBalance float64 `json:"current_balance"`
	DaysPlayed     int     `json:"days_played"`
	TotalPaid      float64 `json:"total_paid"`
	TotalCost      float64 `json:"total_cost"`
}

type SeedInitialDataRequest struct {
	Players []SeedPlayerData `json:"players"`
}

type PlayerSpecificCostInput struct {
	PlayerNames []string `json:"player_names"`
	CostAmount  float64  `json:"cost_amount"`
	CostName    *string  `json:"cost_name"`
}

type AddTournamentCostRequest struct {
	TournamentDate      models.Date               `json:"tournament_date"`
	UseDefaultVenueFee  bool                      `json:"use_default_venue_fee"`
	UseDefaultBallFee   bool                      `json:"use_default_ball_fee"`
	VenueFeePerPerson   *float64                  `json:"venue_fee_per_person"`
	BallFeePerBall      *float64                  `json:"ball_fee_per_ball"`
	TournamentPlayers   []string                  `json:"tournament_players"`
	ClubMembers         []string                  `json:"club_members"`
	NumBallsPurchased   int                       `json:"num_balls_purchased"`
	CommonMiscCost      float64                   `json:"common_misc_cost"`
	CommonMiscName      *string                   `json:"common_misc_name"`
	PlayerSpecificCosts []PlayerSpecificCostInput `json:"player_specific_costs"`
}

type PlayerCostBreakdown struct {
	PlayerName         string  `json:"player_name"`
	VenueCost          float64 `json:"venue_cost"`
	BallCost           float64 `json:"ball_cost"`
	CommonMiscCost     float64 `json:"common_misc_cost"`
	PlayerSpecificCost float64 `json:"player_specific_cost"`
	TotalCost          float64 `json:"total_cost"`
	IsClubMember       bool    `json:"is_club_member"`
}

type TournamentCostCalculation struct {
	TournamentID     string                `json:"tournament_id"`
	TournamentDate   models.Date           `json:"tournament_date"`
	TotalVenueCost   float64               `json:"total_venue_cost"`
	TotalBallCost    float64               `json:"total_ball_cost"`
	TotalMiscCost    float64               `json:"total_misc_cost"`
	TotalCost        float64               `json:"total_cost"`
	PlayerBreakdowns []PlayerCostBreakdown `json:"player_breakdowns"`
}

type RecordPaymentRequest struct {
	PlayerName  string       `json:"player_name"`
	Amount      float64      `json:"amount"`
	PaymentDate *models.Date `json:"payment_date"`
	Notes       *string      `json:"notes"`
}

type PaymentResult struct {
	PlayerName string  `json:"player_name"`
	Amount     float64 `json:"amount"`
	NewBalance float64 `json:"new_balance"`
}

type PaymentHistoryPage struct {
	Items      []models.PaymentTransaction `json:"items"`
	Total      int                         `json:"total"`
	Page       int                         `json:"page"`
	PageSize   int                         `json:"page_size"`
	TotalPages int                         `json:"total_pages"`
}

type AddPlayerMiscCostRequest struct {
	PlayerNames     []string     `json:"player_names"`
	CostAmount      float64      `json:"cost_amount"`
	CostDescription *string      `json:"cost_description"`
	CostDate        *models.Date `json:"cost_date"`
}

type MiscCostBalance struct {
	PlayerName string  `json:"player_name"`
	NewBalance float64 `json:"new_balance"`
	CostAdded  float64 `json:"cost_added"`
}

type FundService interface {
	GetSettings(ctx context.Context) (*models.FundSettings, error)
	UpdateSettings(ctx context.Context, input FundSettingsInput) (*models.FundSettings, error)
	SeedInitialData(ctx context.Context, req SeedInitialDataRequest) error
	// ListBalances возвращает фонды игроков, опционально отфильтрованные
	// по подстроке имени (без учёта регистра) и знаку баланса
	// ("positive"/"negative").
	ListBalances(ctx context.Context, search, filter string) ([]models.PlayerFund, error)
	// Calculate считает разбивку расходов, ничего не сохраняя.
	Calculate(ctx context.Context, req AddTournamentCostRequest) (*TournamentCostCalculation, error)
	// Save считает разбивку, пишет снимок расходов и списывает суммы
	// с балансов игроков. Повторное сохранение для того же турнира
	// отклоняется (уникальный снимок на турнир).
	Save(ctx context.Context, req AddTournamentCostRequest) (*TournamentCostCalculation, error)
	ListCostDates(ctx context.Context) ([]models.Date, error)
	// CostDetails восстанавливает разбивку из снимка, строк посещения
	// и индивидуальных расходов, не читая исходный запрос.
	CostDetails(ctx context.Context, date models.Date) (*TournamentCostCalculation, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error)
	PaymentHistory(ctx context.Context, playerName *string, page, pageSize int) (*PaymentHistoryPage, error)
	// AddMiscCost применяет разовый расход к каждому игроку из списка.
	// Намеренно без общей транзакции: ошибка на N-м игроке не откатывает
	// списания, уже применённые к предыдущим.
	AddMiscCost(ctx context.Context, req AddPlayerMiscCostRequest) ([]MiscCostBalance, error)
}

type fundService struct {
	db             *sql.DB
	playerRepo     repositories.PlayerRepository
	tournamentRepo repositories.TournamentRepository
	fundRepo       repositories.FundRepository
	settingsRepo   repositories.FundSettingsRepository
	costRepo       repositories.TournamentCostRepository
	attendanceRepo repositories.AttendanceRepository
	paymentRepo    repositories.PaymentRepository
	logger         *slog.Logger

	// txRunner подменяет исполнение транзакций в тестах; nil означает
	// обычный BeginTx/Commit поверх db.
	txRunner func(ctx context.Context, fn func(tx *sql.Tx) error) error
}

func NewFundService(
	db *sql.DB,
	playerRepo repositories.PlayerRepository,
	tournamentRepo repositories.TournamentRepository,
	fundRepo repositories.FundRepository,
	settingsRepo repositories.FundSettingsRepository,
	costRepo repositories.TournamentCostRepository,
	attendanceRepo repositories.AttendanceRepository,
	paymentRepo repositories.PaymentRepository,
	logger *slog.Logger,
) FundService {
	return &fundService{
		db:             db,
		playerRepo:     playerRepo,
		tournamentRepo: tournamentRepo,
		fundRepo:       fundRepo,
		settingsRepo:   settingsRepo,
		costRepo:       costRepo,
		attendanceRepo: attendanceRepo,
		paymentRepo:    paymentRepo,
		logger:         logger,
	}
}

// costInputs — разрешённые параметры расчёта: ставки уже выбраны
// (настройки по умолчанию либо переопределения из запроса).
type costInputs struct {
	VenueFee       float64
	BallFee        float64
	Players        []string
	ClubMembers    map[string]bool
	NumBalls       int
	CommonMiscCost float64
	SpecificCosts  []PlayerSpecificCostInput
}

// computeCostBreakdown — чистая функция расчёта. Суммы не округляются:
// округление для отображения — забота клиента.
func computeCostBreakdown(in costInputs) ([]PlayerCostBreakdown, float64, float64, float64) {
	numPlayers := len(in.Players)
	numClubMembers := 0
	for _, name := range in.Players {
		if in.ClubMembers[name] {
			numClubMembers++
		}
	}

	totalVenueCost := float64(numPlayers-numClubMembers) * in.VenueFee
	totalBallCost := float64(in.NumBalls) * in.BallFee

	var ballCostPerPlayer, miscCostPerPlayer float64
	if numPlayers > 0 {
		ballCostPerPlayer = totalBallCost / float64(numPlayers)
		miscCostPerPlayer = in.CommonMiscCost / float64(numPlayers)
	}

	breakdowns := make([]PlayerCostBreakdown, 0, numPlayers)
	for _, name := range in.Players {
		isClubMember := in.ClubMembers[name]

		venueCost := in.VenueFee
		if isClubMember {
			venueCost = 0
		}

		var specificCost float64
		for _, entry := range in.SpecificCosts {
			for _, entryName := range entry.PlayerNames {
				if entryName == name {
					specificCost += entry.CostAmount
					break
				}
			}
		}

		breakdowns = append(breakdowns, PlayerCostBreakdown{
			PlayerName:         name,
			VenueCost:          venueCost,
			BallCost:           ballCostPerPlayer,
			CommonMiscCost:     miscCostPerPlayer,
			PlayerSpecificCost: specificCost,
			TotalCost:          venueCost + ballCostPerPlayer + miscCostPerPlayer + specificCost,
			IsClubMember:       isClubMember,
		})
	}

	return breakdowns, totalVenueCost, totalBallCost, in.CommonMiscCost
}

func (s *fundService) GetSettings(ctx context.Context) (*models.FundSettings, error) {
	return s.settingsRepo.GetOrCreate(ctx, nil)
}

func (s *fundService) UpdateSettings(ctx context.Context, input FundSettingsInput) (*models.FundSettings, error) {
	settings := &models.FundSettings{
		DefaultVenueFee:    input.DefaultVenueFee,
		DefaultBallFee:     input.DefaultBallFee,
		NextTournamentDate: input.NextTournamentDate,
	}
	if err := s.settingsRepo.Update(ctx, nil, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *fundService) SeedInitialData(ctx context.Context, req SeedInitialDataRequest) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, data := range req.Players {
			player, err := s.playerRepo.GetByName(ctx, tx, data.PlayerName)
			if err != nil {
				if errors.Is(err, repositories.ErrPlayerNotFound) {
					return fmt.Errorf("%w: %q", ErrPlayerNotFound, data.PlayerName)
				}
				return err
			}

			fund := &models.PlayerFund{
				PlayerID:       player.ID,
				CurrentBalance: data.CurrentBalance,
				DaysPlayed:     data.DaysPlayed,
				TotalPaid:      data.TotalPaid,
				TotalCost:      data.TotalCost,
			}
			if err := s.fundRepo.Upsert(ctx, tx, fund); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *fundService) ListBalances(ctx context.Context, search, filter string) ([]models.PlayerFund, error) {
	funds, err := s.fundRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.PlayerFund, 0, len(funds))
	for _, fund := range funds {
		if search != "" && !strings.Contains(strings.ToLower(fund.PlayerName), strings.ToLower(search)) {
			continue
		}
		if filter == "positive" && fund.CurrentBalance <= 0 {
			continue
		}
		if filter == "negative" && fund.CurrentBalance >= 0 {
			continue
		}
		filtered = append(filtered, fund)
	}
	return filtered, nil
}

// resolveFees выбирает ставки аренды и мячей: переопределение из запроса
// либо значение по умолчанию из настроек фонда.
func (s *fundService) resolveFees(ctx context.Context, exec repositories.SQLExecutor, req AddTournamentCostRequest) (venueFee, ballFee float64, err error) {
	settings, err := s.settingsRepo.GetOrCreate(ctx, exec)
	if err != nil {
		return 0, 0, err
	}

	venueFee = settings.DefaultVenueFee
	if !req.UseDefaultVenueFee && req.VenueFeePerPerson != nil {
		venueFee = *req.VenueFeePerPerson
	}
	ballFee = settings.DefaultBallFee
	if !req.UseDefaultBallFee && req.BallFeePerBall != nil {
		ballFee = *req.BallFeePerBall
	}
	return venueFee, ballFee, nil
}

func (s *fundService) calculate(ctx context.Context, exec repositories.SQLExecutor, req AddTournamentCostRequest) (*TournamentCostCalculation, error) {
	tournament, err := s.tournamentRepo.GetByDate(ctx, exec, req.TournamentDate)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w for date %s", ErrTournamentNotFound, req.TournamentDate)
		}
		return nil, err
	}

	venueFee, ballFee, err := s.resolveFees(ctx, exec, req)
	if err != nil {
		return nil, err
	}

	clubMembers := make(map[string]bool, len(req.ClubMembers))
	for _, name := range req.ClubMembers {
		clubMembers[name] = true
	}

	breakdowns, totalVenue, totalBall, totalMisc := computeCostBreakdown(costInputs{
		VenueFee:       venueFee,
		BallFee:        ballFee,
		Players:        req.TournamentPlayers,
		ClubMembers:    clubMembers,
		NumBalls:       req.NumBallsPurchased,
		CommonMiscCost: req.CommonMiscCost,
		SpecificCosts:  req.PlayerSpecificCosts,
	})

	return &TournamentCostCalculation{
		TournamentID:     tournament.ID,
		TournamentDate:   tournament.Date,
		TotalVenueCost:   totalVenue,
		TotalBallCost:    totalBall,
		TotalMiscCost:    totalMisc,
		TotalCost:        totalVenue + totalBall + totalMisc,
		PlayerBreakdowns: breakdowns,
	}, nil
}

func (s *fundService) Calculate(ctx context.Context, req AddTournamentCostRequest) (*TournamentCostCalculation, error) {
	return s.calculate(ctx, nil, req)
}

func (s *fundService) Save(ctx context.Context, req AddTournamentCostRequest) (*TournamentCostCalculation, error) {
	var calculation *TournamentCostCalculation

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		calculation, err = s.calculate(ctx, tx, req)
		if err != nil {
			return err
		}

		venueFee, ballFee, err := s.resolveFees(ctx, tx, req)
		if err != nil {
			return err
		}

		cost := &models.TournamentCost{
			TournamentID:      calculation.TournamentID,
			VenueFeePerPerson: venueFee,
			BallFeePerBall:    ballFee,
			NumBallsPurchased: req.NumBallsPurchased,
			TotalVenueCost:    calculation.TotalVenueCost,
			TotalBallCost:     calculation.TotalBallCost,
			CommonMiscCost:    req.CommonMiscCost,
			CommonMiscName:    req.CommonMiscName,
		}
		if err := s.costRepo.Create(ctx, tx, cost); err != nil {
			if errors.Is(err, repositories.ErrCostConflict) {
				return fmt.Errorf("%w: %s", ErrCostAlreadySaved, calculation.TournamentID)
			}
			return err
		}

		// Одна строка на пару (именованный расход, игрок).
		for _, entry := range req.PlayerSpecificCosts {
			for _, name := range entry.PlayerNames {
				player, err := s.playerRepo.FindOrCreateByName(ctx, tx, name)
				if err != nil {
					return err
				}
				specific := &models.PlayerSpecificCost{
					TournamentCostID: &cost.ID,
					PlayerID:         player.ID,
					CostAmount:       entry.CostAmount,
					CostName:         entry.CostName,
				}
				if err := s.costRepo.CreateSpecificCost(ctx, tx, specific); err != nil {
					return err
				}
			}
		}

		clubMembers := make(map[string]bool, len(req.ClubMembers))
		for _, name := range req.ClubMembers {
			clubMembers[name] = true
		}

		for _, name := range req.TournamentPlayers {
			player, err := s.playerRepo.FindOrCreateByName(ctx, tx, name)
			if err != nil {
				return err
			}
			attendance := &models.TournamentAttendance{
				TournamentID: calculation.TournamentID,
				PlayerID:     player.ID,
				IsClubMember: clubMembers[name],
			}
			if err := s.attendanceRepo.Upsert(ctx, tx, attendance); err != nil {
				return err
			}
		}

		for _, breakdown := range calculation.PlayerBreakdowns {
			player, err := s.playerRepo.FindOrCreateByName(ctx, tx, breakdown.PlayerName)
			if err != nil {
				return err
			}
			if _, err := s.fundRepo.GetOrCreate(ctx, tx, player.ID); err != nil {
				return err
			}
			if err := s.fundRepo.ApplyCost(ctx, tx, player.ID, breakdown.TotalCost); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return calculation, nil
}

func (s *fundService) ListCostDates(ctx context.Context) ([]models.Date, error) {
	return s.costRepo.ListDates(ctx)
}

func (s *fundService) CostDetails(ctx context.Context, date models.Date) (*TournamentCostCalculation, error) {
	tournament, err := s.tournamentRepo.GetByDate(ctx, nil, date)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("%w for date %s", ErrTournamentNotFound, date)
		}
		return nil, err
	}

	cost, err := s.costRepo.GetByTournamentID(ctx, nil, tournament.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrCostNotFound) {
			return nil, ErrCostRecordNotFound
		}
		return nil, err
	}

	attendance, err := s.attendanceRepo.ListByTournament(ctx, nil, tournament.ID)
	if err != nil {
		return nil, err
	}

	specificCosts, err := s.costRepo.ListSpecificCosts(ctx, nil, cost.ID)
	if err != nil {
		return nil, err
	}

	// Восстановление из снимка: доли пересчитываются из итогов снимка
	// и текущего списка посещений, индивидуальные расходы — из строк БД.
	numPlayers := len(attendance)
	var ballCostPerPlayer, miscCostPerPlayer float64
	if numPlayers > 0 {
		ballCostPerPlayer = cost.TotalBallCost / float64(numPlayers)
		miscCostPerPlayer = cost.CommonMiscCost / float64(numPlayers)
	}

	breakdowns := make([]PlayerCostBreakdown, 0, numPlayers)
	for _, a := range attendance {
		venueCost := cost.VenueFeePerPerson
		if a.IsClubMember {
			venueCost = 0
		}

		var specificTotal float64
		for _, sc := range specificCosts {
			if sc.PlayerID == a.PlayerID {
				specificTotal += sc.CostAmount
			}
		}

		breakdowns = append(breakdowns, PlayerCostBreakdown{
			PlayerName:         a.PlayerName,
			VenueCost:          venueCost,
			BallCost:           ballCostPerPlayer,
			CommonMiscCost:     miscCostPerPlayer,
			PlayerSpecificCost: specificTotal,
			TotalCost:          venueCost + ballCostPerPlayer + miscCostPerPlayer + specificTotal,
			IsClubMember:       a.IsClubMember,
		})
	}

	return &TournamentCostCalculation{
		TournamentID:     tournament.ID,
		TournamentDate:   tournament.Date,
		TotalVenueCost:   cost.TotalVenueCost,
		TotalBallCost:    cost.TotalBallCost,
		TotalMiscCost:    cost.CommonMiscCost,
		TotalCost:        cost.TotalVenueCost + cost.TotalBallCost + cost.CommonMiscCost,
		PlayerBreakdowns: breakdowns,
	}, nil
}

func (s *fundService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	if req.Amount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	player, err := s.playerRepo.GetByName(ctx, nil, req.PlayerName)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, req.PlayerName)
		}
		return nil, err
	}

	var newBalance float64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		fund, err := s.fundRepo.GetOrCreate(ctx, tx, player.ID)
		if err != nil {
			return err
		}
		if err := s.fundRepo.ApplyPayment(ctx, tx, player.ID, req.Amount); err != nil {
			return err
		}
		newBalance = fund.CurrentBalance + req.Amount

		// Дата платежа хранится с точностью до дня.
		paymentDate := models.Today()
		if req.PaymentDate != nil {
			paymentDate = *req.PaymentDate
		}
		transaction := &models.PaymentTransaction{
			PlayerID:    player.ID,
			Amount:      req.Amount,
			PaymentDate: paymentDate.Time,
			Notes:       req.Notes,
		}
		return s.paymentRepo.Create(ctx, tx, transaction)
	})
	if err != nil {
		return nil, err
	}

	return &PaymentResult{
		PlayerName: req.PlayerName,
		Amount:     req.Amount,
		NewBalance: newBalance,
	}, nil
}

func (s *fundService) PaymentHistory(ctx context.Context, playerName *string, page, pageSize int) (*PaymentHistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	total, err := s.paymentRepo.Count(ctx, playerName)
	if err != nil {
		return nil, err
	}

	items, err := s.paymentRepo.List(ctx, repositories.PaymentFilter{
		PlayerName: playerName,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	return &PaymentHistoryPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (s *fundService) AddMiscCost(ctx context.Context, req AddPlayerMiscCostRequest) ([]MiscCostBalance, error) {
	if len(req.PlayerNames) == 0 {
		return nil, ErrEmptyPlayerList
	}
	if req.CostAmount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	costDate := models.Today()
	if req.CostDate != nil {
		costDate = *req.CostDate
	}

	// Без общей транзакции: имя, не найденное в середине списка,
	// прерывает пакет, но уже применённые списания остаются.
	updated := make([]MiscCostBalance, 0, len(req.PlayerNames))
	for _, name := range req.PlayerNames {
		player, err := s.playerRepo.GetByName(ctx, nil, name)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return updated, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
			}
			return updated, err
		}

		fund, err := s.fundRepo.GetOrCreate(ctx, nil, player.ID)
		if err != nil {
			return updated, err
		}
		if err := s.fundRepo.ApplyCost(ctx, nil, player.ID, req.CostAmount); err != nil {
			return updated, err
		}

		// Строка расхода вне турнира: tournament_cost_id остаётся NULL.
		specific := &models.PlayerSpecificCost{
			PlayerID:   player.ID,
			CostAmount: req.CostAmount,
			CostName:   req.CostDescription,
			CostDate:   &costDate.Time,
		}
		if err := s.costRepo.CreateSpecificCost(ctx, nil, specific); err != nil {
			return updated, err
		}

		updated = append(updated, MiscCostBalance{
			PlayerName: name,
			NewBalance: fund.CurrentBalance - req.CostAmount,
			CostAdded:  req.CostAmount,
		})
	}

	return updated, nil
}

func (s *fundService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.txRunner != nil {
		return s.txRunner(ctx, fn)
	}

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
