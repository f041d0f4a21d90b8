package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssclub/club-system/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComputeCostBreakdown_WorkedExample(t *testing.T) {
	// 10 участников, 2 члена клуба, аренда 100, мяч 20, 3 мяча, прочее 50.
	players := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "c1", "c2"}
	breakdowns, totalVenue, totalBall, totalMisc := computeCostBreakdown(costInputs{
		VenueFee:       100,
		BallFee:        20,
		Players:        players,
		ClubMembers:    map[string]bool{"c1": true, "c2": true},
		NumBalls:       3,
		CommonMiscCost: 50,
	})

	assert.InDelta(t, 800.0, totalVenue, 1e-9)
	assert.InDelta(t, 60.0, totalBall, 1e-9)
	assert.InDelta(t, 50.0, totalMisc, 1e-9)

	for _, b := range breakdowns {
		if b.IsClubMember {
			assert.InDelta(t, 0.0, b.VenueCost, 1e-9)
			assert.InDelta(t, 11.0, b.TotalCost, 1e-9, "club member owes ball + misc share only")
		} else {
			assert.InDelta(t, 100.0, b.VenueCost, 1e-9)
			assert.InDelta(t, 111.0, b.TotalCost, 1e-9)
		}
	}
}

func TestComputeCostBreakdown_TotalsConservation(t *testing.T) {
	players := []string{"a", "b", "c", "d", "e", "f", "g"}
	breakdowns, totalVenue, totalBall, totalMisc := computeCostBreakdown(costInputs{
		VenueFee:       73.5,
		BallFee:        17.25,
		Players:        players,
		ClubMembers:    map[string]bool{"b": true, "e": true, "g": true},
		NumBalls:       5,
		CommonMiscCost: 123.45,
		SpecificCosts: []PlayerSpecificCostInput{
			{PlayerNames: []string{"a", "c"}, CostAmount: 40},
			{PlayerNames: []string{"e"}, CostAmount: 12.5},
		},
	})

	var playerSum, specificSum float64
	for _, b := range breakdowns {
		playerSum += b.TotalCost
		specificSum += b.PlayerSpecificCost
	}
	assert.InDelta(t, totalVenue+totalBall+totalMisc+specificSum, playerSum, 1e-9)
	assert.InDelta(t, 92.5, specificSum, 1e-9)
}

func TestComputeCostBreakdown_EmptyPlayers(t *testing.T) {
	breakdowns, totalVenue, totalBall, _ := computeCostBreakdown(costInputs{
		VenueFee: 100,
		BallFee:  20,
		NumBalls: 3,
	})
	assert.Empty(t, breakdowns)
	assert.InDelta(t, 0.0, totalVenue, 1e-9)
	assert.InDelta(t, 60.0, totalBall, 1e-9)
}

func fundServiceFixture(t *testing.T) (*fundService, *fakePlayerRepo, *fakeTournamentRepo, *fakeFundRepo, *fakeSettingsRepo, *fakeCostRepo, *fakeAttendanceRepo, *fakePaymentRepo) {
	t.Helper()
	playerRepo := newFakePlayerRepo()
	tournamentRepo := newFakeTournamentRepo()
	fundRepo := newFakeFundRepo()
	settingsRepo := &fakeSettingsRepo{}
	costRepo := newFakeCostRepo()
	attendanceRepo := newFakeAttendanceRepo()
	paymentRepo := newFakePaymentRepo()

	svc := NewFundService(nil, playerRepo, tournamentRepo, fundRepo, settingsRepo, costRepo, attendanceRepo, paymentRepo, discardLogger()).(*fundService)
	// Фейки не знают про транзакции, поэтому тело выполняется напрямую.
	svc.txRunner = func(ctx context.Context, fn func(tx *sql.Tx) error) error {
		return fn(nil)
	}
	return svc, playerRepo, tournamentRepo, fundRepo, settingsRepo, costRepo, attendanceRepo, paymentRepo
}

func TestCalculate_UsesDefaultAndOverrideFees(t *testing.T) {
	svc, _, tournamentRepo, _, settingsRepo, _, _, _ := fundServiceFixture(t)
	settingsRepo.settings = models.FundSettings{DefaultVenueFee: 80, DefaultBallFee: 15}

	date := models.NewDate(2026, 8, 30)
	tournamentRepo.byDate[date.String()] = &models.Tournament{ID: "t1", Date: date}

	override := 120.0
	calc, err := svc.Calculate(context.Background(), AddTournamentCostRequest{
		TournamentDate:     date,
		UseDefaultBallFee:  true,
		VenueFeePerPerson:  &override,
		TournamentPlayers:  []string{"a", "b"},
		NumBallsPurchased:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, "t1", calc.TournamentID)
	// Аренда переопределена, мячи по умолчанию.
	assert.InDelta(t, 240.0, calc.TotalVenueCost, 1e-9)
	assert.InDelta(t, 30.0, calc.TotalBallCost, 1e-9)
}

func TestCalculate_UnknownTournamentDate(t *testing.T) {
	svc, _, _, _, _, _, _, _ := fundServiceFixture(t)

	_, err := svc.Calculate(context.Background(), AddTournamentCostRequest{
		TournamentDate: models.NewDate(2026, 1, 1),
	})
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestCostDetails_ReconstructsCalculation(t *testing.T) {
	svc, playerRepo, tournamentRepo, _, settingsRepo, costRepo, attendanceRepo, _ := fundServiceFixture(t)
	settingsRepo.settings = models.FundSettings{DefaultVenueFee: 100, DefaultBallFee: 20}

	date := models.NewDate(2026, 8, 30)
	tournamentRepo.byDate[date.String()] = &models.Tournament{ID: "t1", Date: date}

	req := AddTournamentCostRequest{
		TournamentDate:     date,
		UseDefaultVenueFee: true,
		UseDefaultBallFee:  true,
		TournamentPlayers:  []string{"a", "b", "c"},
		ClubMembers:        []string{"b"},
		NumBallsPurchased:  3,
		CommonMiscCost:     30,
		PlayerSpecificCosts: []PlayerSpecificCostInput{
			{PlayerNames: []string{"c"}, CostAmount: 25},
		},
	}

	original, err := svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	// Вручную воспроизводим состояние, которое оставляет Save.
	cost := &models.TournamentCost{
		TournamentID:      "t1",
		VenueFeePerPerson: 100,
		BallFeePerBall:    20,
		NumBallsPurchased: 3,
		TotalVenueCost:    original.TotalVenueCost,
		TotalBallCost:     original.TotalBallCost,
		CommonMiscCost:    30,
	}
	require.NoError(t, costRepo.Create(context.Background(), nil, cost))

	ctx := context.Background()
	for _, name := range req.TournamentPlayers {
		player, err := playerRepo.FindOrCreateByName(ctx, nil, name)
		require.NoError(t, err)
		attendanceRepo.names[player.ID] = name
		require.NoError(t, attendanceRepo.Upsert(ctx, nil, &models.TournamentAttendance{
			TournamentID: "t1",
			PlayerID:     player.ID,
			IsClubMember: name == "b",
		}))
	}
	playerC, err := playerRepo.GetByName(ctx, nil, "c")
	require.NoError(t, err)
	require.NoError(t, costRepo.CreateSpecificCost(ctx, nil, &models.PlayerSpecificCost{
		TournamentCostID: &cost.ID,
		PlayerID:         playerC.ID,
		CostAmount:       25,
	}))

	reconstructed, err := svc.CostDetails(ctx, date)
	require.NoError(t, err)

	assert.InDelta(t, original.TotalCost, reconstructed.TotalCost, 1e-9)
	require.Len(t, reconstructed.PlayerBreakdowns, len(original.PlayerBreakdowns))
	for i, want := range original.PlayerBreakdowns {
		got := reconstructed.PlayerBreakdowns[i]
		assert.Equal(t, want.PlayerName, got.PlayerName)
		assert.InDelta(t, want.VenueCost, got.VenueCost, 1e-9)
		assert.InDelta(t, want.BallCost, got.BallCost, 1e-9)
		assert.InDelta(t, want.CommonMiscCost, got.CommonMiscCost, 1e-9)
		assert.InDelta(t, want.PlayerSpecificCost, got.PlayerSpecificCost, 1e-9)
		assert.InDelta(t, want.TotalCost, got.TotalCost, 1e-9)
	}
}

func TestSave_DeductsCostsOncePerPlayer(t *testing.T) {
	svc, playerRepo, tournamentRepo, fundRepo, settingsRepo, costRepo, attendanceRepo, _ := fundServiceFixture(t)
	settingsRepo.settings = models.FundSettings{DefaultVenueFee: 100, DefaultBallFee: 20}
	ctx := context.Background()

	date := models.NewDate(2026, 8, 30)
	tournamentRepo.byDate[date.String()] = &models.Tournament{ID: "t1", Date: date}

	calc, err := svc.Save(ctx, AddTournamentCostRequest{
		TournamentDate:     date,
		UseDefaultVenueFee: true,
		UseDefaultBallFee:  true,
		TournamentPlayers:  []string{"a", "b", "c"},
		ClubMembers:        []string{"b"},
		NumBallsPurchased:  3,
		CommonMiscCost:     30,
	})
	require.NoError(t, err)

	// Снимок создан с итогами расчёта.
	snapshot, err := costRepo.GetByTournamentID(ctx, nil, "t1")
	require.NoError(t, err)
	assert.InDelta(t, calc.TotalVenueCost, snapshot.TotalVenueCost, 1e-9)
	assert.InDelta(t, calc.TotalBallCost, snapshot.TotalBallCost, 1e-9)
	assert.InDelta(t, 30.0, snapshot.CommonMiscCost, 1e-9)

	// Игроки и фонды созданы лениво, списание ровно один раз.
	for _, breakdown := range calc.PlayerBreakdowns {
		player, err := playerRepo.GetByName(ctx, nil, breakdown.PlayerName)
		require.NoError(t, err)

		fund, err := fundRepo.GetOrCreate(ctx, nil, player.ID)
		require.NoError(t, err)
		assert.InDelta(t, -breakdown.TotalCost, fund.CurrentBalance, 1e-9)
		assert.InDelta(t, breakdown.TotalCost, fund.TotalCost, 1e-9)
	}

	// Флаг клубного членства записан в посещение.
	rows, err := attendanceRepo.ListByTournament(ctx, nil, "t1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	playerB, err := playerRepo.GetByName(ctx, nil, "b")
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, row.PlayerID == playerB.ID, row.IsClubMember)
	}
}

func TestSave_ConflictOnSecondSave(t *testing.T) {
	svc, playerRepo, tournamentRepo, fundRepo, settingsRepo, _, _, _ := fundServiceFixture(t)
	settingsRepo.settings = models.FundSettings{DefaultVenueFee: 100, DefaultBallFee: 20}
	ctx := context.Background()

	date := models.NewDate(2026, 8, 30)
	tournamentRepo.byDate[date.String()] = &models.Tournament{ID: "t1", Date: date}

	req := AddTournamentCostRequest{
		TournamentDate:     date,
		UseDefaultVenueFee: true,
		UseDefaultBallFee:  true,
		TournamentPlayers:  []string{"a", "b"},
		NumBallsPurchased:  2,
	}

	_, err := svc.Save(ctx, req)
	require.NoError(t, err)

	playerA, err := playerRepo.GetByName(ctx, nil, "a")
	require.NoError(t, err)
	fundBefore, err := fundRepo.GetOrCreate(ctx, nil, playerA.ID)
	require.NoError(t, err)

	_, err = svc.Save(ctx, req)
	require.ErrorIs(t, err, ErrCostAlreadySaved)

	// Повторное сохранение не списывает деньги второй раз.
	fundAfter, err := fundRepo.GetOrCreate(ctx, nil, playerA.ID)
	require.NoError(t, err)
	assert.InDelta(t, fundBefore.CurrentBalance, fundAfter.CurrentBalance, 1e-9)
	assert.InDelta(t, fundBefore.TotalCost, fundAfter.TotalCost, 1e-9)
}

func TestRecordPayment_Success(t *testing.T) {
	svc, playerRepo, _, fundRepo, _, _, _, paymentRepo := fundServiceFixture(t)
	ctx := context.Background()

	player, err := playerRepo.FindOrCreateByName(ctx, nil, "Anik")
	require.NoError(t, err)

	result, err := svc.RecordPayment(ctx, RecordPaymentRequest{PlayerName: "Anik", Amount: 250})
	require.NoError(t, err)
	assert.InDelta(t, 250.0, result.NewBalance, 1e-9)

	// Фонд создан лениво, зачисление применено ровно один раз.
	fund, err := fundRepo.GetOrCreate(ctx, nil, player.ID)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, fund.CurrentBalance, 1e-9)
	assert.InDelta(t, 250.0, fund.TotalPaid, 1e-9)

	// Ровно одна строка журнала, дата по умолчанию — сегодня, без времени.
	require.Len(t, paymentRepo.payments, 1)
	entry := paymentRepo.payments[0]
	assert.InDelta(t, 250.0, entry.Amount, 1e-9)
	assert.True(t, entry.PaymentDate.Equal(models.Today().Time))

	// Явная дата сохраняется как есть.
	paid := models.NewDate(2026, 1, 15)
	_, err = svc.RecordPayment(ctx, RecordPaymentRequest{PlayerName: "Anik", Amount: 10, PaymentDate: &paid})
	require.NoError(t, err)
	require.Len(t, paymentRepo.payments, 2)
	assert.True(t, paymentRepo.payments[1].PaymentDate.Equal(paid.Time))
}

func TestAddMiscCost_Validation(t *testing.T) {
	svc, _, _, _, _, _, _, _ := fundServiceFixture(t)
	ctx := context.Background()

	_, err := svc.AddMiscCost(ctx, AddPlayerMiscCostRequest{CostAmount: 10})
	require.ErrorIs(t, err, ErrEmptyPlayerList)

	_, err = svc.AddMiscCost(ctx, AddPlayerMiscCostRequest{PlayerNames: []string{"a"}, CostAmount: 0})
	require.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = svc.AddMiscCost(ctx, AddPlayerMiscCostRequest{PlayerNames: []string{"a"}, CostAmount: -5})
	require.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestAddMiscCost_PartialApplication(t *testing.T) {
	svc, playerRepo, _, fundRepo, _, _, _, _ := fundServiceFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		player, err := playerRepo.FindOrCreateByName(ctx, nil, name)
		require.NoError(t, err)
		_, err = fundRepo.GetOrCreate(ctx, nil, player.ID)
		require.NoError(t, err)
	}

	updated, err := svc.AddMiscCost(ctx, AddPlayerMiscCostRequest{
		PlayerNames: []string{"a", "ghost", "b"},
		CostAmount:  10,
	})
	require.ErrorIs(t, err, ErrPlayerNotFound)

	// Списание с "a" уже применено и не откатывается, "b" не тронут.
	require.Len(t, updated, 1)
	assert.Equal(t, "a", updated[0].PlayerName)
	assert.InDelta(t, -10.0, updated[0].NewBalance, 1e-9)

	playerA, _ := playerRepo.GetByName(ctx, nil, "a")
	fundA, _ := fundRepo.GetOrCreate(ctx, nil, playerA.ID)
	assert.InDelta(t, -10.0, fundA.CurrentBalance, 1e-9)

	playerB, _ := playerRepo.GetByName(ctx, nil, "b")
	fundB, _ := fundRepo.GetOrCreate(ctx, nil, playerB.ID)
	assert.InDelta(t, 0.0, fundB.CurrentBalance, 1e-9)
}

func TestAddMiscCost_PersistsCostRows(t *testing.T) {
	svc, playerRepo, _, fundRepo, _, costRepo, _, _ := fundServiceFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		player, err := playerRepo.FindOrCreateByName(ctx, nil, name)
		require.NoError(t, err)
		_, err = fundRepo.GetOrCreate(ctx, nil, player.ID)
		require.NoError(t, err)
	}

	description := "paddle repair"
	costDate := models.NewDate(2026, 1, 2)
	updated, err := svc.AddMiscCost(ctx, AddPlayerMiscCostRequest{
		PlayerNames:     []string{"a", "b"},
		CostAmount:      15,
		CostDescription: &description,
		CostDate:        &costDate,
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)

	// Каждому игроку — строка расхода без привязки к турниру, с датой.
	rows, err := costRepo.ListSpecificCosts(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Nil(t, row.TournamentCostID)
		assert.InDelta(t, 15.0, row.CostAmount, 1e-9)
		require.NotNil(t, row.CostName)
		assert.Equal(t, "paddle repair", *row.CostName)
		require.NotNil(t, row.CostDate)
		assert.True(t, row.CostDate.Equal(costDate.Time))
	}
}

func TestPaymentHistory_Pagination(t *testing.T) {
	svc, _, _, _, _, _, _, paymentRepo := fundServiceFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, paymentRepo.Create(ctx, nil, &models.PaymentTransaction{
			PlayerID: 1,
			Amount:   float64(i + 1),
		}))
	}
	paymentRepo.names[1] = "a"

	page, err := svc.PaymentHistory(ctx, nil, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 10)

	// Значения по умолчанию при мусорных параметрах.
	page, err = svc.PaymentHistory(ctx, nil, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 2, page.TotalPages)
}

func TestRecordPayment_RejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, _, _, _, _, _ := fundServiceFixture(t)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentRequest{PlayerName: "a", Amount: 0})
	require.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestListBalances_Filters(t *testing.T) {
	svc, _, _, fundRepo, _, _, _, _ := fundServiceFixture(t)
	ctx := context.Background()

	fundRepo.names[1] = "Anik"
	fundRepo.names[2] = "Babu"
	fundRepo.names[3] = "Chandan"
	require.NoError(t, fundRepo.Upsert(ctx, nil, &models.PlayerFund{PlayerID: 1, CurrentBalance: 50}))
	require.NoError(t, fundRepo.Upsert(ctx, nil, &models.PlayerFund{PlayerID: 2, CurrentBalance: -30}))
	require.NoError(t, fundRepo.Upsert(ctx, nil, &models.PlayerFund{PlayerID: 3, CurrentBalance: 0}))

	all, err := svc.ListBalances(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	positive, err := svc.ListBalances(ctx, "", "positive")
	require.NoError(t, err)
	require.Len(t, positive, 1)
	assert.Equal(t, "Anik", positive[0].PlayerName)

	negative, err := svc.ListBalances(ctx, "", "negative")
	require.NoError(t, err)
	require.Len(t, negative, 1)
	assert.Equal(t, "Babu", negative[0].PlayerName)

	byName, err := svc.ListBalances(ctx, "chan", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Chandan", byName[0].PlayerName)
}
