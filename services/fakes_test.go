package services

import (
	"context"
	"sort"
	"strings"

	"github.com/ssclub/club-system/models"
	"github.com/ssclub/club-system/repositories"
)

// Фейки репозиториев для юнит-тестов сервисного слоя. Хранят всё в памяти
// и игнорируют exec: транзакционность проверяется интеграционно.

type fakePlayerRepo struct {
	nextID  int
	players map[string]*models.Player
}

func newFakePlayerRepo(names ...string) *fakePlayerRepo {
	r := &fakePlayerRepo{players: make(map[string]*models.Player)}
	for _, name := range names {
		r.nextID++
		r.players[name] = &models.Player{ID: r.nextID, Name: name}
	}
	return r
}

func (r *fakePlayerRepo) Create(ctx context.Context, player *models.Player) error {
	if _, ok := r.players[player.Name]; ok {
		return repositories.ErrPlayerNameConflict
	}
	r.nextID++
	player.ID = r.nextID
	r.players[player.Name] = &models.Player{ID: player.ID, Name: player.Name}
	return nil
}

func (r *fakePlayerRepo) GetByName(ctx context.Context, exec repositories.SQLExecutor, name string) (*models.Player, error) {
	player, ok := r.players[name]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copy := *player
	return &copy, nil
}

func (r *fakePlayerRepo) FindOrCreateByName(ctx context.Context, exec repositories.SQLExecutor, name string) (*models.Player, error) {
	if player, ok := r.players[name]; ok {
		copy := *player
		return &copy, nil
	}
	r.nextID++
	player := &models.Player{ID: r.nextID, Name: name}
	r.players[name] = player
	copy := *player
	return &copy, nil
}

func (r *fakePlayerRepo) List(ctx context.Context) ([]models.Player, error) {
	names := make([]string, 0, len(r.players))
	for name := range r.players {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]models.Player, 0, len(names))
	for _, name := range names {
		out = append(out, *r.players[name])
	}
	return out, nil
}

type fakeTournamentRepo struct {
	byDate map[string]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{byDate: make(map[string]*models.Tournament)}
	for _, t := range tournaments {
		r.byDate[t.Date.String()] = t
	}
	return r
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.byDate[t.Date.String()] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Tournament, error) {
	for _, t := range r.byDate {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) GetByDate(ctx context.Context, exec repositories.SQLExecutor, date models.Date) (*models.Tournament, error) {
	t, ok := r.byDate[date.String()]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (r *fakeTournamentRepo) ListAll(ctx context.Context) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0, len(r.byDate))
	for _, t := range r.byDate {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.byDate[t.Date.String()] = t
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id string) error {
	for date, t := range r.byDate {
		if t.ID == id {
			delete(r.byDate, date)
			return nil
		}
	}
	return repositories.ErrTournamentNotFound
}

type fakeFundRepo struct {
	funds map[int]*models.PlayerFund
	names map[int]string
}

func newFakeFundRepo() *fakeFundRepo {
	return &fakeFundRepo{funds: make(map[int]*models.PlayerFund), names: make(map[int]string)}
}

func (r *fakeFundRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, playerID int) (*models.PlayerFund, error) {
	fund, ok := r.funds[playerID]
	if !ok {
		fund = &models.PlayerFund{ID: playerID, PlayerID: playerID}
		r.funds[playerID] = fund
	}
	copy := *fund
	return &copy, nil
}

func (r *fakeFundRepo) ApplyCost(ctx context.Context, exec repositories.SQLExecutor, playerID int, amount float64) error {
	fund, ok := r.funds[playerID]
	if !ok {
		return repositories.ErrFundNotFound
	}
	fund.CurrentBalance -= amount
	fund.TotalCost += amount
	return nil
}

func (r *fakeFundRepo) ApplyPayment(ctx context.Context, exec repositories.SQLExecutor, playerID int, amount float64) error {
	fund, ok := r.funds[playerID]
	if !ok {
		return repositories.ErrFundNotFound
	}
	fund.CurrentBalance += amount
	fund.TotalPaid += amount
	return nil
}

func (r *fakeFundRepo) IncrementDaysPlayed(ctx context.Context, exec repositories.SQLExecutor, playerID int) error {
	fund, ok := r.funds[playerID]
	if !ok {
		return repositories.ErrFundNotFound
	}
	fund.DaysPlayed++
	return nil
}

func (r *fakeFundRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, fund *models.PlayerFund) error {
	copy := *fund
	r.funds[fund.PlayerID] = &copy
	return nil
}

func (r *fakeFundRepo) ListAll(ctx context.Context) ([]models.PlayerFund, error) {
	ids := make([]int, 0, len(r.funds))
	for id := range r.funds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return strings.ToLower(r.names[ids[i]]) < strings.ToLower(r.names[ids[j]])
	})
	out := make([]models.PlayerFund, 0, len(ids))
	for _, id := range ids {
		fund := *r.funds[id]
		fund.PlayerName = r.names[id]
		out = append(out, fund)
	}
	return out, nil
}

func (r *fakeFundRepo) ListByDaysPlayed(ctx context.Context) ([]models.PlayerFund, error) {
	out, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysPlayed > out[j].DaysPlayed
	})
	return out, nil
}

type fakeSettingsRepo struct {
	settings models.FundSettings
}

func (r *fakeSettingsRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor) (*models.FundSettings, error) {
	copy := r.settings
	return &copy, nil
}

func (r *fakeSettingsRepo) Update(ctx context.Context, exec repositories.SQLExecutor, settings *models.FundSettings) error {
	r.settings = *settings
	return nil
}

type fakeCostRepo struct {
	nextID        int
	byTournament  map[string]*models.TournamentCost
	specificCosts map[int][]models.PlayerSpecificCost
}

func newFakeCostRepo() *fakeCostRepo {
	return &fakeCostRepo{
		byTournament:  make(map[string]*models.TournamentCost),
		specificCosts: make(map[int][]models.PlayerSpecificCost),
	}
}

func (r *fakeCostRepo) Create(ctx context.Context, exec repositories.SQLExecutor, cost *models.TournamentCost) error {
	if _, ok := r.byTournament[cost.TournamentID]; ok {
		return repositories.ErrCostConflict
	}
	r.nextID++
	cost.ID = r.nextID
	copy := *cost
	r.byTournament[cost.TournamentID] = &copy
	return nil
}

func (r *fakeCostRepo) GetByTournamentID(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) (*models.TournamentCost, error) {
	cost, ok := r.byTournament[tournamentID]
	if !ok {
		return nil, repositories.ErrCostNotFound
	}
	copy := *cost
	return &copy, nil
}

func (r *fakeCostRepo) ListDates(ctx context.Context) ([]models.Date, error) {
	return nil, nil
}

func (r *fakeCostRepo) CreateSpecificCost(ctx context.Context, exec repositories.SQLExecutor, cost *models.PlayerSpecificCost) error {
	// Расходы вне турнира складываются под ключом 0.
	key := 0
	if cost.TournamentCostID != nil {
		key = *cost.TournamentCostID
	}
	r.specificCosts[key] = append(r.specificCosts[key], *cost)
	return nil
}

func (r *fakeCostRepo) ListSpecificCosts(ctx context.Context, exec repositories.SQLExecutor, tournamentCostID int) ([]models.PlayerSpecificCost, error) {
	return r.specificCosts[tournamentCostID], nil
}

type fakeAttendanceRepo struct {
	nextID int
	rows   []models.TournamentAttendance
	names  map[int]string
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{names: make(map[int]string)}
}

func (r *fakeAttendanceRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, attendance *models.TournamentAttendance) error {
	for i := range r.rows {
		if r.rows[i].TournamentID == attendance.TournamentID && r.rows[i].PlayerID == attendance.PlayerID {
			r.rows[i].IsClubMember = attendance.IsClubMember
			attendance.ID = r.rows[i].ID
			return nil
		}
	}
	r.nextID++
	attendance.ID = r.nextID
	r.rows = append(r.rows, *attendance)
	return nil
}

func (r *fakeAttendanceRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID string) ([]models.TournamentAttendance, error) {
	out := make([]models.TournamentAttendance, 0)
	for _, row := range r.rows {
		if row.TournamentID == tournamentID {
			row.PlayerName = r.names[row.PlayerID]
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeAttendanceRepo) ListAll(ctx context.Context) ([]models.TournamentAttendance, error) {
	out := make([]models.TournamentAttendance, len(r.rows))
	for i, row := range r.rows {
		row.PlayerName = r.names[row.PlayerID]
		out[i] = row
	}
	return out, nil
}

type fakePaymentRepo struct {
	nextID   int
	payments []models.PaymentTransaction
	names    map[int]string
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{names: make(map[int]string)}
}

func (r *fakePaymentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, payment *models.PaymentTransaction) error {
	r.nextID++
	payment.ID = r.nextID
	r.payments = append(r.payments, *payment)
	return nil
}

func (r *fakePaymentRepo) matches(p models.PaymentTransaction, playerName *string) bool {
	return playerName == nil || r.names[p.PlayerID] == *playerName
}

func (r *fakePaymentRepo) List(ctx context.Context, filter repositories.PaymentFilter) ([]models.PaymentTransaction, error) {
	matched := make([]models.PaymentTransaction, 0)
	for i := len(r.payments) - 1; i >= 0; i-- {
		if r.matches(r.payments[i], filter.PlayerName) {
			p := r.payments[i]
			p.PlayerName = r.names[p.PlayerID]
			matched = append(matched, p)
		}
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *fakePaymentRepo) Count(ctx context.Context, playerName *string) (int, error) {
	count := 0
	for _, p := range r.payments {
		if r.matches(p, playerName) {
			count++
		}
	}
	return count, nil
}
