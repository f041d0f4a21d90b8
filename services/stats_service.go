package services

import (
	"context"
	"sort"

	"github.com/ssclub/club-system/repositories"
)

type PlayerAttendanceStats struct {
	PlayerName       string `json:"player_name"`
	TotalTournaments int    `json:"total_tournaments"`
	AsClubMember     int    `json:"as_club_member"`
	AsRegularMember  int    `json:"as_regular_member"`
}

type DaysPlayedEntry struct {
	PlayerName string `json:"player_name"`
	DaysPlayed int    `json:"days_played"`
}

// StatsService — агрегаты посещаемости. Только чтение, без побочных эффектов.
type StatsService interface {
	AttendanceStats(ctx context.Context) ([]PlayerAttendanceStats, error)
	DaysPlayedComparison(ctx context.Context) ([]DaysPlayedEntry, error)
}

type statsService struct {
	attendanceRepo repositories.AttendanceRepository
	fundRepo       repositories.FundRepository
}

func NewStatsService(attendanceRepo repositories.AttendanceRepository, fundRepo repositories.FundRepository) StatsService {
	return &statsService{attendanceRepo: attendanceRepo, fundRepo: fundRepo}
}

func (s *statsService) AttendanceStats(ctx context.Context) ([]PlayerAttendanceStats, error) {
	rows, err := s.attendanceRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	// Группировка в порядке первого появления, чтобы равные счётчики
	// сортировались детерминированно.
	byPlayer := make(map[string]*PlayerAttendanceStats, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		stats, ok := byPlayer[row.PlayerName]
		if !ok {
			stats = &PlayerAttendanceStats{PlayerName: row.PlayerName}
			byPlayer[row.PlayerName] = stats
			order = append(order, row.PlayerName)
		}
		stats.TotalTournaments++
		if row.IsClubMember {
			stats.AsClubMember++
		} else {
			stats.AsRegularMember++
		}
	}

	result := make([]PlayerAttendanceStats, 0, len(order))
	for _, name := range order {
		result = append(result, *byPlayer[name])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalTournaments > result[j].TotalTournaments
	})
	return result, nil
}

func (s *statsService) DaysPlayedComparison(ctx context.Context) ([]DaysPlayedEntry, error) {
	funds, err := s.fundRepo.ListByDaysPlayed(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]DaysPlayedEntry, 0, len(funds))
	for _, fund := range funds {
		entries = append(entries, DaysPlayedEntry{
			PlayerName: fund.PlayerName,
			DaysPlayed: fund.DaysPlayed,
		})
	}
	return entries, nil
}
