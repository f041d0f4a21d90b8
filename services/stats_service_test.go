package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssclub/club-system/models"
)

func TestAttendanceStats_GroupsAndSorts(t *testing.T) {
	attendanceRepo := newFakeAttendanceRepo()
	fundRepo := newFakeFundRepo()
	svc := NewStatsService(attendanceRepo, fundRepo)
	ctx := context.Background()

	attendanceRepo.names = map[int]string{1: "Anik", 2: "Babu"}
	rows := []models.TournamentAttendance{
		{TournamentID: "t1", PlayerID: 1, IsClubMember: false},
		{TournamentID: "t1", PlayerID: 2, IsClubMember: true},
		{TournamentID: "t2", PlayerID: 2, IsClubMember: true},
		{TournamentID: "t3", PlayerID: 2, IsClubMember: false},
	}
	for i := range rows {
		require.NoError(t, attendanceRepo.Upsert(ctx, nil, &rows[i]))
	}

	stats, err := svc.AttendanceStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "Babu", stats[0].PlayerName)
	assert.Equal(t, 3, stats[0].TotalTournaments)
	assert.Equal(t, 2, stats[0].AsClubMember)
	assert.Equal(t, 1, stats[0].AsRegularMember)

	assert.Equal(t, "Anik", stats[1].PlayerName)
	assert.Equal(t, 1, stats[1].TotalTournaments)
	assert.Equal(t, 0, stats[1].AsClubMember)
}

func TestAttendanceStats_StableOrderOnTies(t *testing.T) {
	attendanceRepo := newFakeAttendanceRepo()
	svc := NewStatsService(attendanceRepo, newFakeFundRepo())
	ctx := context.Background()

	attendanceRepo.names = map[int]string{1: "Zorro", 2: "Anik"}
	// Zorro встречается первым в выборке и при равенстве остаётся первым.
	require.NoError(t, attendanceRepo.Upsert(ctx, nil, &models.TournamentAttendance{TournamentID: "t1", PlayerID: 1}))
	require.NoError(t, attendanceRepo.Upsert(ctx, nil, &models.TournamentAttendance{TournamentID: "t1", PlayerID: 2}))

	stats, err := svc.AttendanceStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Zorro", stats[0].PlayerName)
	assert.Equal(t, "Anik", stats[1].PlayerName)
}

func TestDaysPlayedComparison(t *testing.T) {
	fundRepo := newFakeFundRepo()
	svc := NewStatsService(newFakeAttendanceRepo(), fundRepo)
	ctx := context.Background()

	fundRepo.names = map[int]string{1: "Anik", 2: "Babu", 3: "Chandan"}
	require.NoError(t, fundRepo.Upsert(ctx, nil, &models.PlayerFund{PlayerID: 1, DaysPlayed: 3}))
	require.NoError(t, fundRepo.Upsert(ctx, nil, &models.PlayerFund{PlayerID: 2, DaysPlayed: 10}))
	require.NoError(t, fundRepo.Upsert(ctx, nil, &models.PlayerFund{PlayerID: 3, DaysPlayed: 7}))

	comparison, err := svc.DaysPlayedComparison(ctx)
	require.NoError(t, err)
	require.Len(t, comparison, 3)
	assert.Equal(t, DaysPlayedEntry{PlayerName: "Babu", DaysPlayed: 10}, comparison[0])
	assert.Equal(t, DaysPlayedEntry{PlayerName: "Chandan", DaysPlayed: 7}, comparison[1])
	assert.Equal(t, DaysPlayedEntry{PlayerName: "Anik", DaysPlayed: 3}, comparison[2])
}
