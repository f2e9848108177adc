package services

import (
	"testing"

	"tournament-escrow-system/models"

	"github.com/stretchr/testify/require"
)

func TestBuildSettlementReportRequiresTerminalStatus(t *testing.T) {
	env := newTestEnv(t)

	tr := &models.Tournament{ID: 1, Status: models.StatusStarted}
	_, err := BuildSettlementReport(env.db, tr)
	require.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestBuildSettlementReportForFinishedTournament(t *testing.T) {
	env := newTestEnv(t)

	tr := &models.Tournament{
		ID: 5, Name: "Spring Cup", Slug: "spring-cup", Asset: "USDC",
		Status: models.StatusFinished, TeamCount: 2,
		PaidIn: 1400000, PaidOut: 1200000,
	}
	require.NoError(t, env.db.Create(tr).Error)
	require.NoError(t, env.db.Create(&models.FinishMetadata{
		TournamentID: 5, WinnerCaptain: "capA", RewardPool: 120, OrganizerReward: 12, RewardPerWinner: 54,
	}).Error)
	require.NoError(t, env.db.Create(&models.ConsensusTracker{
		TournamentID: 5, StartVotes: 0b11, FinishVotes: 0b11,
	}).Error)
	require.NoError(t, env.db.Create(&models.Participant{
		TournamentID: 5, Captain: "capA", UserID: "capA", PaidByCaptain: true, Claimed: true,
	}).Error)

	report, err := BuildSettlementReport(env.db, tr)
	require.NoError(t, err)
	require.Equal(t, uint64(200000), report.PoolBalance)
	require.Equal(t, "1,400,000", report.PaidInDisplay)
	require.Equal(t, 2, report.Votes.Start)
	require.Equal(t, 2, report.Votes.Finish)
	require.Equal(t, 0, report.Votes.Cancel)
	require.NotNil(t, report.Finish)
	require.Equal(t, "capA", report.Finish.WinnerCaptain)
	require.Len(t, report.Participants, 1)
	require.Equal(t, "reports/settlement-5.json", report.ObjectKey())

	payload, err := report.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(payload), "\"winner_captain\": \"capA\"")
}

func TestBuildSettlementReportCanceledNeedsNoMetadata(t *testing.T) {
	env := newTestEnv(t)

	tr := &models.Tournament{ID: 6, Status: models.StatusCanceled, PaidIn: 100, PaidOut: 100}
	require.NoError(t, env.db.Create(tr).Error)

	report, err := BuildSettlementReport(env.db, tr)
	require.NoError(t, err)
	require.Nil(t, report.Finish)
	require.Equal(t, uint64(0), report.PoolBalance)
}
