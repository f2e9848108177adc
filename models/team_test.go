package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTeamCompletesAtTeamSize(t *testing.T) {
	team := NewTeam(1, "cap", 3)

	require.NoError(t, team.AddParticipant("p1"))
	require.False(t, team.Completed)
	require.NoError(t, team.AddParticipant("p2"))
	require.False(t, team.Completed)
	require.NoError(t, team.AddParticipant("p3"))
	require.True(t, team.Completed)

	require.ErrorIs(t, team.AddParticipant("p4"), ErrMaxPlayersExceeded)
}

func TestCaptainBatchRejectedWhole(t *testing.T) {
	team := NewTeam(1, "cap", 3)
	require.NoError(t, team.AddParticipant("solo"))

	err := team.AddParticipantsByCaptain([]string{"cap", "m1", "m2"})
	require.ErrorIs(t, err, ErrMaxPlayersExceeded)
	require.Len(t, team.Participants, 1, "an overflowing batch must not be partially applied")

	require.NoError(t, team.AddParticipantsByCaptain([]string{"cap", "m1"}))
	require.True(t, team.Completed)
	require.True(t, team.Participants[1].PaidByCaptain)
	require.True(t, team.Participants[2].PaidByCaptain)
}

func TestRefundSelfPaidParticipant(t *testing.T) {
	team := NewTeam(1, "cap", 2)
	require.NoError(t, team.AddParticipant("p1"))

	mult, err := team.RefundParticipant("p1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), mult)

	_, err = team.RefundParticipant("p1")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestRefundCaptainPaidMemberYieldsNothing(t *testing.T) {
	team := NewTeam(1, "cap", 3)
	require.NoError(t, team.AddParticipantsByCaptain([]string{"cap", "m1", "m2"}))

	mult, err := team.RefundParticipant("m1")
	require.NoError(t, err)
	require.Equal(t, uint64(0), mult, "captain-paid fees accrue to the captain")

	// The captain then collects the two remaining captain-paid shares.
	mult, err = team.RefundParticipant("cap")
	require.NoError(t, err)
	require.Equal(t, uint64(2), mult)

	_, err = team.RefundParticipant("m2")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestRefundCaptainCollectsWholeBatch(t *testing.T) {
	team := NewTeam(1, "cap", 3)
	require.NoError(t, team.AddParticipantsByCaptain([]string{"cap", "m1"}))
	require.NoError(t, team.AddParticipant("solo"))

	mult, err := team.RefundParticipant("cap")
	require.NoError(t, err)
	require.Equal(t, uint64(2), mult)

	// The self-paid member is untouched by the captain's batch refund.
	mult, err = team.RefundParticipant("solo")
	require.NoError(t, err)
	require.Equal(t, uint64(1), mult)

	_, err = team.RefundParticipant("cap")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestRefundUnknownParticipant(t *testing.T) {
	team := NewTeam(1, "cap", 2)
	_, err := team.RefundParticipant("ghost")
	require.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestRewardParticipantIdempotent(t *testing.T) {
	team := NewTeam(1, "cap", 2)
	require.NoError(t, team.AddParticipant("p1"))

	require.NoError(t, team.RewardParticipant("p1"))
	require.ErrorIs(t, team.RewardParticipant("p1"), ErrAlreadyClaimed)
	require.ErrorIs(t, team.RewardParticipant("ghost"), ErrParticipantNotFound)
}
