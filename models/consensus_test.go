package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCastVoteRejectsDuplicates(t *testing.T) {
	tracker := &ConsensusTracker{TournamentID: 1}

	require.NoError(t, tracker.CastVote(DecisionStart, 0))
	require.ErrorIs(t, tracker.CastVote(DecisionStart, 0), ErrAlreadyVoted)

	// Same position on a different decision is a fresh vote.
	require.NoError(t, tracker.CastVote(DecisionCancel, 0))
	require.NoError(t, tracker.CastVote(DecisionStart, 1))

	require.Equal(t, 2, tracker.VoteCount(DecisionStart))
	require.Equal(t, 1, tracker.VoteCount(DecisionCancel))
	require.Equal(t, 0, tracker.VoteCount(DecisionFinish))
}

func TestCastVoteRejectsBadInput(t *testing.T) {
	tracker := &ConsensusTracker{TournamentID: 1}

	require.ErrorIs(t, tracker.CastVote("restart", 0), ErrNotAllowed)
	require.ErrorIs(t, tracker.CastVote(DecisionStart, -1), ErrNotAllowed)
	require.ErrorIs(t, tracker.CastVote(DecisionStart, MaxPanelVerifiers), ErrNotAllowed)
}

func TestThresholdReached(t *testing.T) {
	// 51% of a 2-verifier panel needs both votes: 1*10000 < 2*5100.
	require.False(t, ThresholdReached(1, 2, 5100))
	require.True(t, ThresholdReached(2, 2, 5100))

	// 2/3 at 6667 bps falls one unit short of the integer comparison.
	require.False(t, ThresholdReached(2, 3, 6667))
	require.True(t, ThresholdReached(3, 3, 6667))

	// Unanimity requirement.
	require.False(t, ThresholdReached(63, 64, 10000))
	require.True(t, ThresholdReached(64, 64, 10000))

	// An empty panel can never reach consensus.
	require.False(t, ThresholdReached(0, 0, 5100))
}

func TestResolveWinnerPlurality(t *testing.T) {
	votes := []FinishVote{
		{Captain: "a"},
		{Captain: "b"},
		{Captain: "b"},
		{Captain: "a"},
		{Captain: "b"},
	}
	winner, ok := ResolveWinner(votes)
	require.True(t, ok)
	require.Equal(t, "b", winner)
}

func TestResolveWinnerTieBreaksOnArrival(t *testing.T) {
	// Both captains end at two votes; "a" reached two first.
	votes := []FinishVote{
		{Captain: "a"},
		{Captain: "b"},
		{Captain: "a"},
		{Captain: "b"},
	}
	winner, ok := ResolveWinner(votes)
	require.True(t, ok)
	require.Equal(t, "a", winner)
}

func TestResolveWinnerEmpty(t *testing.T) {
	_, ok := ResolveWinner(nil)
	require.False(t, ok)
}
