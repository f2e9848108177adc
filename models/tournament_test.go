package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscrowDebitNeverOverdraws(t *testing.T) {
	tr := &Tournament{ID: 7}
	tr.Credit(100)
	require.Equal(t, uint64(100), tr.PoolBalance())

	require.NoError(t, tr.Debit(60))
	require.Equal(t, uint64(40), tr.PoolBalance())

	require.ErrorIs(t, tr.Debit(41), ErrInsufficientFunds)
	require.Equal(t, uint64(40), tr.PoolBalance(), "a rejected debit must not move the balance")

	require.NoError(t, tr.Debit(40))
	require.Equal(t, uint64(0), tr.PoolBalance())
	require.ErrorIs(t, tr.Debit(1), ErrInsufficientFunds)
}

func TestEscrowConservationUnderRandomTraffic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		tr := &Tournament{ID: uint64(trial)}
		for op := 0; op < 100; op++ {
			amount := uint64(rng.Intn(1000))
			if rng.Intn(2) == 0 {
				tr.Credit(amount)
			} else if err := tr.Debit(amount); err != nil {
				require.ErrorIs(t, err, ErrInsufficientFunds)
				require.Greater(t, amount, tr.PoolBalance())
			}
			require.LessOrEqual(t, tr.PaidOut, tr.PaidIn)
		}
	}
}

func TestComputeFinishSplit(t *testing.T) {
	tr := &Tournament{
		ID:                  3,
		SponsorPool:         100,
		EntryFee:            10,
		TeamSize:            2,
		TeamCount:           2,
		OrganizerRoyaltyBps: 1000,
	}
	meta := ComputeFinish(tr, "cap")

	require.Equal(t, uint64(120), meta.RewardPool)
	require.Equal(t, uint64(12), meta.OrganizerReward)
	require.Equal(t, uint64(54), meta.RewardPerWinner)
	require.Equal(t, "cap", meta.WinnerCaptain)
}

func TestComputeFinishNeverOverpays(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 500; trial++ {
		tr := &Tournament{
			SponsorPool:         uint64(rng.Intn(1_000_000)),
			EntryFee:            uint64(rng.Intn(10_000)),
			TeamSize:            1 + rng.Intn(10),
			TeamCount:           rng.Intn(100),
			OrganizerRoyaltyBps: uint64(rng.Intn(10_001)),
		}
		meta := ComputeFinish(tr, "cap")

		payout := meta.OrganizerReward + meta.RewardPerWinner*uint64(tr.TeamSize)
		require.LessOrEqual(t, payout, meta.RewardPool,
			"floor division must leave the remainder in the pool")
	}
}

func TestPoolAccountNaming(t *testing.T) {
	tr := &Tournament{ID: 0}
	require.Equal(t, "tournament-pool-0", tr.PoolAccount())

	tr.ID = 1234567890
	require.Equal(t, "tournament-pool-1234567890", tr.PoolAccount())
}
