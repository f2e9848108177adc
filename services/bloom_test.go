package services

import (
	"fmt"
	"testing"

	"tournament-escrow-system/models"

	"github.com/stretchr/testify/require"
)

func TestNewBloomFilterValidation(t *testing.T) {
	_, err := NewBloomFilter(100, 0)
	require.ErrorIs(t, err, models.ErrInvalidPrecision)
	_, err = NewBloomFilter(100, 1)
	require.ErrorIs(t, err, models.ErrInvalidPrecision)

	_, err = NewBloomFilter(0, 0.01)
	require.ErrorIs(t, err, models.ErrMaxPlayersExceeded)
}

func TestBloomCapacityCapRoundTrips(t *testing.T) {
	rate := 0.000065
	maxCap := MaxBloomCapacity(rate)
	require.Greater(t, maxCap, 0)

	// The largest admissible filter must still fit the storage cap, and
	// one item more must be rejected.
	require.LessOrEqual(t, BloomSizeFor(maxCap, rate), MaxBloomBytes)

	_, err := NewBloomFilter(maxCap, rate)
	require.NoError(t, err)
	_, err = NewBloomFilter(maxCap+1, rate)
	require.ErrorIs(t, err, models.ErrMaxPlayersExceeded)
}

func TestBloomInsertDetectsDuplicates(t *testing.T) {
	bloom, err := NewBloomFilter(100, 0.001)
	require.NoError(t, err)

	require.True(t, bloom.Insert("alice"))
	require.False(t, bloom.Insert("alice"))
	require.True(t, bloom.Contains("alice"))
	require.False(t, bloom.Contains("bob"))
	require.Equal(t, 1, bloom.Count())
}

func TestBloomSerializationRoundTrip(t *testing.T) {
	bloom, err := NewBloomFilter(200, 0.001)
	require.NoError(t, err)

	for i := 0; i < 150; i++ {
		require.True(t, bloom.Insert(fmt.Sprintf("user-%d", i)))
	}

	loaded, err := LoadBloomFilter(bloom.Bytes())
	require.NoError(t, err)
	require.Equal(t, bloom.Count(), loaded.Count())

	for i := 0; i < 150; i++ {
		require.False(t, loaded.Insert(fmt.Sprintf("user-%d", i)),
			"members must survive a persistence round trip")
	}
	require.True(t, loaded.Insert("user-150"))
}

func TestLoadBloomFilterRejectsTruncatedBuffer(t *testing.T) {
	_, err := LoadBloomFilter(make([]byte, bloomHeaderBytes-1))
	require.Error(t, err)
}

func TestBloomFalsePositiveRateHoldsAtCapacity(t *testing.T) {
	rate := 0.000065
	capacity := 500
	bloom, err := NewBloomFilter(capacity, rate)
	require.NoError(t, err)

	for i := 0; i < capacity; i++ {
		bloom.Insert(fmt.Sprintf("member-%d", i))
	}

	// At the target rate the expected count over 10k probes is below one;
	// the bound leaves generous slack against hash variance.
	falsePositives := 0
	for i := 0; i < 10_000; i++ {
		if bloom.Contains(fmt.Sprintf("stranger-%d", i)) {
			falsePositives++
		}
	}
	require.LessOrEqual(t, falsePositives, 10)
}
