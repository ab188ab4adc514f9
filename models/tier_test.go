package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierForVolume(t *testing.T) {
	cases := []struct {
		volume float64
		want   Tier
	}{
		{0, TierBronze},
		{499_999.99, TierBronze},
		{500_000, TierSilver},
		{1_999_999, TierSilver},
		{2_000_000, TierGold},
		{9_999_999, TierGold},
		{10_000_000, TierDiamond},
		{50_000_000, TierDiamond},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierForVolume(tc.volume), "volume %.2f", tc.volume)
	}
}

func TestTierCommissionRates(t *testing.T) {
	assert.Equal(t, 0.10, TierBronze.CommissionRate())
	assert.Equal(t, 0.15, TierSilver.CommissionRate())
	assert.Equal(t, 0.20, TierGold.CommissionRate())
	assert.Equal(t, 0.25, TierDiamond.CommissionRate())
}

func TestTierNext(t *testing.T) {
	next, ok := TierBronze.Next()
	assert.True(t, ok)
	assert.Equal(t, TierSilver, next)

	next, ok = TierGold.Next()
	assert.True(t, ok)
	assert.Equal(t, TierDiamond, next)

	_, ok = TierDiamond.Next()
	assert.False(t, ok)
}

func TestTierOrdinalIsMonotone(t *testing.T) {
	assert.Less(t, TierBronze.Ordinal(), TierSilver.Ordinal())
	assert.Less(t, TierSilver.Ordinal(), TierGold.Ordinal())
	assert.Less(t, TierGold.Ordinal(), TierDiamond.Ordinal())
}

func TestVolumeToNext(t *testing.T) {
	assert.Equal(t, 400_000.0, VolumeToNext(TierBronze, 100_000))
	assert.Equal(t, 0.0, VolumeToNext(TierBronze, 600_000))
	assert.Equal(t, 1_500_000.0, VolumeToNext(TierSilver, 500_000))
	assert.Equal(t, 0.0, VolumeToNext(TierDiamond, 50_000_000))
}

func TestGenerateReferralCode(t *testing.T) {
	assert.Equal(t, "AAAAAAAA", GenerateReferralCode("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.Equal(t, "12345678", GenerateReferralCode("0x1234567890abcdef1234567890abcdef12345678"))
}
