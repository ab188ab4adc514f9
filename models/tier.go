package models

// Tier is the commission band of a referrer. Promotion is driven purely by
// cumulative attributed volume and never goes backwards.
type Tier string

const (
	TierBronze  Tier = "BRONZE"
	TierSilver  Tier = "SILVER"
	TierGold    Tier = "GOLD"
	TierDiamond Tier = "DIAMOND"
)

type tierInfo struct {
	ordinal   int
	rate      float64
	minVolume float64
}

var tierTable = map[Tier]tierInfo{
	TierBronze:  {ordinal: 0, rate: 0.10, minVolume: 0},
	TierSilver:  {ordinal: 1, rate: 0.15, minVolume: 500_000},
	TierGold:    {ordinal: 2, rate: 0.20, minVolume: 2_000_000},
	TierDiamond: {ordinal: 3, rate: 0.25, minVolume: 10_000_000},
}

// ordered low to high
var tierOrder = []Tier{TierBronze, TierSilver, TierGold, TierDiamond}

func (t Tier) Ordinal() int {
	return tierTable[t].ordinal
}

func (t Tier) CommissionRate() float64 {
	return tierTable[t].rate
}

func (t Tier) MinVolume() float64 {
	return tierTable[t].minVolume
}

// Next returns the tier above t. ok is false at DIAMOND.
func (t Tier) Next() (next Tier, ok bool) {
	i := tierTable[t].ordinal
	if i >= len(tierOrder)-1 {
		return "", false
	}
	return tierOrder[i+1], true
}

func (t Tier) IsValid() bool {
	_, ok := tierTable[t]
	return ok
}

// TierForVolume returns the highest tier whose minimum volume is <= v.
// Thresholds are inclusive: exactly 500 000 USD is SILVER.
func TierForVolume(v float64) Tier {
	result := TierBronze
	for _, t := range tierOrder {
		if v >= tierTable[t].minVolume {
			result = t
		}
	}
	return result
}

// VolumeToNext returns how much more volume is needed to reach the tier above
// t, given the current cumulative volume. 0 at DIAMOND or past the threshold.
func VolumeToNext(t Tier, currentVolume float64) float64 {
	next, ok := t.Next()
	if !ok {
		return 0
	}
	remaining := tierTable[next].minVolume - currentVolume
	if remaining < 0 {
		return 0
	}
	return remaining
}
