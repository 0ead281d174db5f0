package cache

import "math"

// Scoring follows the cachey model: an entry starts at cost/size and every
// retrieval compounds the running value by 2^(1/half_life) before adding
// cost/size again. After half_life unused retrievals elsewhere, an idle
// entry's relative weight has halved against a freshly-scored competitor.

// InitialScore is the value assigned when an entry is first materialized.
func InitialScore(costSeconds float64, sizeBytes int64) float64 {
	if sizeBytes <= 0 {
		return 0
	}
	return costSeconds / float64(sizeBytes)
}

// AccessMultiplier returns the per-retrieval compounding factor for the given
// half-life. half_life must be > 0; SetConfig rejects anything else.
func AccessMultiplier(halfLife float64) float64 {
	return math.Pow(2, 1/halfLife)
}

// BumpScore returns the running value after one more retrieval.
func BumpScore(current, costSeconds float64, sizeBytes int64, halfLife float64) float64 {
	return current*AccessMultiplier(halfLife) + InitialScore(costSeconds, sizeBytes)
}

// RankScore is the value used to order entries during eviction. It is the
// running value itself, so frequently-retrieved cheap entries can outrank
// expensive-but-unused ones.
func RankScore(e *CacheEntry) float64 {
	return e.Score
}
