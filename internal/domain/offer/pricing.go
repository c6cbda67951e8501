package offer

import (
	"math"
	"time"
)

const (
	PricePerSquareFoot = 180
	FallbackBasePrice  = 350000

	centerSpread = 0.15
	bandLowRate  = 0.92
	bandHighRate = 1.08

	MinConfidence = 75
	MaxConfidence = 95

	DefaultMinWait = 60 * time.Second
	DefaultMaxWait = 120 * time.Second
)

// Rand is the randomness the valuation needs; *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// DrawWait picks a wait uniformly in [minWait, maxWait] at millisecond resolution.
func DrawWait(rng Rand, minWait time.Duration, maxWait time.Duration) time.Duration {
	if maxWait <= minWait {
		return minWait
	}
	spanMillis := (maxWait - minWait).Milliseconds()
	return minWait + time.Duration(rng.IntN(int(spanMillis)+1))*time.Millisecond
}

// BasePrice is square feet times the flat rate, or the fallback when the size is unknown.
func BasePrice(squareFeet *int) float64 {
	if squareFeet == nil || *squareFeet <= 0 {
		return FallbackBasePrice
	}
	return float64(*squareFeet) * PricePerSquareFoot
}

// ComputePriceRange draws a center within ±15% of the base price and returns the ±8% band around it.
func ComputePriceRange(squareFeet *int, rng Rand) PriceRange {
	base := BasePrice(squareFeet)
	factor := 1 + (rng.Float64()*2-1)*centerSpread
	center := base * factor

	return PriceRange{
		Low:        int(math.Floor(center * bandLowRate)),
		High:       int(math.Floor(center * bandHighRate)),
		Confidence: MinConfidence + rng.IntN(MaxConfidence-MinConfidence+1),
	}
}
