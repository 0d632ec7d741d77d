package rates

import (
	"math"
	"time"
)

// Observation is one (time, mid-rate) point for statistical analysis.
type Observation struct {
	At  time.Time
	Mid float64
}

// Stats summarizes a window of rate observations. Over an empty window only
// Count is defined and every other field is null; PercentChange is also null
// when the first observation is zero, which leaves the ratio undefined.
type Stats struct {
	Count         int      `json:"count"`
	Min           *float64 `json:"min"`
	Max           *float64 `json:"max"`
	Average       *float64 `json:"average"`
	First         *float64 `json:"first"`
	Last          *float64 `json:"last"`
	PercentChange *float64 `json:"percentChange"` // first to last
	StdDev        *float64 `json:"stdDev"`        // population
	TrendPerHour  *float64 `json:"trendPerHour"`  // least-squares slope
}

// Compute summarizes observations ordered oldest-first. An empty window
// reports Count 0 with the remaining statistics undefined. The trend is the
// least-squares slope of mid rate against hours since the first observation;
// with a single point or all points at the same instant it is zero.
func Compute(observations []Observation) *Stats {
	stats := &Stats{Count: len(observations)}
	if stats.Count == 0 {
		return stats
	}

	lo, hi := observations[0].Mid, observations[0].Mid
	var sum float64
	for _, obs := range observations {
		sum += obs.Mid
		if obs.Mid < lo {
			lo = obs.Mid
		}
		if obs.Mid > hi {
			hi = obs.Mid
		}
	}
	first := observations[0].Mid
	last := observations[len(observations)-1].Mid
	average := sum / float64(stats.Count)

	var sumSq float64
	for _, obs := range observations {
		d := obs.Mid - average
		sumSq += d * d
	}
	stdDev := math.Sqrt(sumSq / float64(stats.Count))
	trend := trendPerHour(observations)

	stats.Min, stats.Max, stats.Average = &lo, &hi, &average
	stats.First, stats.Last = &first, &last
	stats.StdDev, stats.TrendPerHour = &stdDev, &trend

	if first != 0 {
		change := (last - first) / first * 100
		stats.PercentChange = &change
	}
	return stats
}

func trendPerHour(observations []Observation) float64 {
	n := float64(len(observations))
	if n < 2 {
		return 0
	}

	origin := observations[0].At
	var sumX, sumY, sumXY, sumXX float64
	for _, obs := range observations {
		x := obs.At.Sub(origin).Hours()
		sumX += x
		sumY += obs.Mid
		sumXY += x * obs.Mid
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
