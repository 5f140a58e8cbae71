// Package analytics provides the statistics behind sprint velocity analysis.
package analytics

import "math"

// TrendDirection indicates the direction of velocity change across sprints.
type TrendDirection string

const (
	// TrendIncreasing indicates a regression slope above TrendThreshold.
	TrendIncreasing TrendDirection = "increasing"
	// TrendDecreasing indicates a regression slope below -TrendThreshold.
	TrendDecreasing TrendDirection = "decreasing"
	// TrendStable indicates a slope within ±TrendThreshold.
	TrendStable TrendDirection = "stable"
	// TrendInsufficientData is reported when fewer than two samples exist.
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// TrendThreshold is the slope, in hours per sprint, that separates a stable
// velocity from an increasing or decreasing one.
const TrendThreshold = 2.0

// VelocityTrend captures the regression of hours against sprint index.
type VelocityTrend struct {
	Direction TrendDirection `json:"trend"`
	Slope     float64        `json:"slope"`
	Sign      int            `json:"direction"` // -1, 0 or 1
}

// IsPositive returns true if the trend is classified as increasing.
func (t VelocityTrend) IsPositive() bool {
	return t.Direction == TrendIncreasing
}

// IsNegative returns true if the trend is classified as decreasing.
func (t VelocityTrend) IsNegative() bool {
	return t.Direction == TrendDecreasing
}

// NewVelocityTrend regresses ys against xs and classifies the slope.
// Fewer than two samples yield TrendInsufficientData with a zero slope.
func NewVelocityTrend(xs, ys []float64) VelocityTrend {
	if len(xs) < 2 || len(xs) != len(ys) {
		return VelocityTrend{Direction: TrendInsufficientData}
	}
	slope := Slope(xs, ys)
	return VelocityTrend{
		Direction: ClassifySlope(slope),
		Slope:     slope,
		Sign:      sign(slope),
	}
}

// ClassifySlope maps a slope onto a trend direction using TrendThreshold.
func ClassifySlope(slope float64) TrendDirection {
	switch {
	case slope > TrendThreshold:
		return TrendIncreasing
	case slope < -TrendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// Slope is the ordinary least-squares slope of ys over xs.
// A zero denominator (all xs equal) yields 0.
func Slope(xs, ys []float64) float64 {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0
	}
	xMean := Mean(xs)
	yMean := Mean(ys)

	var num, den float64
	for i := range xs {
		dx := xs[i] - xMean
		num += dx * (ys[i] - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Mean is the arithmetic mean; 0 for no samples.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev is the sample (n-1) standard deviation; 0 for fewer than two samples.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// VelocityStats holds a statistical summary of sprint velocities.
type VelocityStats struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// NewVelocityStats summarises values.
func NewVelocityStats(values []float64) VelocityStats {
	if len(values) == 0 {
		return VelocityStats{}
	}
	stats := VelocityStats{
		Mean:    Mean(values),
		StdDev:  SampleStdDev(values),
		Min:     values[0],
		Max:     values[0],
		Samples: len(values),
	}
	for _, v := range values[1:] {
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	return stats
}

// Variability returns the coefficient of variation (StdDev/Mean).
func (vs VelocityStats) Variability() float64 {
	if vs.Mean == 0 {
		return 0
	}
	return vs.StdDev / vs.Mean
}

// IsConsistent returns true if velocity is relatively stable.
func (vs VelocityStats) IsConsistent() bool {
	return vs.Variability() < 0.3 // Less than 30% coefficient of variation
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
