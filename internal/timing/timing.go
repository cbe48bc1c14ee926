// Package timing computes the per-ticket and per-station attributes that are
// derived from the wall clock. Every function is pure over its inputs so the
// display can recompute on each tick and tests can inject a fixed clock.
package timing

import (
	"time"

	"brigade/internal/config"
)

// Bucket represents a timer or load color class
type Bucket string

const (
	BucketGreen  Bucket = "green"
	BucketYellow Bucket = "yellow"
	BucketRed    Bucket = "red"

	LoadHealthy   Bucket = "healthy"
	LoadAttention Bucket = "attention"
	LoadWarning   Bucket = "warning"
	LoadCritical  Bucket = "critical"
)

// WaitMinutes returns whole minutes elapsed since createdAt. Clocks that run
// behind the backend can make the difference negative; that clamps to zero.
func WaitMinutes(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt) / time.Minute)
}

// TimerBucket maps a wait time onto the configured color thresholds.
func TimerBucket(waitMinutes int, timers config.Timers) Bucket {
	switch {
	case waitMinutes >= timers.RedTime:
		return BucketRed
	case waitMinutes >= timers.YellowTime:
		return BucketYellow
	default:
		return BucketGreen
	}
}

// IsOverdue reports whether the wait time has crossed the red threshold.
// With color coding disabled nothing is ever overdue.
func IsOverdue(waitMinutes int, timers config.Timers, colorCodingEnabled bool) bool {
	return colorCodingEnabled && waitMinutes >= timers.RedTime
}

// LoadRatio returns current station load as a fraction of capacity.
func LoadRatio(currentLoad, maxCapacity int) float64 {
	if maxCapacity <= 0 {
		return 0
	}
	return float64(currentLoad) / float64(maxCapacity)
}

// LoadBucket classifies a station load ratio.
func LoadBucket(ratio float64) Bucket {
	switch {
	case ratio >= 0.9:
		return LoadCritical
	case ratio >= 0.7:
		return LoadWarning
	case ratio >= 0.5:
		return LoadAttention
	default:
		return LoadHealthy
	}
}
