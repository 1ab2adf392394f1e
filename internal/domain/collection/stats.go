package collection

import "time"

// Tier is a coarse age class of stored vectors, used for reporting only.
type Tier string

const (
	// TierHot holds recently written vectors.
	TierHot Tier = "hot"
	// TierWarm holds vectors older than the hot window.
	TierWarm Tier = "warm"
	// TierCold holds everything older than the warm window.
	TierCold Tier = "cold"
)

// TierDistribution counts vectors per tier.
type TierDistribution struct {
	Hot  int64 `json:"hot"`
	Warm int64 `json:"warm"`
	Cold int64 `json:"cold"`
}

// TierPolicy holds the age thresholds separating tiers.
type TierPolicy struct {
	HotAfter  time.Duration
	WarmAfter time.Duration
}

// Classify returns the tier of a vector created at createdAt (unix millis).
func (p TierPolicy) Classify(createdAt int64, now time.Time) Tier {
	age := now.Sub(time.UnixMilli(createdAt))
	switch {
	case age < p.HotAfter:
		return TierHot
	case age < p.WarmAfter:
		return TierWarm
	default:
		return TierCold
	}
}

// Stats is one point of a collection's stats time series.
type Stats struct {
	CollectionName  string
	Timestamp       int64 // unix millis, strictly increasing per collection
	VectorCount     int64
	DocumentCount   int64
	AvgSearchTimeMs float64
	QueriesPerDay   int64
	GNNImprovement  float64
	Tiers           TierDistribution
}

// IsZero reports whether no snapshot has been recorded.
func (s Stats) IsZero() bool { return s.Timestamp == 0 }

// NextTimestamp returns now in unix millis, bumped past prev when the clock has not advanced.
func NextTimestamp(prev int64, now time.Time) int64 {
	ts := now.UnixMilli()
	if ts <= prev {
		ts = prev + 1
	}
	return ts
}

// RecordSearch folds one search into the day bucket of prev.
// queriesPerDay and the running means reset at the UTC day boundary.
func (s Stats) RecordSearch(now time.Time, latencyMs, gnnImprovement float64) Stats {
	next := s
	next.Timestamp = NextTimestamp(s.Timestamp, now)
	gnnImprovement = min(max(gnnImprovement, 0), 1)
	latencyMs = max(latencyMs, 0)

	if s.IsZero() || !sameDay(time.UnixMilli(s.Timestamp), now) {
		next.QueriesPerDay = 1
		next.AvgSearchTimeMs = latencyMs
		next.GNNImprovement = gnnImprovement
		return next
	}

	n := float64(s.QueriesPerDay)
	next.QueriesPerDay = s.QueriesPerDay + 1
	next.AvgSearchTimeMs = s.AvgSearchTimeMs + (latencyMs-s.AvgSearchTimeMs)/(n+1)
	next.GNNImprovement = s.GNNImprovement + (gnnImprovement-s.GNNImprovement)/(n+1)
	return next
}

// Tick carries the day bucket of prev into a new point without counting a search.
// A tick on a later day resets queriesPerDay.
func (s Stats) Tick(now time.Time) Stats {
	next := s
	next.Timestamp = NextTimestamp(s.Timestamp, now)
	if !s.IsZero() && !sameDay(time.UnixMilli(s.Timestamp), now) {
		next.QueriesPerDay = 0
	}
	return next
}

func sameDay(a, b time.Time) bool {
	return truncateToDay(a).Equal(truncateToDay(b))
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
