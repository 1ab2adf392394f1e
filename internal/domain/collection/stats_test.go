package collection

import (
	"math"
	"testing"
	"time"
)

func TestRecordSearch_FirstQuery(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := Stats{}.RecordSearch(now, 40, 0.5)

	if got.QueriesPerDay != 1 {
		t.Errorf("QueriesPerDay = %d, want 1", got.QueriesPerDay)
	}
	if got.AvgSearchTimeMs != 40 {
		t.Errorf("AvgSearchTimeMs = %v, want 40", got.AvgSearchTimeMs)
	}
	if got.Timestamp != now.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", got.Timestamp, now.UnixMilli())
	}
}

func TestRecordSearch_RunningMeanSameDay(t *testing.T) {
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s := Stats{}.RecordSearch(day, 10, 0)
	s = s.RecordSearch(day.Add(time.Hour), 20, 0)
	s = s.RecordSearch(day.Add(2*time.Hour), 30, 0)

	if s.QueriesPerDay != 3 {
		t.Errorf("QueriesPerDay = %d, want 3", s.QueriesPerDay)
	}
	if math.Abs(s.AvgSearchTimeMs-20) > 1e-9 {
		t.Errorf("AvgSearchTimeMs = %v, want 20", s.AvgSearchTimeMs)
	}
}

func TestRecordSearch_ResetsOnNewDay(t *testing.T) {
	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	s := Stats{}.RecordSearch(day, 100, 0)
	s = s.RecordSearch(day, 100, 0)
	s = s.RecordSearch(day.Add(2*time.Minute), 10, 0)

	if s.QueriesPerDay != 1 {
		t.Errorf("QueriesPerDay = %d, want 1 after day boundary", s.QueriesPerDay)
	}
	if s.AvgSearchTimeMs != 10 {
		t.Errorf("AvgSearchTimeMs = %v, want 10", s.AvgSearchTimeMs)
	}
}

func TestRecordSearch_ClampsGNNImprovement(t *testing.T) {
	s := Stats{}.RecordSearch(time.Now(), 1, 3)
	if s.GNNImprovement != 1 {
		t.Errorf("GNNImprovement = %v, want 1", s.GNNImprovement)
	}
}

func TestNextTimestamp_Monotonic(t *testing.T) {
	now := time.UnixMilli(1000)
	if got := NextTimestamp(1000, now); got != 1001 {
		t.Errorf("NextTimestamp(1000, 1000) = %d, want 1001", got)
	}
	if got := NextTimestamp(5000, now); got != 5001 {
		t.Errorf("clock skew: got %d, want 5001", got)
	}
	if got := NextTimestamp(10, now); got != 1000 {
		t.Errorf("got %d, want 1000", got)
	}
}

func TestTick_ResetsQueriesOnNewDay(t *testing.T) {
	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Stats{}.RecordSearch(day, 5, 0)

	same := s.Tick(day.Add(time.Hour))
	if same.QueriesPerDay != 1 {
		t.Errorf("same-day tick QueriesPerDay = %d, want 1", same.QueriesPerDay)
	}
	next := s.Tick(day.Add(24 * time.Hour))
	if next.QueriesPerDay != 0 {
		t.Errorf("next-day tick QueriesPerDay = %d, want 0", next.QueriesPerDay)
	}
	if next.Timestamp <= s.Timestamp {
		t.Error("tick must advance timestamp")
	}
}

func TestTierPolicy_Classify(t *testing.T) {
	p := TierPolicy{HotAfter: 24 * time.Hour, WarmAfter: 7 * 24 * time.Hour}
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		age  time.Duration
		want Tier
	}{
		{time.Hour, TierHot},
		{48 * time.Hour, TierWarm},
		{30 * 24 * time.Hour, TierCold},
	}
	for _, tc := range tests {
		if got := p.Classify(now.Add(-tc.age).UnixMilli(), now); got != tc.want {
			t.Errorf("age %v: got %q, want %q", tc.age, got, tc.want)
		}
	}
}
