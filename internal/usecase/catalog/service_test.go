package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/vecspace/internal/domain"
	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
)

func TestCreate_DefaultsAndZeroCounters(t *testing.T) {
	svc := newTestService(t)

	col, err := svc.Create(context.Background(), domcol.Spec{Name: "docs-2024", Dimension: 768})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Metric() != domcol.MetricCosine {
		t.Errorf("expected cosine, got %q", col.Metric())
	}
	if col.VectorCount() != 0 || col.DocumentCount() != 0 {
		t.Errorf("expected zero counters, got %d/%d", col.VectorCount(), col.DocumentCount())
	}
}

func TestCreate_DefaultMetricOverride(t *testing.T) {
	svc := newTestService(t).WithDefaultMetric(domcol.MetricDotProduct)

	col, err := svc.Create(context.Background(), domcol.Spec{Name: "dots", Dimension: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Metric() != domcol.MetricDotProduct {
		t.Errorf("expected dot_product, got %q", col.Metric())
	}
}

func TestCreate_Duplicate(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)

	_, err := svc.Create(context.Background(), domcol.Spec{Name: "docs", Dimension: 3})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_InvalidSpec(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name string
		spec domcol.Spec
	}{
		{"empty name", domcol.Spec{Dimension: 3}},
		{"separator in name", domcol.Spec{Name: "a:b", Dimension: 3}},
		{"zero dimension", domcol.Spec{Name: "docs"}},
		{"bad metric", domcol.Spec{Name: "docs", Dimension: 3, Metric: "manhattan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.spec)
			if !errors.Is(err, domain.ErrInvalidSpec) {
				t.Fatalf("expected ErrInvalidSpec, got %v", err)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList_Filter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, spec := range []domcol.Spec{
		{Name: "a", Dimension: 3, Owner: "alice", Tags: []string{"prod"}},
		{Name: "b", Dimension: 3, Owner: "bob", Tags: []string{"prod"}},
		{Name: "c", Dimension: 3, Owner: "alice"},
	} {
		if _, err := svc.Create(ctx, spec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	cols, err := svc.List(ctx, domcol.Filter{Owner: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(cols))
	}

	cols, err = svc.List(ctx, domcol.Filter{Tag: "prod", Owner: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 1 || cols[0].Name() != "a" {
		t.Fatalf("expected [a], got %v", cols)
	}
}

func TestUpdateMetadata(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)
	desc := "engineering docs"

	col, err := svc.UpdateMetadata(context.Background(), "docs", domcol.Patch{Description: &desc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Description() != desc {
		t.Errorf("expected description %q, got %q", desc, col.Description())
	}
}

func TestUpdateMetadata_ImmutableDimension(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)
	dim := 4

	_, err := svc.UpdateMetadata(context.Background(), "docs", domcol.Patch{Dimension: &dim})
	if !errors.Is(err, domain.ErrImmutableField) {
		t.Fatalf("expected ErrImmutableField, got %v", err)
	}
	col, _ := svc.Get(context.Background(), "docs")
	if col.Dimension() != 3 {
		t.Errorf("dimension changed to %d", col.Dimension())
	}
}

func TestRecordVectorMapping_Counters(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs-2024", 3)
	for _, id := range []string{"a", "b", "c"} {
		mustRecord(t, svc, "docs-2024", id)
	}

	col, err := svc.Get(context.Background(), "docs-2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.VectorCount() != 3 {
		t.Errorf("expected vectorCount 3, got %d", col.VectorCount())
	}
	name, err := svc.GetCollectionFromNamespacedID(context.Background(), "docs-2024:b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "docs-2024" {
		t.Errorf("expected docs-2024, got %q", name)
	}
}

func TestRecordVectorMapping_Duplicate(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)
	key := mustRecord(t, svc, "docs", "a")

	_, err := svc.RecordVectorMapping(context.Background(), "docs", key, nil)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	col, _ := svc.Get(context.Background(), "docs")
	if col.VectorCount() != 1 {
		t.Errorf("expected vectorCount 1, got %d", col.VectorCount())
	}
}

func TestRecordVectorMapping_UnknownCollection(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordVectorMapping(context.Background(), "ghost", "ghost:a", nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordVectorMapping_WrongPrefix(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)

	_, err := svc.RecordVectorMapping(context.Background(), "docs", "other:a", nil)
	if !errors.Is(err, domain.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}

func TestRemoveVectorMapping(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)
	key := mustRecord(t, svc, "docs", "a")

	removed, err := svc.RemoveVectorMapping(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !removed {
		t.Error("expected removed=true")
	}
	removed, err = svc.RemoveVectorMapping(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Error("expected second remove to be a no-op")
	}
	col, _ := svc.Get(context.Background(), "docs")
	if col.VectorCount() != 0 {
		t.Errorf("expected vectorCount 0, got %d", col.VectorCount())
	}
}

func TestGetCollectionFromNamespacedID_Errors(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GetCollectionFromNamespacedID(context.Background(), "no-separator"); !errors.Is(err, domain.ErrMalformedKey) {
		t.Errorf("expected ErrMalformedKey, got %v", err)
	}
	if _, err := svc.GetCollectionFromNamespacedID(context.Background(), "gone:a"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_RejectNonEmpty(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)
	mustRecord(t, svc, "docs", "a")

	_, err := svc.Delete(context.Background(), "docs", domcol.DeleteRejectIfNonEmpty)
	if !errors.Is(err, domain.ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "docs"); err != nil {
		t.Fatalf("collection should survive a rejected delete: %v", err)
	}
}

func TestDelete_Cascade(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)
	a := mustRecord(t, svc, "docs", "a")
	b := mustRecord(t, svc, "docs", "b")

	keys, err := svc.Delete(context.Background(), "docs", domcol.DeleteCascade)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != a || keys[1] != b {
		t.Errorf("expected [%s %s], got %v", a, b, keys)
	}
	if _, err := svc.GetMapping(context.Background(), a); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected mapping gone, got %v", err)
	}
}

func TestDelete_Empty(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)

	keys, err := svc.Delete(context.Background(), "docs", domcol.DeleteRejectIfNonEmpty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestRecordSearchMetric_RunningAverage(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, "docs", 3)
	ctx := context.Background()

	for _, latency := range []float64{10, 20, 30} {
		if err := svc.RecordSearchMetric(ctx, "docs", latency, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	st, err := svc.CollectionStats(ctx, "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.QueriesPerDay != 3 {
		t.Errorf("expected queriesPerDay 3, got %d", st.QueriesPerDay)
	}
	if st.AvgSearchTimeMs != 20 {
		t.Errorf("expected avg 20, got %v", st.AvgSearchTimeMs)
	}

	hist, err := svc.StatsHistory(ctx, "docs", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(hist))
	}
	for i := 1; i < len(hist); i++ {
		if hist[i].Timestamp >= hist[i-1].Timestamp {
			t.Errorf("timestamps not strictly decreasing: %d then %d", hist[i-1].Timestamp, hist[i].Timestamp)
		}
	}
}

func TestRecordSearchMetric_UnknownCollection(t *testing.T) {
	svc := newTestService(t)

	err := svc.RecordSearchMetric(context.Background(), "ghost", 1, 0)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAggregateStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "a", 3)
	mustCreate(t, svc, "b", 3)
	mustRecord(t, svc, "b", "x")
	if err := svc.RecordSearchMetric(ctx, "a", 5, 0.5); err != nil {
		t.Fatalf("RecordSearchMetric: %v", err)
	}

	all, err := svc.AggregateStats(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all["a"].QueriesPerDay != 1 {
		t.Errorf("expected a.queriesPerDay 1, got %d", all["a"].QueriesPerDay)
	}
	if !all["b"].IsZero() {
		t.Errorf("expected b to have no snapshot, got timestamp %d", all["b"].Timestamp)
	}
	if all["b"].VectorCount != 1 {
		t.Errorf("expected live vectorCount 1 for b, got %d", all["b"].VectorCount)
	}

	_, err = svc.AggregateStats(ctx, []string{"a", "ghost"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAggregator_Tick(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "a", 3)
	mustCreate(t, svc, "b", 3)

	agg := NewAggregator(svc, time.Minute, 0, nil)
	agg.Tick(ctx)
	agg.Tick(ctx)

	for _, name := range []string{"a", "b"} {
		hist, err := svc.StatsHistory(ctx, name, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hist) != 2 {
			t.Errorf("%s: expected 2 snapshots, got %d", name, len(hist))
		}
	}
}

func TestPruneSnapshots_KeepsLatest(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "a", 3)
	for range 3 {
		if _, err := svc.Snapshot(ctx, "a"); err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
	}
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := svc.PruneSnapshots(ctx, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}
	hist, _ := svc.StatsHistory(ctx, "a", 10)
	if len(hist) != 1 {
		t.Errorf("expected 1 snapshot left, got %d", len(hist))
	}
}
