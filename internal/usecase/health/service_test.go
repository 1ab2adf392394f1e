package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("conn refused")

	tests := []struct {
		name      string
		catalog   error
		engine    error
		embedding error
		want      Status
		failing   string
	}{
		{name: "all healthy", want: Healthy},
		{name: "catalog down", catalog: down, want: Unhealthy, failing: ComponentCatalog},
		{name: "engine down", engine: down, want: Degraded, failing: ComponentEngine},
		{name: "embedding down", embedding: down, want: Degraded, failing: ComponentEmbedding},
		{name: "catalog and engine down", catalog: down, engine: down, want: Unhealthy, failing: ComponentCatalog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockPinger{err: tt.catalog}, &mockPinger{err: tt.engine},
				&mockEmbeddingChecker{err: tt.embedding})
			r := svc.Check(context.Background())

			if r.Status != tt.want {
				t.Errorf("expected %q, got %q", tt.want, r.Status)
			}
			if len(r.Checks) != 3 {
				t.Errorf("expected 3 checks, got %d", len(r.Checks))
			}
			if tt.failing != "" && r.Checks[tt.failing] != CheckError {
				t.Errorf("expected %s %q, got %q", tt.failing, CheckError, r.Checks[tt.failing])
			}
		})
	}
}

func TestCheck_OptionalComponents(t *testing.T) {
	svc := New(&mockPinger{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentEngine]; ok {
		t.Error("engine check should be skipped when nil")
	}
	if _, ok := r.Checks[ComponentEmbedding]; ok {
		t.Error("embedding check should be skipped when nil")
	}
}
