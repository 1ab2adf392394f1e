package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/vecspace/internal/db/memory"
	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	"github.com/kailas-cloud/vecspace/internal/domain"
	catalogrepo "github.com/kailas-cloud/vecspace/internal/repository/catalog"
	migrationrepo "github.com/kailas-cloud/vecspace/internal/repository/migration"
	"github.com/kailas-cloud/vecspace/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/vecspace/internal/usecase/health"
	manageruc "github.com/kailas-cloud/vecspace/internal/usecase/manager"
	"github.com/kailas-cloud/vecspace/internal/usecase/migration"
	"github.com/kailas-cloud/vecspace/internal/usecase/search"
)

// --- Mocks ---

type mockEmbedder struct {
	dim int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, m.dim)
	if text != "" {
		vec[int(text[0])%m.dim] = 1
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Fixture ---

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWithHealth(t, &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{healthuc.ComponentCatalog: healthuc.CheckOK},
	}})
}

func newTestServerWithHealth(t *testing.T, health HealthChecker) *httptest.Server {
	t.Helper()
	s, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	cat := catalog.New(catalogrepo.New(s))
	vectors := memory.NewStore()
	emb := &mockEmbedder{dim: 4}
	mig := migration.New(migrationrepo.New(s), cat, vectors, migration.Config{PollInterval: 10 * time.Millisecond})
	router := search.New(cat, vectors, emb, search.Config{MaxK: 100, Timeout: 5 * time.Second})
	mgr := manageruc.New(cat, vectors, router, mig, emb)

	srv := httptest.NewServer(NewServer(mgr, health, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rdr = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s",
			resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func mustCreate(t *testing.T, srv *httptest.Server, name string, dim int) {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/collections", map[string]any{"name": name, "dimension": dim})
	expectStatus(t, resp, body, http.StatusCreated)
}

func mustInsert(t *testing.T, srv *httptest.Server, col, id string, vec []float32) {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/collections/"+col+"/vectors",
		map[string]any{"id": id, "embedding": vec})
	expectStatus(t, resp, body, http.StatusCreated)
}
