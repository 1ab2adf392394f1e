package chi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domcol "github.com/kailas-cloud/vecspace/internal/domain/collection"
	domsearch "github.com/kailas-cloud/vecspace/internal/domain/search"
	manageruc "github.com/kailas-cloud/vecspace/internal/usecase/manager"
)

// CreateCollection handles POST /collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	col, err := s.manager.CreateCollection(r.Context(), req.spec())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, collectionToResponse(col))
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, ok := intParam(w, q.Get("offset"), "offset", 0)
	if !ok {
		return
	}
	limit, ok := intParam(w, q.Get("limit"), "limit", defaultListLimit)
	if !ok {
		return
	}

	cols, err := s.manager.ListCollections(r.Context(), domcol.Filter{
		Owner:   q.Get("owner"),
		Tag:     q.Get("tag"),
		Privacy: domcol.Privacy(q.Get("privacy")),
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]collectionResponse, len(cols))
	for i, c := range cols {
		items[i] = collectionToResponse(c)
	}
	writeJSON(w, http.StatusOK, listResponse[collectionResponse]{Items: items})
}

// GetCollection handles GET /collections/{name}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	col, err := s.manager.GetCollection(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := collectionToResponse(col)
	st := statsToResponse(col.Stats())
	resp.Stats = &st
	writeJSON(w, http.StatusOK, resp)
}

// UpdateCollection handles PATCH /collections/{name}.
func (s *Server) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	var req patchCollectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	col, err := s.manager.UpdateCollection(r.Context(), chi.URLParam(r, "name"), req.patch())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToResponse(col))
}

// DeleteCollection handles DELETE /collections/{name}?policy=reject|cascade.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	policy, err := domcol.ParseDeletePolicy(r.URL.Query().Get("policy"), "")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.manager.DeleteCollection(r.Context(), chi.URLParam(r, "name"), policy); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InsertVector handles POST /collections/{name}/vectors.
func (s *Server) InsertVector(w http.ResponseWriter, r *http.Request) {
	var req insertVectorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := s.manager.Insert(r.Context(), manageruc.InsertRequest{
		Collection: chi.URLParam(r, "name"),
		ID:         req.ID,
		Text:       req.Text,
		Embedding:  req.Embedding,
		Metadata:   blobFromJSON(req.Metadata),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vectorResponse{
		Key:        m.VectorID(),
		ID:         m.RawID(),
		Collection: m.Collection(),
		CreatedAt:  m.CreatedAt(),
	})
}

// DeleteVector handles DELETE /collections/{name}/vectors/{id}. Deleting a missing vector succeeds.
func (s *Server) DeleteVector(w http.ResponseWriter, r *http.Request) {
	if _, err := s.manager.DeleteVector(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveKey handles GET /keys/{key}.
func (s *Server) ResolveKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	name, err := s.manager.CollectionOf(r.Context(), key)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "collection": name})
}

// CollectionStats handles GET /collections/{name}/stats?history=N.
func (s *Server) CollectionStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	history, ok := intParam(w, r.URL.Query().Get("history"), "history", 0)
	if !ok {
		return
	}

	st, err := s.manager.CollectionStats(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := collectionStatsResponse{Stats: statsToResponse(st)}

	if history > 0 {
		points, err := s.manager.StatsHistory(r.Context(), name, history)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp.History = make([]statsResponse, len(points))
		for i, p := range points {
			resp.History[i] = statsToResponse(p)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AggregateStats handles GET /stats?names=a,b.
func (s *Server) AggregateStats(w http.ResponseWriter, r *http.Request) {
	var names []string
	if raw := r.URL.Query().Get("names"); raw != "" {
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	all, err := s.manager.AggregateStats(r.Context(), names)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out := make(map[string]statsResponse, len(all))
	for name, st := range all {
		out[name] = statsToResponse(st)
	}
	writeJSON(w, http.StatusOK, out)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	k := req.K
	if k == 0 {
		k = s.defaultK
	}

	scope := domsearch.Set(req.Collections...)
	if req.All {
		scope = domsearch.AllCollections()
	}
	resp, err := s.manager.Search(r.Context(), domsearch.Request{
		Query:             req.Query,
		Embedding:         req.Embedding,
		K:                 k,
		Scope:             scope,
		IncludeCollection: req.IncludeCollection,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(resp))
}

// EnqueueMigration handles POST /migrations.
func (s *Server) EnqueueMigration(w http.ResponseWriter, r *http.Request) {
	var req migrationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	task, err := s.manager.EnqueueMigration(r.Context(), req.Source, req.Target)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/migrations/"+task.ID())
	writeJSON(w, http.StatusAccepted, taskToResponse(task))
}

// MigrationStatus handles GET /migrations/{id}.
func (s *Server) MigrationStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.manager.MigrationStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskToResponse(task))
}

// ListMigrations handles GET /migrations?limit=N.
func (s *Server) ListMigrations(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit", defaultListLimit)
	if !ok {
		return
	}
	tasks, err := s.manager.ListMigrations(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		items[i] = taskToResponse(t)
	}
	writeJSON(w, http.StatusOK, listResponse[taskResponse]{Items: items})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func intParam(w http.ResponseWriter, raw, name string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}
