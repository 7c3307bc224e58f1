// Package api exposes reconciled plans over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/plan"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/plancache"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/status"
)

// Planner is the part of plan.Service the API uses.
type Planner interface {
	Load(ctx context.Context, year string, opts plan.LoadOptions) *model.CacheEntry
	Item(ctx context.Context, year, id string) (*model.PlanItem, bool)
	LinkCase(ctx context.Context, year, id string, req plan.LinkRequest) error
	SetTeam(ctx context.Context, year, id string, members []string, identified bool) error
	AddManualItem(ctx context.Context, year string, in plan.ManualItemInput) (model.PlanItem, error)
	Cache() *plancache.Cache
}

// Server routes API requests to a Planner.
type Server struct {
	planner Planner
	origins []string
	now     func() time.Time
}

// NewServer creates a Server. allowedOrigins configures CORS; empty allows any origin.
func NewServer(p Planner, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{planner: p, origins: allowedOrigins, now: time.Now}
}

// AnnotatedItem is a plan item with its read-time classifications.
type AnnotatedItem struct {
	model.PlanItem
	Annotation status.Annotation `json:"annotation"`
}

// PlanResponse is the body of GET /api/plans/{year}.
type PlanResponse struct {
	Year          string              `json:"year"`
	Source        model.Source        `json:"source"`
	LastSyncLabel string              `json:"last_sync"`
	Metadata      *model.PlanMetadata `json:"metadata"`
	Items         []AnnotatedItem     `json:"items"`
}

type teamRequest struct {
	Members    []string `json:"members"`
	Identified bool     `json:"identified"`
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/api/plans/{year}", func(r chi.Router) {
		r.Get("/", s.getPlan)
		r.Get("/flow", s.getFlow)
		r.Post("/manual", s.addManual)
		r.Delete("/cache", s.dropCache)
		r.Route("/items/{id}", func(r chi.Router) {
			r.Get("/", s.getItem)
			r.Post("/link", s.linkCase)
			r.Put("/team", s.setTeam)
		})
	})
	return r
}

// health reports the cache state. With ?year=, it also tells whether that year is cached.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status": "ok",
		"cache":  s.planner.Cache().Stats(),
	}
	if year := r.URL.Query().Get("year"); year != "" {
		body["cached"] = s.planner.Cache().Has(year)
	}
	writeJSON(w, http.StatusOK, body)
}

// dropCache forgets the in-process entry of a year; the next read reloads every tier.
func (s *Server) dropCache(w http.ResponseWriter, r *http.Request) {
	s.planner.Cache().Invalidate(chi.URLParam(r, "year"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	year := chi.URLParam(r, "year")
	entry := s.planner.Load(r.Context(), year, plan.LoadOptions{Force: r.URL.Query().Get("refresh") == "true"})

	now := s.now()
	items := make([]AnnotatedItem, len(entry.Items))
	for i, it := range entry.Items {
		items[i] = AnnotatedItem{PlanItem: it, Annotation: status.Annotate(it, now)}
	}
	writeJSON(w, http.StatusOK, PlanResponse{
		Year:          year,
		Source:        entry.Source,
		LastSyncLabel: entry.LastSyncLabel,
		Metadata:      entry.Metadata,
		Items:         items,
	})
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	entry := s.planner.Load(r.Context(), chi.URLParam(r, "year"), plan.LoadOptions{})
	writeJSON(w, http.StatusOK, status.Flow(entry.Items))
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	item, ok := s.planner.Item(r.Context(), chi.URLParam(r, "year"), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, AnnotatedItem{PlanItem: *item, Annotation: status.Annotate(*item, s.now())})
}

func (s *Server) linkCase(w http.ResponseWriter, r *http.Request) {
	var req plan.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	year, id := chi.URLParam(r, "year"), chi.URLParam(r, "id")
	if err := s.planner.LinkCase(r.Context(), year, id, req); err != nil {
		writeWriteError(w, err)
		return
	}
	s.getItem(w, r)
}

func (s *Server) setTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	year, id := chi.URLParam(r, "year"), chi.URLParam(r, "id")
	if err := s.planner.SetTeam(r.Context(), year, id, req.Members, req.Identified); err != nil {
		writeWriteError(w, err)
		return
	}
	s.getItem(w, r)
}

func (s *Server) addManual(w http.ResponseWriter, r *http.Request) {
	var in plan.ManualItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.planner.AddManualItem(r.Context(), chi.URLParam(r, "year"), in)
	if err != nil {
		writeWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AnnotatedItem{PlanItem: item, Annotation: status.Annotate(item, s.now())})
}

func writeWriteError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, plan.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case eris.Is(err, plan.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, "override store unavailable")
		return
	}
	zap.L().Error("api: write failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "write failed")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
