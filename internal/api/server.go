// Package api exposes the dashboard read surface over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/poll-lab/pollboard/internal/config"
	"github.com/poll-lab/pollboard/internal/model"
	"github.com/poll-lab/pollboard/internal/reconcile"
	"github.com/poll-lab/pollboard/internal/store"
)

// Deps are the collaborators the router serves from.
type Deps struct {
	Store  store.Store
	Engine *reconcile.Engine
}

// NewRouter builds the HTTP routing tree: health endpoint plus the
// versioned dashboard endpoints, behind CORS and a global rate limit.
func NewRouter(cfg config.ServerConfig, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.Get("/health", handleHealth)

	r.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Get("/summary", handleSummary(deps))
		r.Get("/map-latest", handleMapLatest(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseAsOf reads an optional as_of query parameter. The second return
// is false when the parameter is present but unparseable.
func parseAsOf(r *http.Request) (*time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return nil, true
	}
	t := model.ParseInstant(raw)
	if t == nil {
		return nil, false
	}
	return t, true
}
