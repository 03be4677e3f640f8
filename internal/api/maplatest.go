package api

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/poll-lab/pollboard/internal/model"
	"github.com/poll-lab/pollboard/internal/reconcile"
	"github.com/poll-lab/pollboard/internal/store"
)

const maxMapLatestLimit = 500

// MapLatestResponse carries the gated regional feed with the exclusion
// ledger summary attached.
type MapLatestResponse struct {
	AsOf           *time.Time                  `json:"as_of,omitempty"`
	Items          []model.Observation         `json:"items"`
	FilterStats    reconcile.FilterStats       `json:"filter_stats"`
	ScopeBreakdown map[model.AudienceScope]int `json:"scope_breakdown"`
}

func handleMapLatest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf, ok := parseAsOf(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid as_of timestamp")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxMapLatestLimit {
				writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
				return
			}
			limit = n
		}

		rows, err := deps.Store.ListMapLatestRows(r.Context(), store.MapLatestFilter{AsOf: asOf, Limit: limit})
		if err != nil {
			zap.L().Error("api: list map-latest rows", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "storage unavailable")
			return
		}

		result := deps.Engine.Gate.Apply(rows)

		writeJSON(w, http.StatusOK, MapLatestResponse{
			AsOf:           asOf,
			Items:          result.Kept,
			FilterStats:    result.Stats,
			ScopeBreakdown: result.ScopeBreakdown,
		})
	}
}
