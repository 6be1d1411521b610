package httpapi

import (
	"net/http"
	"time"

	"hiring-signals/internal/domain"
	"hiring-signals/internal/pipeline/export"
	"hiring-signals/internal/store"
)

type LeadsHandler struct {
	DB *store.DB
}

// List serves the scored leads for the latest aggregated week, best first.
func (h LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	scores, err := h.DB.ListLeadScores(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	views := make([]LeadView, 0, len(scores))
	for _, s := range scores {
		views = append(views, leadView(s))
	}
	writeJSON(w, map[string]any{"leads": views, "count": len(views)})
}

// Trends serves the full per-company weekly history. ?company= narrows to
// one company; the value is normalized the same way ingest normalizes names,
// so "Acme Corp." and "acme corp" hit the same rows.
func (h LeadsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	stats, err := h.DB.ListCompanyStats(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	company := domain.NormalizeName(r.URL.Query().Get("company"))
	views := make([]TrendView, 0, len(stats))
	for _, s := range stats {
		if company != "" && s.CompanyNormalized != company {
			continue
		}
		views = append(views, trendView(s))
	}
	writeJSON(w, map[string]any{"trends": views, "count": len(views)})
}

// Summary serves the same shape the exporter writes to summary.json, built
// fresh from the current tables.
func (h LeadsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	scores, err := h.DB.ListLeadScores(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	stats, err := h.DB.ListCompanyStats(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, export.BuildSummary(time.Now(), scores, stats))
}
