package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
	"github.com/orgpulse/orgpulse/server/internal/alerts"
	"github.com/orgpulse/orgpulse/server/internal/analytics"
	"github.com/orgpulse/orgpulse/server/internal/registry"
	"github.com/orgpulse/orgpulse/server/internal/store"
)

const performancePrefix = "/api/analytics/performance/"

// Handler is the HTTP handler for the analytics, report, alert and metrics
// endpoints. Analytics endpoints fetch a fresh tree from the registry on
// every request; report and metrics endpoints read the monitor's store.
type Handler struct {
	src    registry.Source
	store  *store.Store
	alerts AlertLister
	mux    *http.ServeMux
}

// New creates a Handler and registers all routes. al may be nil, in which
// case no alerts are listed.
func New(src registry.Source, st *store.Store, al AlertLister) http.Handler {
	h := &Handler{src: src, store: st, alerts: al, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/analytics/headcount", h.headcount)
	h.mux.HandleFunc("/api/analytics/diagnostics", h.diagnostics)
	h.mux.HandleFunc(performancePrefix, h.performance) // subtree, extracts {unit}
	h.mux.HandleFunc("/api/analytics/units", h.units)
	h.mux.HandleFunc("/api/analytics/summary", h.summary)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/reports", h.listReports)
	h.mux.HandleFunc("/api/v1/reports/", h.getReport) // latest or {id}
	h.mux.HandleFunc("/metrics", h.metrics)
	h.mux.HandleFunc("/healthz", h.healthz)

	return h
}

// ServeHTTP adds permissive CORS headers and answers preflight requests
// before dispatching to the route handlers.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// --- analytics --------------------------------------------------------------

// headcount returns GET /api/analytics/headcount, {filled, total}.
func (h *Handler) headcount(w http.ResponseWriter, r *http.Request) {
	root, ok := h.fetch(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, analytics.CountHeadcount(root))
}

// diagnostics returns GET /api/analytics/diagnostics, staffing and
// performance issues in pre-order. Never null.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	root, ok := h.fetch(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, analytics.Diagnostics(root))
}

// performance returns GET /api/analytics/performance/{unit}.
func (h *Handler) performance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), performancePrefix))
	if err != nil || name == "" {
		jsonErr(w, http.StatusBadRequest, "unit name required")
		return
	}

	root, ok := h.fetch(w, r)
	if !ok {
		return
	}
	rep, err := analytics.UnitPerformance(root, name)
	switch {
	case errors.Is(err, analytics.ErrNoOrganization), errors.Is(err, analytics.ErrUnitNotFound):
		jsonErr(w, http.StatusNotFound, err.Error())
	case err != nil:
		jsonErr(w, http.StatusInternalServerError, err.Error())
	default:
		jsonResp(w, http.StatusOK, rep)
	}
}

// units returns GET /api/analytics/units, one health row per unit.
func (h *Handler) units(w http.ResponseWriter, r *http.Request) {
	root, ok := h.fetch(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, analytics.Units(root))
}

// summary returns GET /api/analytics/summary.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	root, ok := h.fetch(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, analytics.Summarize(root))
}

// fetch rejects non-GET requests and loads the current tree. A nil root with
// ok == true means the registry holds no organization. On failure the error
// response has already been written.
func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) (*orgtree.Unit, bool) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}
	root, err := registry.FetchRoot(r.Context(), h.src)
	if err != nil {
		slog.Warn("api: registry fetch failed", "path", r.URL.Path, "err", err)
		jsonErr(w, http.StatusBadGateway, err.Error())
		return nil, false
	}
	return root, true
}

// --- monitor state ----------------------------------------------------------

// listAlerts returns GET /api/v1/alerts, firing alerts plus those resolved
// within the last hour, newest first.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := []*alerts.Alert{}
	if h.alerts != nil {
		out = h.alerts.Active()
	}
	jsonResp(w, http.StatusOK, out)
}

// listReports returns GET /api/v1/reports, live monitor reports oldest first.
func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries := h.store.List()
	out := make([]*store.Report, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Report)
	}
	jsonResp(w, http.StatusOK, ReportsResponse{Reports: out, Count: len(out)})
}

// getReport returns GET /api/v1/reports/latest or /api/v1/reports/{id}.
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	var (
		e  *store.Entry
		ok bool
	)
	switch id {
	case "":
		h.listReports(w, r)
		return
	case "latest":
		e, ok = h.store.Latest()
	default:
		e, ok = h.store.Get(id)
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, "report not found")
		return
	}
	jsonResp(w, http.StatusOK, e.Report)
}

// healthz returns GET /healthz for liveness probes.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthzResponse{Status: "ok", Reports: len(h.store.List())})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
