package api

import (
	"github.com/orgpulse/orgpulse/server/internal/alerts"
	"github.com/orgpulse/orgpulse/server/internal/store"
)

// AlertLister is the part of the alerts engine the API reads.
type AlertLister interface {
	Active() []*alerts.Alert
}

// HealthzResponse is the payload for GET /healthz.
type HealthzResponse struct {
	Status  string `json:"status"`
	Reports int    `json:"reports"`
}

// ReportsResponse is the payload for GET /api/v1/reports.
type ReportsResponse struct {
	Reports []*store.Report `json:"reports"`
	Count   int             `json:"count"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
