// Package api implements the HTTP REST API for orgpulse-server.
//
// New(source, store, alerts) returns an http.Handler that serves:
//
//	GET /api/analytics/headcount           {filled, total}
//	GET /api/analytics/diagnostics         [Issue], never null
//	GET /api/analytics/performance/{unit}  UnitReport; 404 if no organization or unit
//	GET /api/analytics/units               [UnitHealth] in pre-order
//	GET /api/analytics/summary             Summary
//	GET /api/v1/alerts                     firing + recently resolved alerts
//	GET /api/v1/reports                    live monitor reports, oldest first
//	GET /api/v1/reports/latest             newest report; 404 before the first cycle
//	GET /api/v1/reports/{id}               one report; 404 if unknown or stale
//	GET /metrics                           Prometheus text exposition
//	GET /healthz                           liveness
//
// Analytics endpoints fetch a fresh tree per request. A registry that cannot
// be reached or returns a malformed tree yields 502; an empty registry is an
// empty organization, not an error.
//
// All endpoints return 405 for methods other than GET and carry allow-all
// CORS headers. No external HTTP framework is used.
package api
