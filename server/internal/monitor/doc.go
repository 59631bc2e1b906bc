// Package monitor runs the periodic organization evaluation for
// orgpulse-server.
//
// Each cycle fetches a fresh tree from the registry, runs diagnostics and the
// per-unit health table, stores the result as a store.Report, feeds the
// findings to the alerts engine and notifies the WebSocket hub. The first
// cycle runs at startup.
package monitor
