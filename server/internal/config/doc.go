// Package config loads the orgpulse-server configuration from the `server:`
// section of a YAML file.
//
// Config fields:
//   - LogLevel: debug | info | warn | error (default info)
//   - GRPCPort: port for the AnalyticsService (default 50051)
//   - HTTPPort: port for the REST API and WebSocket hub (default 8080)
//   - Auth: API-key authentication for incoming clients
//   - Registry: where the organization tree is read from
//     (http | file | postgres), with timeout, retries, rate limit and auth
//   - Monitor.Interval: how often the background monitor re-evaluates (default 1m)
//   - Monitor.ReportTTL: how long the last report stays live (default 5m)
//   - Alerts: threshold rules, webhooks and NATS delivery
//
// Secrets are never stored in the file: fields ending in _env name the
// environment variable that holds the value.
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on change.
package config
