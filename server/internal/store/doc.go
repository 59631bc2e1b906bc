// Package store keeps the recent monitor reports in memory. Reports expire
// after a TTL; the newest live one is what WebSocket clients receive on
// connect and what /api/v1/reports lists.
package store
