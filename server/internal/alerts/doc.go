// Package alerts turns organization health into alerts. Every diagnostic
// issue is an alert keyed by issue type and unit; configured threshold rules
// are evaluated against each unit's health row. Transitions are delivered to
// Slack, Teams, PagerDuty or generic HTTP webhooks and published on NATS.
package alerts
