package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// deliver sends a to the publisher and to all configured webhooks.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := e.pub.Publish(ctx, e.subject, a); err != nil {
		slog.Error("alerts: publish failed", "subject", e.subject, "rule", a.RuleName, "err", err)
	}

	e.mu.Lock()
	webhooks := e.webhooks
	e.mu.Unlock()

	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(ctx, url, a)
		case "teams":
			err = e.sendTeams(ctx, url, a)
		case "pagerduty":
			err = e.sendPagerDuty(ctx, url, a)
		case "http":
			err = e.sendHTTP(ctx, url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"rule", a.RuleName,
				"state", a.State,
			)
		}
	}
}

func (e *Engine) sendSlack(ctx context.Context, url string, a *Alert) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s%s", severityLabel(a.Severity), resolvedPrefix(a), a.Message),
	})
	return e.post(ctx, url, body)
}

func (e *Engine) sendTeams(ctx context.Context, url string, a *Alert) error {
	payload := map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("orgpulse alert: %s (%s)", a.RuleName, a.Unit),
		"text":       resolvedPrefix(a) + a.Message,
	}
	body, _ := json.Marshal(payload)
	return e.post(ctx, url, body)
}

// sendPagerDuty posts an Events API v2 style payload. The dedup key is the
// alert key so a resolve closes the incident the trigger opened.
func (e *Engine) sendPagerDuty(ctx context.Context, url string, a *Alert) error {
	action := "trigger"
	if a.State == StateResolved {
		action = "resolve"
	}
	body, _ := json.Marshal(map[string]any{
		"event_action": action,
		"dedup_key":    a.RuleName + ":" + a.Unit,
		"payload": map[string]any{
			"summary":  a.Message,
			"source":   a.Unit,
			"severity": pagerDutySeverity(a.Severity),
		},
	})
	return e.post(ctx, url, body)
}

func (e *Engine) sendHTTP(ctx context.Context, url string, a *Alert) error {
	body, _ := json.Marshal(map[string]any{"alert": a})
	return e.post(ctx, url, body)
}

func (e *Engine) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func resolvedPrefix(a *Alert) string {
	if a.State == StateResolved {
		return "RESOLVED: "
	}
	return ""
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}

func pagerDutySeverity(s string) string {
	switch s {
	case "critical", "warning":
		return s
	default:
		return "info"
	}
}
