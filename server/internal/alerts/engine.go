package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orgpulse/orgpulse/server/internal/analytics"
	"github.com/orgpulse/orgpulse/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
	deliveryTimeout   = 10 * time.Second
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert sources: a diagnostic issue or a configured threshold rule.
const (
	KindIssue = "issue"
	KindRule  = "rule"
)

// Alert represents a single alert produced by the engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Kind       string     `json:"kind"`
	Unit       string     `json:"unit"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// candidate is an alert condition that currently holds.
type candidate struct {
	rule     string
	kind     string
	unit     string
	severity string
	message  string
	value    float64
	cooldown time.Duration
}

// Engine turns diagnostic issues and threshold rules into firing and resolved
// alerts, and delivers every transition to webhooks and the publisher.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "rule:unit"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	pub     Publisher
	subject string
	client  *http.Client
	now     func() time.Time // injectable for deterministic tests
	wg      sync.WaitGroup   // in-flight deliveries
}

// New creates an Engine from the alert configuration. pub may be nil, in
// which case events are only delivered to webhooks.
func New(cfg config.AlertsConfig, pub Publisher) *Engine {
	if pub == nil {
		pub = NoopPublisher{}
	}
	subject := cfg.NATS.Subject
	if subject == "" {
		subject = config.DefaultNATSSubject
	}
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		pub:      pub,
		subject:  subject,
		client:   &http.Client{Timeout: deliveryTimeout},
		now:      time.Now,
	}
}

// SetRules replaces threshold rules and webhooks, keeping alert state.
// Alerts of rules that no longer exist resolve on the next Evaluate.
func (e *Engine) SetRules(cfg config.AlertsConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks
	slog.Info("alerts: rules updated", "rules", len(cfg.Rules), "webhooks", len(cfg.Webhooks))
}

// Evaluate compares the current diagnostics and unit rows with the active
// alerts. New conditions fire (unless their key fired within the cooldown),
// conditions that no longer hold resolve. An active alert whose severity or
// message changes is updated in place and delivered again, still firing.
// Delivery is asynchronous.
func (e *Engine) Evaluate(issues []analytics.Issue, units []analytics.UnitHealth) {
	e.mu.Lock()
	now := e.now()
	current := e.candidates(issues, units)

	var transitions []*Alert
	for key, c := range current {
		if a, ok := e.active[key]; ok {
			a.Value = c.value
			if a.Severity != c.severity || a.Message != c.message {
				a.Severity = c.severity
				a.Message = c.message
				cp := *a
				transitions = append(transitions, &cp)
			}
			continue
		}
		if last, ok := e.lastFire[key]; ok && now.Sub(last) <= c.cooldown {
			continue
		}
		a := &Alert{
			ID:       uuid.NewString(),
			RuleName: c.rule,
			Kind:     c.kind,
			Unit:     c.unit,
			Severity: c.severity,
			Message:  c.message,
			Value:    c.value,
			FiredAt:  now,
			State:    StateFiring,
		}
		e.active[key] = a
		e.lastFire[key] = now
		cp := *a
		transitions = append(transitions, &cp)
	}

	for key, a := range e.active {
		if _, ok := current[key]; ok {
			continue
		}
		resolved := now
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, key)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		cp := *a
		transitions = append(transitions, &cp)
	}
	e.mu.Unlock()

	for _, a := range transitions {
		if a.State == StateFiring {
			slog.Warn("alerts: fired",
				"rule", a.RuleName, "unit", a.Unit, "severity", a.Severity, "value", a.Value)
		} else {
			slog.Info("alerts: resolved", "rule", a.RuleName, "unit", a.Unit)
		}
		e.wg.Add(1)
		go func(a *Alert) {
			defer e.wg.Done()
			e.deliver(a)
		}(a)
	}
}

// candidates collects every condition that holds now. Caller holds e.mu.
func (e *Engine) candidates(issues []analytics.Issue, units []analytics.UnitHealth) map[string]candidate {
	out := make(map[string]candidate, len(issues))
	for _, is := range issues {
		out[is.Type+":"+is.Unit] = candidate{
			rule:     is.Type,
			kind:     KindIssue,
			unit:     is.Unit,
			severity: strings.ToLower(is.Severity),
			message:  fmt.Sprintf("%s: %s", is.Unit, is.Message),
			cooldown: defaultCooldown,
		}
	}
	for _, rule := range e.rules {
		cooldown := rule.Cooldown
		if cooldown <= 0 {
			cooldown = defaultCooldown
		}
		sev := rule.Severity
		if sev == "" {
			sev = "warning"
		}
		for _, row := range units {
			fires, value := evalCondition(rule.Condition, row)
			if !fires {
				continue
			}
			out[rule.Name+":"+row.Unit] = candidate{
				rule:     rule.Name,
				kind:     KindRule,
				unit:     row.Unit,
				severity: sev,
				message: fmt.Sprintf("[%s] %s fired on %s: %s = %.2f",
					sev, rule.Name, row.Unit, rule.Condition, value),
				value:    value,
				cooldown: cooldown,
			}
		}
	}
	return out
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FiredAt.Equal(out[j].FiredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].FiredAt.After(out[j].FiredAt)
	})
	return out
}

// Close waits for in-flight deliveries and closes the publisher.
func (e *Engine) Close() error {
	e.wg.Wait()
	return e.pub.Close()
}
