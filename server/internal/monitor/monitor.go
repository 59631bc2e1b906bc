package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orgpulse/orgpulse/server/internal/analytics"
	"github.com/orgpulse/orgpulse/server/internal/registry"
	"github.com/orgpulse/orgpulse/server/internal/store"
)

// Evaluator consumes each cycle's findings. *alerts.Engine implements it.
type Evaluator interface {
	Evaluate(issues []analytics.Issue, units []analytics.UnitHealth)
}

// Notifier is told when a new report has been stored. *ws.Hub implements it.
type Notifier interface {
	Notify()
}

// Monitor periodically evaluates the whole organization and publishes the
// result as a store.Report.
type Monitor struct {
	src      registry.Source
	store    *store.Store
	eval     Evaluator
	notify   Notifier
	interval time.Duration

	now   func() time.Time // injectable for deterministic tests
	newID func() string
}

// New creates a Monitor. eval and notify may be nil.
func New(src registry.Source, st *store.Store, eval Evaluator, notify Notifier, interval time.Duration) *Monitor {
	return &Monitor{
		src:      src,
		store:    st,
		eval:     eval,
		notify:   notify,
		interval: interval,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// RunOnce fetches the tree, builds a report and publishes it. A registry
// without an organization yields an empty report. On a fetch failure
// nothing is published and alert state is left untouched.
func (m *Monitor) RunOnce(ctx context.Context) (*store.Report, error) {
	root, err := registry.FetchRoot(ctx, m.src)
	if err != nil {
		return nil, fmt.Errorf("monitor: fetch tree: %w", err)
	}

	issues := analytics.Diagnostics(root)
	units := analytics.Units(root)
	rep := &store.Report{
		ID:          m.newID(),
		GeneratedAt: m.now().UTC(),
		Summary:     analytics.SummarizeIssues(root, issues),
		Headcount:   analytics.CountHeadcount(root),
		Issues:      issues,
		Units:       units,
	}

	m.store.Put(rep)
	if m.eval != nil {
		m.eval.Evaluate(issues, units)
	}
	if m.notify != nil {
		m.notify.Notify()
	}
	return rep, nil
}

// Run evaluates immediately and then every interval until ctx is cancelled.
// Each cycle is bounded by the interval.
func (m *Monitor) Run(ctx context.Context) {
	slog.Info("monitor: started", "interval", m.interval)
	m.cycle(ctx)

	t := time.NewTicker(m.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.cycle(ctx)
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	start := m.now()
	rep, err := m.RunOnce(cctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("monitor: cycle failed", "err", err)
		}
		return
	}
	slog.Debug("monitor: report published",
		"id", rep.ID,
		"status", rep.Summary.OverallStatus,
		"units", rep.Summary.UnitCount,
		"issues", rep.Summary.IssueCount,
		"took", m.now().Sub(start),
	)
}
