package api

import (
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/orgpulse/orgpulse/server/internal/alerts"
	"github.com/orgpulse/orgpulse/server/internal/analytics"
	"github.com/orgpulse/orgpulse/server/internal/store"
)

// metrics returns GET /metrics, the latest monitor report in the Prometheus
// text exposition format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var rep *store.Report
	if e, ok := h.store.Latest(); ok {
		rep = e.Report
	}
	var active []*alerts.Alert
	if h.alerts != nil {
		active = h.alerts.Active()
	}

	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.WriteHeader(http.StatusOK)
	for _, mf := range metricFamilies(rep, active) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			slog.Warn("api: write metric family", "name", mf.GetName(), "err", err)
			return
		}
	}
}

// metricFamilies converts a report into gauge families. Families with no
// samples are omitted. rep may be nil before the first monitor cycle.
func metricFamilies(rep *store.Report, active []*alerts.Alert) []*dto.MetricFamily {
	firing := 0
	for _, a := range active {
		if a.State == alerts.StateFiring {
			firing++
		}
	}

	available := 0.0
	if rep != nil {
		available = 1
	}
	out := []*dto.MetricFamily{
		gaugeFamily("orgpulse_report_available", "Whether the monitor has produced a live report.", gauge(available)),
		gaugeFamily("orgpulse_alerts_firing", "Alerts currently firing.", gauge(float64(firing))),
	}
	if rep == nil {
		return out
	}

	out = append(out,
		gaugeFamily("orgpulse_report_timestamp_seconds", "Generation time of the latest report.",
			gauge(float64(rep.GeneratedAt.UnixMilli())/1000)),
		gaugeFamily("orgpulse_headcount_filled", "Occupied role records across the organization.",
			gauge(float64(rep.Headcount.Filled))),
		gaugeFamily("orgpulse_headcount_total", "Authorized seats across the organization.",
			gauge(float64(rep.Headcount.Total))),
		gaugeFamily("orgpulse_units", "Units in the organization tree.",
			gauge(float64(rep.Summary.UnitCount))),
	)

	counts := make(map[[2]string]int)
	for _, is := range rep.Issues {
		counts[[2]string{is.Severity, is.Type}]++
	}
	var issues []*dto.Metric
	for _, sev := range []string{analytics.SeverityCritical, analytics.SeverityWarning} {
		for _, typ := range []string{analytics.TypeStaffing, analytics.TypePerformance} {
			issues = append(issues, gauge(float64(counts[[2]string{sev, typ}]), "severity", sev, "type", typ))
		}
	}
	out = append(out, gaugeFamily("orgpulse_issues", "Diagnostic issues by severity and type.", issues...))

	// Unit names need not be unique; the first unit in pre-order wins,
	// matching how performance lookups resolve names.
	seen := make(map[string]bool, len(rep.Units))
	var scores, vacancies []*dto.Metric
	for _, u := range rep.Units {
		if seen[u.Unit] {
			continue
		}
		seen[u.Unit] = true
		if u.Score != nil {
			scores = append(scores, gauge(*u.Score, "unit", u.Unit))
		}
		if u.VacancyPct != nil {
			vacancies = append(vacancies, gauge(*u.VacancyPct, "unit", u.Unit))
		}
	}
	if len(scores) > 0 {
		out = append(out, gaugeFamily("orgpulse_unit_achievement_score", "Mean metric achievement per unit.", scores...))
	}
	if len(vacancies) > 0 {
		out = append(out, gaugeFamily("orgpulse_unit_vacancy_pct", "Vacant role records over authorized seats per unit, as a percentage.", vacancies...))
	}
	return out
}

func gaugeFamily(name, help string, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: ms,
	}
}

// gauge builds one sample; labels are name/value pairs.
func gauge(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}
