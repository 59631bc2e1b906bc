package orgtree

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnitRecord is the serialized shape of a unit as the registry publishes it.
// Pointer fields distinguish "absent" from an explicit zero so Build can apply
// the documented defaults.
type UnitRecord struct {
	ID        int64          `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Type      string         `json:"type" yaml:"type"`
	Purpose   string         `json:"purpose" yaml:"purpose"`
	Functions []string       `json:"functions" yaml:"functions"`
	Roles     []RoleRecord   `json:"roles" yaml:"roles"`
	Metrics   []MetricRecord `json:"metrics" yaml:"metrics"`
	Children  []UnitRecord   `json:"children" yaml:"children"`
}

// RoleRecord is the serialized shape of a role.
type RoleRecord struct {
	ID       int64   `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	Grade    string  `json:"grade" yaml:"grade"`
	Count    *int    `json:"count" yaml:"count"`
	Occupant *string `json:"occupant" yaml:"occupant"`
}

// MetricRecord is the serialized shape of a metric.
type MetricRecord struct {
	ID          int64              `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	MeasureType string             `json:"measure_type" yaml:"measure_type"`
	Frequency   string             `json:"frequency" yaml:"frequency"`
	Targets     map[string]float64 `json:"targets" yaml:"targets"`
	Actuals     map[string]float64 `json:"actuals" yaml:"actuals"`
}

// Build converts the record (and its subtree) into a Unit, applying defaults:
// a role without count authorizes one seat, a role without occupant is vacant.
// Child order is preserved.
func (r UnitRecord) Build() *Unit {
	u := &Unit{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		Purpose:   r.Purpose,
		Functions: r.Functions,
		Roles:     make([]Role, 0, len(r.Roles)),
		Metrics:   make([]Metric, 0, len(r.Metrics)),
		Children:  make([]*Unit, 0, len(r.Children)),
	}
	for _, rr := range r.Roles {
		u.Roles = append(u.Roles, rr.Build())
	}
	for _, mr := range r.Metrics {
		u.Metrics = append(u.Metrics, mr.Build())
	}
	for _, cr := range r.Children {
		u.Children = append(u.Children, cr.Build())
	}
	return u
}

// Build converts the record into a Role with count and occupant defaults applied.
func (r RoleRecord) Build() Role {
	role := Role{
		ID:       r.ID,
		Title:    r.Title,
		Grade:    r.Grade,
		Count:    1,
		Occupant: Vacant,
	}
	if r.Count != nil {
		role.Count = *r.Count
	}
	if r.Occupant != nil && *r.Occupant != "" {
		role.Occupant = *r.Occupant
	}
	return role
}

// Build converts the record into a Metric. Quarter keys other than q1..q4
// are dropped.
func (r MetricRecord) Build() Metric {
	return Metric{
		ID:          r.ID,
		Name:        r.Name,
		MeasureType: r.MeasureType,
		Frequency:   r.Frequency,
		Targets:     copyQuarters(r.Targets),
		Actuals:     copyQuarters(r.Actuals),
	}
}

func copyQuarters(in map[string]float64) Quarters {
	out := make(Quarters, len(QuarterKeys))
	for _, q := range QuarterKeys {
		if v, ok := in[q]; ok {
			out[q] = v
		}
	}
	return out
}

// DecodeJSON parses a single unit document (the root of a tree) from JSON.
func DecodeJSON(data []byte) (*Unit, error) {
	var rec UnitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("orgtree: decode json: %w", err)
	}
	return rec.Build(), nil
}

// DecodeYAML parses a single unit document (the root of a tree) from YAML.
func DecodeYAML(data []byte) (*Unit, error) {
	var rec UnitRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("orgtree: decode yaml: %w", err)
	}
	return rec.Build(), nil
}
