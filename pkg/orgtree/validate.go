package orgtree

import (
	"errors"
	"fmt"
)

// DefaultMaxDepth bounds nesting when the caller does not configure a limit.
const DefaultMaxDepth = 64

// Validation failures. Validate wraps one of these with the offending unit.
var (
	ErrCycle         = errors.New("unit reachable more than once")
	ErrTooDeep       = errors.New("nesting exceeds maximum depth")
	ErrDuplicateName = errors.New("duplicate unit name")
	ErrUnnamed       = errors.New("unit has no name")
	ErrNegative      = errors.New("negative value")
)

// Validate checks that root is a well-formed tree: every node reachable once,
// depth at most maxDepth (root is depth 0; maxDepth <= 0 selects
// DefaultMaxDepth), unique non-empty names, no negative role counts and no
// negative metric values. A nil root is an empty organization and is valid.
//
// Validate reports the first problem found in pre-order; it never repairs.
func Validate(root *Unit, maxDepth int) error {
	if root == nil {
		return nil
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	v := &validator{
		maxDepth: maxDepth,
		seen:     make(map[*Unit]struct{}),
		names:    make(map[string]struct{}),
	}
	return v.visit(root, 0)
}

type validator struct {
	maxDepth int
	seen     map[*Unit]struct{}
	names    map[string]struct{}
}

func (v *validator) visit(u *Unit, depth int) error {
	if u == nil {
		return nil
	}
	if _, ok := v.seen[u]; ok {
		return fmt.Errorf("orgtree: %q: %w", u.Name, ErrCycle)
	}
	v.seen[u] = struct{}{}

	if depth > v.maxDepth {
		return fmt.Errorf("orgtree: %q at depth %d (max %d): %w", u.Name, depth, v.maxDepth, ErrTooDeep)
	}
	if u.Name == "" {
		return fmt.Errorf("orgtree: unit at depth %d: %w", depth, ErrUnnamed)
	}
	if _, ok := v.names[u.Name]; ok {
		return fmt.Errorf("orgtree: %q: %w", u.Name, ErrDuplicateName)
	}
	v.names[u.Name] = struct{}{}

	for _, r := range u.Roles {
		if r.Count < 0 {
			return fmt.Errorf("orgtree: %q role %q count %d: %w", u.Name, r.Title, r.Count, ErrNegative)
		}
	}
	for _, m := range u.Metrics {
		for _, q := range QuarterKeys {
			if m.Targets.Get(q) < 0 || m.Actuals.Get(q) < 0 {
				return fmt.Errorf("orgtree: %q metric %q %s: %w", u.Name, m.Name, q, ErrNegative)
			}
		}
	}

	for _, c := range u.Children {
		if err := v.visit(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
