package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
	"github.com/orgpulse/orgpulse/server/internal/config"
)

// Fetch failures. Errors returned by FetchTree wrap one of these.
var (
	// ErrNoOrganization means the registry holds no units at all.
	ErrNoOrganization = errors.New("registry: no organization defined")

	// ErrUnavailable means the registry could not be reached or refused the request.
	ErrUnavailable = errors.New("registry: unavailable")

	// ErrMalformed means the registry answered with data that is not a valid tree.
	ErrMalformed = errors.New("registry: malformed tree")
)

// Source produces organization tree snapshots.
type Source interface {
	// FetchTree returns the current root unit. It never returns a partial tree.
	FetchTree(ctx context.Context) (*orgtree.Unit, error)

	// Close releases connections held by the source.
	Close() error
}

// New returns the Source selected by cfg.Type.
func New(ctx context.Context, cfg config.RegistryConfig) (Source, error) {
	switch cfg.Type {
	case "http":
		return newHTTPSource(cfg)
	case "file":
		return newFileSource(cfg), nil
	case "postgres":
		return newPostgresSource(ctx, cfg)
	default:
		return nil, fmt.Errorf("registry: unsupported type %q", cfg.Type)
	}
}

// FetchRoot fetches a tree from src and maps ErrNoOrganization to a nil root,
// which the analytics functions treat as an empty organization.
func FetchRoot(ctx context.Context, src Source) (*orgtree.Unit, error) {
	root, err := src.FetchTree(ctx)
	if errors.Is(err, ErrNoOrganization) {
		return nil, nil
	}
	return root, err
}

// envelope is the registry's answer to GET /api/org/tree.
type envelope struct {
	RootUnit *orgtree.UnitRecord `json:"root_unit" yaml:"root_unit"`
}

// decodeEnvelopeJSON parses {"root_unit": ...}. A document without the
// root_unit key is rejected.
func decodeEnvelopeJSON(data []byte) (*orgtree.Unit, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if _, ok := probe["root_unit"]; !ok {
		return nil, fmt.Errorf("%w: missing root_unit", ErrMalformed)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.RootUnit == nil {
		return nil, ErrNoOrganization
	}
	return env.RootUnit.Build(), nil
}

// decodeDocument parses either the envelope or a bare root unit, as JSON
// when isJSON is set and YAML otherwise.
func decodeDocument(data []byte, isJSON bool) (*orgtree.Unit, error) {
	if isJSON {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if _, ok := probe["root_unit"]; ok {
			return decodeEnvelopeJSON(data)
		}
		root, err := orgtree.DecodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return root, nil
	}

	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(probe) == 0 {
		return nil, ErrNoOrganization
	}
	if _, ok := probe["root_unit"]; ok {
		var env envelope
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if env.RootUnit == nil {
			return nil, ErrNoOrganization
		}
		return env.RootUnit.Build(), nil
	}
	root, err := orgtree.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return root, nil
}

// checkTree validates root and wraps any structural problem in ErrMalformed.
func checkTree(root *orgtree.Unit, maxDepth int) (*orgtree.Unit, error) {
	if root == nil {
		return nil, ErrNoOrganization
	}
	if err := orgtree.Validate(root, maxDepth); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return root, nil
}
