package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
	"github.com/orgpulse/orgpulse/server/internal/config"
)

// fileSource reads the tree from a local document on every fetch, so edits
// show up without a restart.
type fileSource struct {
	path     string
	maxDepth int
}

func newFileSource(cfg config.RegistryConfig) *fileSource {
	return &fileSource{path: cfg.Path, maxDepth: cfg.MaxDepth}
}

// NewFileSource returns a Source over the document at path. It is what the
// CLI uses for offline evaluation.
func NewFileSource(path string, maxDepth int) Source {
	return &fileSource{path: path, maxDepth: maxDepth}
}

// FetchTree implements Source.
func (s *fileSource) FetchTree(ctx context.Context) (*orgtree.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	isJSON := strings.EqualFold(filepath.Ext(s.path), ".json")
	root, err := decodeDocument(data, isJSON)
	if err != nil {
		return nil, err
	}
	return checkTree(root, s.maxDepth)
}

// Close implements Source.
func (s *fileSource) Close() error { return nil }
