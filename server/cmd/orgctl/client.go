package main

import (
	"context"

	"github.com/orgpulse/orgpulse/server/internal/analytics"
	"github.com/orgpulse/orgpulse/server/internal/registry"
	"github.com/orgpulse/orgpulse/server/internal/rpc"
)

// orgClient answers the analytics queries, either from a running server or
// from a local org document.
type orgClient interface {
	Headcount(ctx context.Context) (analytics.Headcount, error)
	Diagnostics(ctx context.Context) ([]analytics.Issue, error)
	UnitPerformance(ctx context.Context, unit string) (analytics.UnitReport, error)
	Units(ctx context.Context) ([]analytics.UnitHealth, error)
	Close() error
}

var _ orgClient = (*rpc.Client)(nil)

// localClient evaluates a registry source in-process.
type localClient struct {
	src registry.Source
}

func newLocalClient(path string, maxDepth int) *localClient {
	return &localClient{src: registry.NewFileSource(path, maxDepth)}
}

func (c *localClient) Headcount(ctx context.Context) (analytics.Headcount, error) {
	root, err := registry.FetchRoot(ctx, c.src)
	if err != nil {
		return analytics.Headcount{}, err
	}
	return analytics.CountHeadcount(root), nil
}

func (c *localClient) Diagnostics(ctx context.Context) ([]analytics.Issue, error) {
	root, err := registry.FetchRoot(ctx, c.src)
	if err != nil {
		return nil, err
	}
	return analytics.Diagnostics(root), nil
}

func (c *localClient) UnitPerformance(ctx context.Context, unit string) (analytics.UnitReport, error) {
	root, err := registry.FetchRoot(ctx, c.src)
	if err != nil {
		return analytics.UnitReport{}, err
	}
	return analytics.UnitPerformance(root, unit)
}

func (c *localClient) Units(ctx context.Context) ([]analytics.UnitHealth, error) {
	root, err := registry.FetchRoot(ctx, c.src)
	if err != nil {
		return nil, err
	}
	return analytics.Units(root), nil
}

func (c *localClient) Close() error {
	return c.src.Close()
}
