package rpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
	"github.com/orgpulse/orgpulse/server/internal/analytics"
	"github.com/orgpulse/orgpulse/server/internal/registry"
)

// Server implements AnalyticsServer over a registry source. Every call
// fetches a fresh tree. Authentication is enforced by the gRPC server
// interceptor before a handler runs.
type Server struct {
	src registry.Source
}

// NewServer creates a Server reading trees from src.
func NewServer(src registry.Source) *Server {
	return &Server{src: src}
}

// Headcount returns the organization-wide headcount; {0, 0} when the
// registry holds no organization.
func (s *Server) Headcount(ctx context.Context, _ *HeadcountRequest) (*analytics.Headcount, error) {
	root, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	hc := analytics.CountHeadcount(root)
	return &hc, nil
}

// Diagnostics returns every issue in pre-order.
func (s *Server) Diagnostics(ctx context.Context, _ *DiagnosticsRequest) (*DiagnosticsResponse, error) {
	root, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return &DiagnosticsResponse{Issues: analytics.Diagnostics(root)}, nil
}

// UnitPerformance scores one unit. An empty name is InvalidArgument; a
// missing organization or unit is NotFound.
func (s *Server) UnitPerformance(ctx context.Context, req *UnitPerformanceRequest) (*analytics.UnitReport, error) {
	if req.Unit == "" {
		return nil, status.Error(codes.InvalidArgument, "unit is required")
	}
	root, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := analytics.UnitPerformance(root, req.Unit)
	if err != nil {
		if errors.Is(err, analytics.ErrNoOrganization) || errors.Is(err, analytics.ErrUnitNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &rep, nil
}

// Units returns the per-unit health table in pre-order.
func (s *Server) Units(ctx context.Context, _ *UnitsRequest) (*UnitsResponse, error) {
	root, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return &UnitsResponse{Units: analytics.Units(root)}, nil
}

func (s *Server) fetch(ctx context.Context) (*orgtree.Unit, error) {
	root, err := registry.FetchRoot(ctx, s.src)
	if err == nil {
		return root, nil
	}
	slog.Warn("rpc: registry fetch failed", "err", err)
	switch {
	case errors.Is(err, context.Canceled):
		return nil, status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return nil, status.Error(codes.Unavailable, err.Error())
	}
}
