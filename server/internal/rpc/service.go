package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/orgpulse/orgpulse/server/internal/analytics"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "orgpulse.v1.AnalyticsService"

// Full method names, as seen by interceptors.
const (
	MethodHeadcount       = "/" + ServiceName + "/Headcount"
	MethodDiagnostics     = "/" + ServiceName + "/Diagnostics"
	MethodUnitPerformance = "/" + ServiceName + "/UnitPerformance"
	MethodUnits           = "/" + ServiceName + "/Units"
)

// HeadcountRequest asks for the organization-wide headcount.
type HeadcountRequest struct{}

// DiagnosticsRequest asks for every staffing and performance issue.
type DiagnosticsRequest struct{}

// DiagnosticsResponse wraps the issue list. Issues is never nil.
type DiagnosticsResponse struct {
	Issues []analytics.Issue `json:"issues"`
}

// UnitPerformanceRequest names the unit to score.
type UnitPerformanceRequest struct {
	Unit string `json:"unit"`
}

// UnitsRequest asks for the per-unit health table.
type UnitsRequest struct{}

// UnitsResponse wraps the health table. Units is never nil.
type UnitsResponse struct {
	Units []analytics.UnitHealth `json:"units"`
}

// AnalyticsServer is the server API for the analytics service.
type AnalyticsServer interface {
	Headcount(context.Context, *HeadcountRequest) (*analytics.Headcount, error)
	Diagnostics(context.Context, *DiagnosticsRequest) (*DiagnosticsResponse, error)
	UnitPerformance(context.Context, *UnitPerformanceRequest) (*analytics.UnitReport, error)
	Units(context.Context, *UnitsRequest) (*UnitsResponse, error)
}

// RegisterAnalyticsServer registers srv with s.
func RegisterAnalyticsServer(s grpc.ServiceRegistrar, srv AnalyticsServer) {
	s.RegisterService(&analyticsServiceDesc, srv)
}

var analyticsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyticsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Headcount", Handler: headcountHandler},
		{MethodName: "Diagnostics", Handler: diagnosticsHandler},
		{MethodName: "UnitPerformance", Handler: unitPerformanceHandler},
		{MethodName: "Units", Handler: unitsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orgpulse/v1/analytics",
}

func headcountHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HeadcountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyticsServer).Headcount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodHeadcount}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalyticsServer).Headcount(ctx, req.(*HeadcountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func diagnosticsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DiagnosticsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyticsServer).Diagnostics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodDiagnostics}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalyticsServer).Diagnostics(ctx, req.(*DiagnosticsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func unitPerformanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UnitPerformanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyticsServer).UnitPerformance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodUnitPerformance}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalyticsServer).UnitPerformance(ctx, req.(*UnitPerformanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func unitsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UnitsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyticsServer).Units(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodUnits}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalyticsServer).Units(ctx, req.(*UnitsRequest))
	}
	return interceptor(ctx, in, info, handler)
}
