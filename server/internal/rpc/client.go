package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/orgpulse/orgpulse/server/internal/analytics"
	"github.com/orgpulse/orgpulse/server/internal/auth"
)

// Client calls the analytics service of a running orgpulse-server.
type Client struct {
	conn   *grpc.ClientConn
	header string
	key    string
}

// Dial opens a client connection to target. When key is non-empty it is sent
// under header on every call. Without extra options the connection is
// plaintext, for local use.
func Dial(target, header, key string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", target, err)
	}
	return &Client{conn: conn, header: header, key: key}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Headcount calls AnalyticsService.Headcount.
func (c *Client) Headcount(ctx context.Context) (analytics.Headcount, error) {
	var out analytics.Headcount
	err := c.invoke(ctx, MethodHeadcount, &HeadcountRequest{}, &out)
	return out, err
}

// Diagnostics calls AnalyticsService.Diagnostics.
func (c *Client) Diagnostics(ctx context.Context) ([]analytics.Issue, error) {
	var out DiagnosticsResponse
	if err := c.invoke(ctx, MethodDiagnostics, &DiagnosticsRequest{}, &out); err != nil {
		return nil, err
	}
	if out.Issues == nil {
		out.Issues = []analytics.Issue{}
	}
	return out.Issues, nil
}

// UnitPerformance calls AnalyticsService.UnitPerformance.
func (c *Client) UnitPerformance(ctx context.Context, unit string) (analytics.UnitReport, error) {
	var out analytics.UnitReport
	err := c.invoke(ctx, MethodUnitPerformance, &UnitPerformanceRequest{Unit: unit}, &out)
	return out, err
}

// Units calls AnalyticsService.Units.
func (c *Client) Units(ctx context.Context) ([]analytics.UnitHealth, error) {
	var out UnitsResponse
	if err := c.invoke(ctx, MethodUnits, &UnitsRequest{}, &out); err != nil {
		return nil, err
	}
	if out.Units == nil {
		out.Units = []analytics.UnitHealth{}
	}
	return out.Units, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	ctx = auth.WithAPIKey(ctx, c.header, c.key)
	return c.conn.Invoke(ctx, method, in, out)
}
