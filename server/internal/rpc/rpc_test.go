package rpc_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
	"github.com/orgpulse/orgpulse/server/internal/analytics"
	"github.com/orgpulse/orgpulse/server/internal/auth"
	"github.com/orgpulse/orgpulse/server/internal/registry"
	"github.com/orgpulse/orgpulse/server/internal/rpc"
)

type fakeSource struct {
	root *orgtree.Unit
	err  error
}

func (f *fakeSource) FetchTree(ctx context.Context) (*orgtree.Unit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.root == nil {
		return nil, registry.ErrNoOrganization
	}
	return f.root, nil
}

func (f *fakeSource) Close() error { return nil }

func ministry() *orgtree.Unit {
	return &orgtree.Unit{
		Name:  "Ministry",
		Roles: []orgtree.Role{{Title: "Director", Count: 2, Occupant: orgtree.Vacant}},
		Children: []*orgtree.Unit{{
			Name:  "Division A",
			Roles: []orgtree.Role{{Title: "Analyst", Count: 1, Occupant: "Alice"}},
			Metrics: []orgtree.Metric{{
				Name:    "Permits",
				Targets: orgtree.Quarters{"q1": 100},
				Actuals: orgtree.Quarters{"q1": 50},
			}},
		}},
	}
}

// allowAll is a no-op interceptor that passes every call through.
func allowAll(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	return handler(ctx, req)
}

// startServer starts a gRPC server on a random loopback port and returns a
// client dialled with key.
func startServer(t *testing.T, src registry.Source, interceptor grpc.UnaryServerInterceptor, key string) *rpc.Client {
	t.Helper()

	srv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	rpc.RegisterAnalyticsServer(srv, rpc.NewServer(src))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(lis) //nolint:errcheck
	t.Cleanup(srv.Stop)

	client, err := rpc.Dial(lis.Addr().String(), "x-api-key", key)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestHeadcount(t *testing.T) {
	client := startServer(t, &fakeSource{root: ministry()}, allowAll, "")
	hc, err := client.Headcount(ctx(t))
	if err != nil {
		t.Fatalf("Headcount: %v", err)
	}
	if hc != (analytics.Headcount{Filled: 1, Total: 3}) {
		t.Errorf("headcount: got %+v, want {1 3}", hc)
	}
}

func TestDiagnostics(t *testing.T) {
	client := startServer(t, &fakeSource{root: ministry()}, allowAll, "")
	issues, err := client.Diagnostics(ctx(t))
	if err != nil {
		t.Fatalf("Diagnostics: %v", err)
	}
	want := analytics.Diagnostics(ministry())
	if len(issues) != len(want) {
		t.Fatalf("issues: got %d, want %d", len(issues), len(want))
	}
	for i := range want {
		if issues[i] != want[i] {
			t.Errorf("issues[%d]: got %+v, want %+v", i, issues[i], want[i])
		}
	}
}

func TestUnits(t *testing.T) {
	client := startServer(t, &fakeSource{root: ministry()}, allowAll, "")
	rows, err := client.Units(ctx(t))
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	if len(rows) != 2 || rows[0].Unit != "Ministry" || rows[1].Unit != "Division A" {
		t.Fatalf("rows: got %+v", rows)
	}
	if rows[1].Score == nil || *rows[1].Score != 50 {
		t.Errorf("Division A score: got %v, want 50", rows[1].Score)
	}
	if rows[0].Score != nil {
		t.Errorf("Ministry score: got %v, want nil", *rows[0].Score)
	}
}

func TestNoOrganization(t *testing.T) {
	client := startServer(t, &fakeSource{}, allowAll, "")

	hc, err := client.Headcount(ctx(t))
	if err != nil || hc != (analytics.Headcount{}) {
		t.Errorf("Headcount: got %+v, %v; want zero, nil", hc, err)
	}

	issues, err := client.Diagnostics(ctx(t))
	if err != nil || issues == nil || len(issues) != 0 {
		t.Errorf("Diagnostics: got %v, %v; want empty non-nil", issues, err)
	}

	rows, err := client.Units(ctx(t))
	if err != nil || rows == nil || len(rows) != 0 {
		t.Errorf("Units: got %v, %v; want empty non-nil", rows, err)
	}

	_, err = client.UnitPerformance(ctx(t), "Ministry")
	if code := status.Code(err); code != codes.NotFound {
		t.Errorf("UnitPerformance code: got %v, want NotFound", code)
	}
	if st, _ := status.FromError(err); st.Message() != "no organization defined" {
		t.Errorf("message: got %q", st.Message())
	}
}

func TestUnitPerformance(t *testing.T) {
	client := startServer(t, &fakeSource{root: ministry()}, allowAll, "")

	rep, err := client.UnitPerformance(ctx(t), "Division A")
	if err != nil {
		t.Fatalf("UnitPerformance: %v", err)
	}
	if rep.Unit != "Division A" || !rep.OverallScore.Valid || rep.OverallScore.Value != 50 {
		t.Errorf("report: got %+v", rep)
	}
	if rep.OverallStatus != analytics.StatusCritical || len(rep.Metrics) != 1 {
		t.Errorf("report: got %+v", rep)
	}

	rep, err = client.UnitPerformance(ctx(t), "Ministry")
	if err != nil {
		t.Fatalf("UnitPerformance Ministry: %v", err)
	}
	if rep.OverallScore.Valid || rep.OverallStatus != analytics.StatusNoData {
		t.Errorf("Ministry: got %+v, want N/A / No Data", rep)
	}
}

func TestUnitPerformance_Errors(t *testing.T) {
	client := startServer(t, &fakeSource{root: ministry()}, allowAll, "")

	tests := []struct {
		unit string
		want codes.Code
	}{
		{"Nowhere", codes.NotFound},
		{"", codes.InvalidArgument},
	}
	for _, tc := range tests {
		_, err := client.UnitPerformance(ctx(t), tc.unit)
		if code := status.Code(err); code != tc.want {
			t.Errorf("unit %q: got %v, want %v", tc.unit, code, tc.want)
		}
	}
}

func TestRegistryFailure_Unavailable(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("%w: connection refused", registry.ErrUnavailable)}
	client := startServer(t, src, allowAll, "")

	_, err := client.Headcount(ctx(t))
	if code := status.Code(err); code != codes.Unavailable {
		t.Errorf("Headcount: got %v, want Unavailable", code)
	}
	_, err = client.Diagnostics(ctx(t))
	if code := status.Code(err); code != codes.Unavailable {
		t.Errorf("Diagnostics: got %v, want Unavailable", code)
	}
}

func TestAPIKey(t *testing.T) {
	interceptor := auth.APIKeyInterceptor("apikey", "x-api-key", "secret")

	good := startServer(t, &fakeSource{root: ministry()}, interceptor, "secret")
	if _, err := good.Headcount(ctx(t)); err != nil {
		t.Fatalf("with key: %v", err)
	}

	bad := startServer(t, &fakeSource{root: ministry()}, interceptor, "wrong")
	_, err := bad.Headcount(ctx(t))
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("wrong key: got %v, want Unauthenticated", code)
	}

	none := startServer(t, &fakeSource{root: ministry()}, interceptor, "")
	_, err = none.Headcount(ctx(t))
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("no key: got %v, want Unauthenticated", code)
	}
}
