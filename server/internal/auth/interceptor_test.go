package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// passHandler is a grpc.UnaryHandler that returns ("ok", nil).
func passHandler(ctx context.Context, req any) (any, error) {
	return "ok", nil
}

func callWithKey(t *testing.T, interceptor grpc.UnaryServerInterceptor, header, key string) (any, error) {
	t.Helper()
	ctx := context.Background()
	if key != "" {
		ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(header, key))
	}
	return interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/orgpulse.v1.AnalyticsService/Headcount"}, passHandler)
}

// --- gRPC interceptor -------------------------------------------------------

func TestAPIKeyInterceptor(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		cfgKey   string
		header   string
		sent     string
		wantCode codes.Code
	}{
		{"mode none passes without key", "none", "secret", "x-api-key", "", codes.OK},
		{"empty configured key passes", "apikey", "", "x-api-key", "", codes.OK},
		{"correct key passes", "apikey", "supersecret", "x-api-key", "supersecret", codes.OK},
		{"wrong key rejected", "apikey", "supersecret", "x-api-key", "wrong", codes.Unauthenticated},
		{"prefix of key rejected", "apikey", "supersecret", "x-api-key", "super", codes.Unauthenticated},
		{"custom header", "apikey", "mytoken", "x-org-token", "mytoken", codes.OK},
		{"mixed case header config", "apikey", "mytoken", "X-Org-Token", "mytoken", codes.OK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			i := APIKeyInterceptor(tc.mode, tc.header, tc.cfgKey)
			// metadata.Pairs lowercases keys, matching what the transport delivers.
			res, err := callWithKey(t, i, tc.header, tc.sent)
			if code := status.Code(err); code != tc.wantCode {
				t.Fatalf("code: got %v, want %v", code, tc.wantCode)
			}
			if tc.wantCode == codes.OK && res != "ok" {
				t.Errorf("result: got %v, want ok", res)
			}
		})
	}
}

func TestAPIKeyInterceptor_MissingHeader_Unauthenticated(t *testing.T) {
	i := APIKeyInterceptor("apikey", "x-api-key", "supersecret")
	ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{})
	_, err := i(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("code: got %v, want Unauthenticated", code)
	}
}

func TestAPIKeyInterceptor_NoMetadata_Unauthenticated(t *testing.T) {
	i := APIKeyInterceptor("apikey", "x-api-key", "supersecret")
	_, err := i(context.Background(), nil, &grpc.UnaryServerInfo{}, passHandler)
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("code: got %v, want Unauthenticated", code)
	}
}

func TestWithAPIKey(t *testing.T) {
	ctx := WithAPIKey(context.Background(), "X-API-Key", "k1")
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("no outgoing metadata")
	}
	if got := md.Get("x-api-key"); len(got) != 1 || got[0] != "k1" {
		t.Errorf("x-api-key: got %v, want [k1]", got)
	}

	if _, ok := metadata.FromOutgoingContext(WithAPIKey(context.Background(), "x-api-key", "")); ok {
		t.Error("empty key should not attach metadata")
	}
}

// --- HTTP middleware --------------------------------------------------------

func serve(t *testing.T, h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMiddleware_Disabled_PassesThrough(t *testing.T) {
	for _, mode := range []string{"none", ""} {
		h := Middleware(mode, "X-API-Key", "secret")(okHandler)
		if rec := serve(t, h, http.MethodGet, "/api/analytics/headcount", nil); rec.Code != http.StatusOK {
			t.Errorf("mode %q: status got %d, want 200", mode, rec.Code)
		}
	}
	h := Middleware("apikey", "X-API-Key", "")(okHandler)
	if rec := serve(t, h, http.MethodGet, "/api/analytics/headcount", nil); rec.Code != http.StatusOK {
		t.Errorf("empty key: status got %d, want 200", rec.Code)
	}
}

func TestMiddleware_Enforced(t *testing.T) {
	h := Middleware("apikey", "X-API-Key", "secret", "/healthz")(okHandler)

	tests := []struct {
		name   string
		method string
		target string
		hdr    map[string]string
		want   int
	}{
		{"header key", http.MethodGet, "/api/analytics/units", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"query key", http.MethodGet, "/ws/stream?api_key=secret", nil, http.StatusOK},
		{"missing key", http.MethodGet, "/api/analytics/units", nil, http.StatusUnauthorized},
		{"wrong key", http.MethodGet, "/api/analytics/units", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"open path", http.MethodGet, "/healthz", nil, http.StatusOK},
		{"preflight", http.MethodOptions, "/api/analytics/units", nil, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, h, tc.method, tc.target, tc.hdr)
			if rec.Code != tc.want {
				t.Fatalf("status: got %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized {
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("content-type: got %q", ct)
				}
				if body := rec.Body.String(); body != "{\"error\":\"invalid api key\"}\n" {
					t.Errorf("body: got %q", body)
				}
			}
		})
	}
}
