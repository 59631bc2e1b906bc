package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// APIKeyInterceptor returns a gRPC UnaryServerInterceptor that enforces API key
// authentication on every incoming call.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all calls are allowed (pass-through).
//   - Otherwise the interceptor reads the value of header from the incoming
//     gRPC metadata and compares it to key.
//   - A missing, empty, or incorrect key returns codes.Unauthenticated.
func APIKeyInterceptor(mode, header, key string) grpc.UnaryServerInterceptor {
	header = strings.ToLower(header)
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !enabled(mode, key) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		vals := md.Get(header)
		if len(vals) == 0 || !keyMatches(vals[0], key) {
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}

		return handler(ctx, req)
	}
}

// WithAPIKey returns an outgoing context carrying key under header, for
// clients of an apikey-protected server. An empty key leaves ctx unchanged.
func WithAPIKey(ctx context.Context, header, key string) context.Context {
	if key == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, strings.ToLower(header), key)
}

func enabled(mode, key string) bool {
	return mode == "apikey" && key != ""
}

func keyMatches(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
