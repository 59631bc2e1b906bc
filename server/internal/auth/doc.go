// Package auth provides API-key authentication for orgpulse-server.
//
// APIKeyInterceptor(mode, header, key) returns a gRPC UnaryServerInterceptor
// that validates the API key from the named gRPC metadata header.
// Middleware(mode, header, key, open...) applies the same check to HTTP
// requests, reading the header or the api_key query parameter.
//
// When mode != "apikey" or key == "", all calls pass through (useful for local
// development with auth disabled). Keys are compared in constant time.
package auth
