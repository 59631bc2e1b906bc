// Package rpc serves the analytics operations over gRPC as
// orgpulse.v1.AnalyticsService and provides the matching client.
//
// Messages are JSON encoded under the "json" content-subtype, so the wire
// types are the analytics package's own structs. Status codes:
//
//	NotFound         no organization, or no unit with the requested name
//	InvalidArgument  empty unit name
//	Unavailable      registry unreachable or returned a malformed tree
//	Unauthenticated  rejected by the API-key interceptor (package auth)
package rpc
