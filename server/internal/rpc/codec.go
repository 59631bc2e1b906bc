package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype the analytics service is served under.
// Clients select it with grpc.CallContentSubtype(CodecName).
const CodecName = "json"

// jsonCodec marshals gRPC messages as JSON. Request and response types are
// plain Go structs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
