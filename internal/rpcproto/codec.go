package rpcproto

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements encoding.Codec by marshaling through encoding/json.
// Registering it under the name "proto" (grpc's built-in default content
// subtype) lets every client and server in this repo use plain Go structs
// as RPC messages without generated protoc-gen-go bindings and without
// requiring callers to pass CallContentSubtype on every invocation.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
