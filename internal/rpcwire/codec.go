// Package rpcwire defines the wire-level message shapes for both the
// upstream import stream and the downstream subscription service, along
// with a gRPC codec for them.
//
// SPEC_FULL.md section 6 explicitly keeps the generated protobuf stub byte
// packing out of scope; this package gives the gRPC plumbing something
// concrete to marshal without depending on a protoc-generated package. It
// registers a content-subtype codec ("json") with grpc's codec registry,
// the same extension point protoc-gen-go-grpc's generated code itself is
// built on, and hand-declares the service/stream descriptors that would
// otherwise come from generated code.
package rpcwire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements google.golang.org/grpc/encoding.Codec over the
// struct types in this package.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcwire: unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return CodecName
}
