// Package api defines the wire contract of the splitledger Connect
// services: message types, procedure names, handler constructors and
// typed clients. Messages travel as JSON.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is registered for the application/json content type.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

func (jsonCodec) Unmarshal(data []byte, msg any) error { return json.Unmarshal(data, msg) }

// Codec returns the JSON codec used by every handler and client in this package.
func Codec() connect.Codec { return jsonCodec{} }

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec())}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec())}, opts...)
}
