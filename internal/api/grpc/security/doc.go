// Package security implements the gRPC transport for the security service.
//
// The service is described by a hand-written grpc.ServiceDesc whose messages
// are protobuf well-known types, so no generated code is needed. Server adapts
// the engine to that description and Client calls it from the other side.
package security
