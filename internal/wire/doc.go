// Package wire converts security domain types to and from protobuf well-known
// types (structpb). The same representation is used by the gRPC transport and
// by the repositories that persist state as protojson.
package wire
