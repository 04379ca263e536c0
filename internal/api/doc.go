// Package api is the wire contract between the agent and the remote
// credential store: message types, the gRPC service description and the
// JSON codec the service is spoken with.
//
// The service is described by hand (ServiceDesc) rather than generated.
// Messages are plain Go structs encoded as JSON; the protobuf well-known
// types used by Ping travel through protojson.
package api
