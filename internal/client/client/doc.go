// Package client talks to the remote credential store.
//
// Client is the transport-agnostic contract used by the session manager and
// the message router; GRPCClient implements it over gRPC with the JSON codec
// from package api. The session token is attached as "access_token" request
// metadata by a unary interceptor.
//
// Failures are mapped onto sentinel errors matchable with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrConflict and ErrRejected.
package client
