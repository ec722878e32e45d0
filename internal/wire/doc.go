// Package wire defines the on-disk JSON message envelopes exchanged
// through the shared folder.
//
// A Request is written by a client into the requests folder as
// {client_id}_{request_id}.json; the matching Response is written by
// the processor into the responses folder under the same name. The
// filename carries the correlation identity, the body carries the
// operation.
//
// Payloads are decoded exactly once, at the boundary, into a typed
// union (SelectPayload, InsertPayload, UpdatePayload, DeletePayload,
// SQLPayload, TransactionPayload). Code past the boundary never does
// string-keyed lookups into raw maps.
//
// Timestamps are Unix seconds as float64 to stay compatible with
// envelope files produced by older deployments.
package wire
