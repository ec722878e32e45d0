// Package engine executes decoded requests against the SQLite
// database and returns structured results.
//
// Execute never panics or returns an error across its boundary: every
// failure is captured and comes back as a Result with status ERROR and
// a human-readable message. The error taxonomy (parse, validation,
// execution, transaction) lives in the Code field of Error.
//
// WHERE and SET values are always bound as parameters, never
// interpolated. Table, column and ORDER BY identifiers come from the
// request verbatim; guarding those is the caller's responsibility.
//
// A single mutex serializes every Execute call so two concurrent
// TRANSACTIONs cannot interleave their BEGIN/COMMIT windows on the
// shared connection.
//
// Every executed request, success or failure, is appended to the
// operation log keyed by request_id.
package engine
