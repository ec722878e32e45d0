// Package watcher observes a directory for newly-appeared, fully
// written *.json files and invokes a callback at most once per
// filename for the watcher's lifetime.
//
// Detection prefers fsnotify create/write events; if the OS
// notification source cannot be established the watcher degrades to
// periodic directory listing with identical callback semantics and
// dedup guarantees, only higher latency.
//
// Writers on a shared mount are not presumed to publish atomically.
// Before a file is handed to the callback, its size is polled until
// two consecutive reads agree on a non-zero value and the content
// parses as JSON. A file that never stabilizes within the bound is
// released back for a later pass instead of being dispatched
// half-written.
//
// Callback execution is offloaded to a bounded worker pool so one slow
// consumer cannot stall detection. Callback panics are contained and
// logged; the offending file is left in place for inspection.
package watcher
