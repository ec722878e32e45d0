// Package client is the calling side of the file-drop protocol.
//
// Each call writes a uniquely-identified request file into the shared
// requests folder and blocks until the matching response file appears
// in the responses folder or the configured timeout expires. The
// pending-call entry is registered before the request file is written,
// so a response that arrives faster than the caller reaches its wait
// can never be lost.
//
// Failed calls (timeout or remote ERROR) are retried with a fixed
// delay; each attempt sends a fresh request_id. The final error after
// exhausting retries states the attempt count and the last underlying
// error.
//
// A call's lifecycle is Pending, then exactly one of Fulfilled or
// TimedOut. A response arriving after its call timed out is deleted by
// the response watcher and otherwise ignored.
package client
