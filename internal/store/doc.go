// Package store provides SQLite-backed storage for the processor.
//
// The store owns two concerns:
//
//   - The operation log (sync_log): one row per executed request,
//     keyed by request_id. Writes use INSERT OR REPLACE so a duplicate
//     request_id overwrites its own prior row instead of producing a
//     second one. The log doubles as the durable dedup record the
//     processor consults for files replayed across a restart.
//
//   - Administration: schema bootstrap from a JSON schema file,
//     backups via VACUUM INTO, table/database inspection, integrity
//     checks and VACUUM.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// The connection pool is pinned to a single connection; SQLite allows
// one writer at a time and the execution engine serializes its own
// calls on top of this.
package store
