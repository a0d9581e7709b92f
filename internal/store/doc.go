// Package store provides SQLite-backed storage for evaluation runs.
//
// Two tables:
//   - eval_runs: one row per evaluation run, with its summary metrics and
//     the canonical JSON of the configuration it ran with
//   - eval_cases: one row per evaluated sample, keyed by (run_id, seq)
//
// # Ordering
//
// Cases are always read ORDER BY seq ASC, so a stored run reads back in the
// order its samples appeared in the input file. Runs are listed by id; run IDs
// are UUIDv7 and sort by creation time.
//
// # Idempotency
//
// Writing a run or case that already exists replaces it. Re-running an
// evaluation under the same run ID overwrites its results.
//
// # Connection
//
// Pragmas are set through go-sqlite3 DSN parameters: WAL journaling,
// synchronous=NORMAL, a 5 second busy timeout and enforced foreign keys, so
// deleting a run deletes its cases.
package store
