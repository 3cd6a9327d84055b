// Package runlog persists the history of batch runs in SQLite.
//
// One row per run records totals; one row per (run, job) records the latest
// status seen for each thread directory. The Store satisfies
// batch.Recorder so the orchestrator can report transitions as they happen.
// The schema is versioned; a mismatch asks the user to delete the database
// rather than migrating it.
package runlog
