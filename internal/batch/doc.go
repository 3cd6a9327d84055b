// Package batch runs the script generator over every captured thread below a
// root directory.
//
// Discovery treats each directory holding a thread_text.json as one job. A
// fixed pool of workers drains the pending jobs while a single aggregator
// goroutine owns the job list and the run statistics; workers only send it
// messages. Per-job failures are recorded and never stop the run. Only
// root-level faults (missing root, a concurrent run holding the lock, invalid
// options) are returned as errors.
package batch
