// Package notifications reports batch outcomes via ntfy.
//
// The topic URL comes from config.toml (or THREADCAST_NTFY_TOPIC). Without a
// topic the service is a no-op. Delivery failures are returned to the caller,
// which logs them as warnings; they never affect a run's result.
package notifications
