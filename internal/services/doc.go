// Package services defines shared utilities consumed by the script pipeline,
// the batch orchestrator and the provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp batch run IDs, job paths, and correlation
//     identifiers for logging.
//   - Error markers plus the Wrap helper that classify failures into the
//     input / configuration / provider / io / parse taxonomy.
//
// Use these helpers when wiring new pipeline code so error reporting and log
// fields stay uniform between single-item and batch runs.
package services
