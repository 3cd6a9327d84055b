// Package main hosts the threadcast CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the completion
// client for the selected provider, and hands off to the internal script and
// batch packages. Commands stay thin: they parse flags, call into internal
// packages and render results.
package main
