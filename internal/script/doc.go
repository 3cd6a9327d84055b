// Package script turns a captured discussion into a three-section short-video
// script.
//
// The pipeline is extract (flatten the thread), prompt (build the provider
// instruction), complete (call the CompletionClient), interpret (recover a
// structured object from loosely formatted provider text) and assemble
// (normalize metadata and attach warnings). Interpretation and assembly never
// fail: text that cannot be parsed becomes a degraded Document that keeps the
// raw provider output.
package script
