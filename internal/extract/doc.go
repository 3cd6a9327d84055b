// Package extract flattens a captured discussion into the plain-text block
// handed to the prompt builder.
//
// The original post always comes first and is never truncated. Replies are
// appended oldest first, one whole reply at a time, until the next one would
// push the block past the rune budget.
package extract
