// Package textutil holds the small text helpers shared by the extractor and
// the script assembler: Unicode normalization, rune budgets, hashtag
// canonicalization and order-preserving de-duplication.
package textutil
