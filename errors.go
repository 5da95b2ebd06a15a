package kbioreg

import "errors"

// Error kinds surfaced by the query driver. RegexParse and IndexLoad are
// fatal to the query; Cancelled unwinds cleanly; per-bin verification I/O
// failures are not errors of the query and are reported in the result's
// Unverified map instead.
var (
	ErrRegexParse = errors.New("malformed postfix expression")
	ErrIndexLoad  = errors.New("index load failed")
	ErrCancelled  = errors.New("query cancelled")
)
