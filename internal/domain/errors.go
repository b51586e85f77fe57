// Package domain errors.go contains sentinel errors
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	// ErrCodeEncoding indicates the deck code is not valid base64 text after
	// URL-safe normalization.
	ErrCodeEncoding = errors.New("deck code is not valid base64")
	// ErrCodeLength indicates the decoded deck code does not have the exact
	// byte length the format requires. Wrapping sites attach got/want counts.
	ErrCodeLength = errors.New("deck code has wrong length")
)
