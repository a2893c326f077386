// ABOUTME: Sentinel errors shared across the aggregation, step and reminder paths.
// ABOUTME: Callers match them with errors.Is; producers wrap them with context.
package models

import "errors"

var (
	// ErrDecodeFailure marks a date key no known format could parse.
	ErrDecodeFailure = errors.New("unparseable date key")

	// ErrFeedUnavailable marks a source feed that could not be read.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrUploadFailure marks a failed write to the steps store.
	ErrUploadFailure = errors.New("step upload failed")

	// ErrSchedulingFailure marks a trigger facility refusing a request.
	ErrSchedulingFailure = errors.New("reminder scheduling failed")

	// ErrMalformedTimestamp marks a medication time that cannot be parsed.
	ErrMalformedTimestamp = errors.New("malformed medication timestamp")

	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid medication status transition")
)
