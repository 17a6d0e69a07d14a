package domain

import "errors"

var (
	// ErrPermissionDenied means a read handle to the process could not be opened.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRegionReadFailed means one memory region could not be read.
	ErrRegionReadFailed = errors.New("region read failed")

	// ErrPathNotFound means every candidate region was scanned without a match.
	ErrPathNotFound = errors.New("path not found")

	// ErrReportingFailed means the activity reporter returned non-success.
	ErrReportingFailed = errors.New("reporting failed")

	// ErrStaleWindow means a tracked window no longer exists.
	ErrStaleWindow = errors.New("stale window")

	// ErrNotSupported is returned by OS primitives on unsupported platforms.
	ErrNotSupported = errors.New("not supported on this platform")
)
