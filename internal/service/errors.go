// SPDX-License-Identifier: MIT

package service

import "fmt"

// Error is a client-facing service failure with a stable token. Upstream
// internals never leak through it.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s]", e.Message, e.Code)
}

var (
	// ErrCacheUnavailable is returned while the store is unreachable and
	// probe-based recovery has not succeeded yet.
	ErrCacheUnavailable = &Error{Code: "SVC_001", Message: "cache unavailable, please retry shortly"}

	// ErrInvalidRequest is returned for an empty or malformed id list.
	ErrInvalidRequest = &Error{Code: "SVC_002", Message: "request must name at least one act id"}
)

// NotCachedError is the informational bulk-miss signal: the requested acts
// were handed to the background queue instead of being fetched inline.
type NotCachedError struct {
	Missing int
	Cached  int
}

func (e *NotCachedError) Error() string {
	return fmt.Sprintf("%d acts not cached. Background fetch initiated. Please try again in a few minutes.", e.Missing)
}
