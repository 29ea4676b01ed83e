// SPDX-License-Identifier: MIT

package musicbrainz

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound    = errors.New("musicbrainz: artist not found")
	ErrUnavailable = errors.New("musicbrainz: host unreachable or transport failure")
	ErrUpstream    = errors.New("musicbrainz: upstream error")
	ErrBadResponse = errors.New("musicbrainz: malformed response")
	ErrBadRequest  = errors.New("musicbrainz: invalid request")
	ErrTimeout     = errors.New("musicbrainz: request timed out")
)

// Error wraps the sentinel errors with operation context.
type Error struct {
	Sentinel error
	Op       string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("MB_FETCH: %s: %v", e.Op, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Source identifies this provider in the update-error journal.
func (e *Error) Source() string {
	return "musicbrainz"
}
