// SPDX-License-Identifier: MIT

package store

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound        = errors.New("cache: record not found")
	ErrUnavailable     = errors.New("cache: backend unreachable")
	ErrTimeout         = errors.New("cache: operation timed out")
	ErrNotAcknowledged = errors.New("cache: write not acknowledged")
)

// Stable operation codes carried on every store error.
const (
	CodeConnect      = "DB_001"
	CodePing         = "DB_002"
	CodeGet          = "DB_003"
	CodeDecode       = "DB_004"
	CodePut          = "DB_005"
	CodeIncrement    = "DB_006"
	CodeProbeWrite   = "DB_007"
	CodeProbeDelete  = "DB_008"
	CodeListIDs      = "DB_009"
	CodeListStamps   = "DB_010"
	CodeListNoBIT    = "DB_011"
	CodeTouch        = "DB_012"
	CodeEvictFind    = "DB_013"
	CodeEvictDelete  = "DB_014"
	CodeClear        = "DB_015"
	CodeLogError     = "DB_016"
	CodeRecentErrors = "DB_017"
	CodeEnsureIndex  = "DB_018"
)

// Error wraps a sentinel with the failing operation's stable code.
type Error struct {
	Sentinel error
	Code     string
	Op       string
	Err      error // nested driver-level error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("cache: %s [%s]: %v", e.Op, e.Code, e.Sentinel)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

func newError(sentinel error, code, op string, err error) *Error {
	return &Error{Sentinel: sentinel, Code: code, Op: op, Err: err}
}
