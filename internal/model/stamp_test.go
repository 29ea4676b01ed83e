// SPDX-License-Identifier: MIT

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStamp_BerlinZone(t *testing.T) {
	// Winter: UTC+1.
	winter := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-15 12:30:00+01:00", Stamp(winter))

	// Summer: UTC+2.
	summer := time.Date(2026, 7, 15, 11, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-07-15 13:30:00+02:00", Stamp(summer))
}

func TestParseStamp_RoundTrip(t *testing.T) {
	orig := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	parsed, err := ParseStamp(Stamp(orig))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(orig), "round trip should preserve the instant")
}

func TestParseStamp_Invalid(t *testing.T) {
	_, err := ParseStamp("not a stamp")
	assert.Error(t, err)

	_, err = ParseStamp("2026-01-15T12:30:00+01:00")
	assert.Error(t, err, "RFC3339 is not the cache stamp format")
}
