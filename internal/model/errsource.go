// SPDX-License-Identifier: MIT

package model

import "strings"

// Error sources recorded in the update-error journal.
const (
	SourceMusicBrainz = "musicbrainz"
	SourceBandsintown = "bandsintown"
	SourceCache       = "cache"
	SourceUnknown     = "unknown"
)

// ClassifyErrorSource derives a journal source from an error message. The
// background workers swallow errors from several layers; the message text is
// the only signal that survives the trip.
func ClassifyErrorSource(err error) string {
	if err == nil {
		return SourceUnknown
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, SourceMusicBrainz) || strings.Contains(msg, "MB_"):
		return SourceMusicBrainz
	case strings.Contains(lower, SourceBandsintown):
		return SourceBandsintown
	case strings.Contains(msg, "DB_") || strings.Contains(lower, "cache"):
		return SourceCache
	default:
		return SourceUnknown
	}
}
