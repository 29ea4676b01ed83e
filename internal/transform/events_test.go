// SPDX-License-Identifier: MIT

package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourdata/actcache/internal/bandsintown"
)

var today = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func TestEvents_Accepted(t *testing.T) {
	raws := []bandsintown.RawEvent{
		{
			Name:      "Nirvana at Astoria",
			StartDate: "2026-04-01T20:00:00+01:00",
			URL:       "https://www.bandsintown.com/e/1",
			Location: bandsintown.RawLocation{
				Name:    "Astoria",
				Address: &bandsintown.RawAddress{AddressLocality: "London", AddressCountry: "United Kingdom"},
				Geo:     &bandsintown.RawGeo{Latitude: 51.5, Longitude: -0.13},
			},
		},
	}

	events, rejected := Events(raws, today)
	require.Len(t, events, 1)
	assert.Empty(t, rejected)

	e := events[0]
	assert.Equal(t, "Nirvana at Astoria", e.Name)
	assert.Equal(t, "2026-04-01", e.Date)
	assert.Equal(t, "20:00", e.LocalTime)
	assert.Equal(t, "https://www.bandsintown.com/e/1", e.URL)
	assert.Equal(t, "Astoria", e.Location.Address.Venue)
	assert.Equal(t, "London", e.Location.Address.City)
	assert.Equal(t, "United Kingdom", e.Location.Address.Country)
	require.NotNil(t, e.Location.Geo)
	assert.InDelta(t, 51.5, e.Location.Geo.Lat, 0.001)
}

func TestEvents_DateOnlyHasNoLocalTime(t *testing.T) {
	events, _ := Events([]bandsintown.RawEvent{{Name: "X", StartDate: "2026-05-01"}}, today)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].LocalTime)
}

func TestEvents_Rejections(t *testing.T) {
	raws := []bandsintown.RawEvent{
		{StartDate: "2026-05-01"},
		{Name: "no date"},
		{Name: "bad date", StartDate: "May 1st"},
		{Name: "yesterday", StartDate: "2026-03-09"},
	}

	events, rejected := Events(raws, today)
	assert.Empty(t, events)
	require.Len(t, rejected, 4)
	assert.Equal(t, ReasonMissingName, rejected[0].Reason)
	assert.Equal(t, ReasonMissingDate, rejected[1].Reason)
	assert.Equal(t, ReasonUnparseableDate, rejected[2].Reason)
	assert.Equal(t, ReasonPastEvent, rejected[3].Reason)
	assert.Equal(t, "yesterday", rejected[3].Name)
}

func TestEvents_TodayIsKept(t *testing.T) {
	events, rejected := Events([]bandsintown.RawEvent{{Name: "tonight", StartDate: "2026-03-10"}}, today)
	assert.Len(t, events, 1)
	assert.Empty(t, rejected, "same-day events are upcoming, not past")
}

func TestEvents_SortedAscending(t *testing.T) {
	raws := []bandsintown.RawEvent{
		{Name: "later", StartDate: "2026-06-01"},
		{Name: "sooner", StartDate: "2026-04-01"},
		{Name: "middle", StartDate: "2026-05-01"},
	}
	events, _ := Events(raws, today)
	require.Len(t, events, 3)
	assert.Equal(t, "sooner", events[0].Name)
	assert.Equal(t, "middle", events[1].Name)
	assert.Equal(t, "later", events[2].Name)
}

func TestEvents_NoOffsetTimestamp(t *testing.T) {
	events, _ := Events([]bandsintown.RawEvent{{Name: "X", StartDate: "2026-04-01T19:30:00"}}, today)
	require.Len(t, events, 1)
	assert.Equal(t, "2026-04-01", events[0].Date)
	assert.Equal(t, "19:30", events[0].LocalTime)
}

func TestStatus(t *testing.T) {
	at := func(days int) []bandsintown.RawEvent {
		return []bandsintown.RawEvent{{Name: "X", StartDate: today.AddDate(0, 0, days).Format("2006-01-02")}}
	}

	tests := []struct {
		name     string
		days     int
		upstream string
		want     string
	}{
		{"within on-tour horizon", 10, "active", "on tour"},
		{"on-tour boundary", 90, "active", "on tour"},
		{"within planned horizon", 200, "active", "tour planned"},
		{"planned boundary", 270, "active", "tour planned"},
		{"beyond planned horizon", 300, "active", "active"},
		{"beyond planned horizon ended", 300, "ended", "ended"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, _ := Events(at(tt.days), today)
			require.Len(t, events, 1)
			assert.Equal(t, tt.want, Status(events, tt.upstream, today))
		})
	}
}

func TestStatus_NoEventsPassesUpstreamThrough(t *testing.T) {
	assert.Equal(t, "ended", Status(nil, "ended", today))
	assert.Equal(t, "active", Status(nil, "active", today))
}

func TestStatus_UsesEarliestEvent(t *testing.T) {
	raws := []bandsintown.RawEvent{
		{Name: "far", StartDate: today.AddDate(0, 0, 300).Format("2006-01-02")},
		{Name: "near", StartDate: today.AddDate(0, 0, 5).Format("2006-01-02")},
	}
	events, _ := Events(raws, today)
	assert.Equal(t, "on tour", Status(events, "active", today))
}
