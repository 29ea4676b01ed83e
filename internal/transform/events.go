// SPDX-License-Identifier: MIT

package transform

import (
	"sort"
	"strings"
	"time"

	"github.com/tourdata/actcache/internal/bandsintown"
	"github.com/tourdata/actcache/internal/model"
)

// Rejection reasons attached to discarded raw events. Diagnostic only;
// never returned to clients.
const (
	ReasonMissingName     = "missing_name"
	ReasonMissingDate     = "missing_date"
	ReasonUnparseableDate = "unparseable_date"
	ReasonPastEvent       = "past_event"
)

// Rejection records why one raw event was dropped.
type Rejection struct {
	Name   string
	Reason string
}

// startDateLayouts are the shapes Bandsintown uses for startDate.
var startDateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Events maps raw JSON-LD blobs to canonical events, dropping entries with
// no name, no parseable date, or a date before today (UTC day granularity).
// Accepted events are sorted by date ascending.
func Events(raws []bandsintown.RawEvent, today time.Time) ([]model.Event, []Rejection) {
	cutoff := today.UTC().Format("2006-01-02")

	events := make([]model.Event, 0, len(raws))
	var rejected []Rejection
	for _, raw := range raws {
		if raw.Name == "" {
			rejected = append(rejected, Rejection{Reason: ReasonMissingName})
			continue
		}
		if raw.StartDate == "" {
			rejected = append(rejected, Rejection{Name: raw.Name, Reason: ReasonMissingDate})
			continue
		}
		date, localTime, ok := parseStartDate(raw.StartDate)
		if !ok {
			rejected = append(rejected, Rejection{Name: raw.Name, Reason: ReasonUnparseableDate})
			continue
		}
		// ISO dates compare correctly as strings.
		if date < cutoff {
			rejected = append(rejected, Rejection{Name: raw.Name, Reason: ReasonPastEvent})
			continue
		}

		events = append(events, model.Event{
			Name:      raw.Name,
			Date:      date,
			LocalTime: localTime,
			URL:       raw.URL,
			Location:  location(raw.Location),
		})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, rejected
}

// parseStartDate splits a JSON-LD startDate into its ISO day and, when the
// stamp carries one, the local start time.
func parseStartDate(s string) (date, localTime string, ok bool) {
	for _, layout := range startDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			date = t.Format("2006-01-02")
			if strings.Contains(s, "T") {
				localTime = t.Format("15:04")
			}
			return date, localTime, true
		}
	}
	return "", "", false
}

func location(raw bandsintown.RawLocation) model.Location {
	loc := model.Location{
		Address: model.Address{Venue: raw.Name},
	}
	if raw.Address != nil {
		loc.Address.City = raw.Address.AddressLocality
		loc.Address.Country = string(raw.Address.AddressCountry)
	}
	if raw.Geo != nil {
		loc.Geo = &model.Geo{Lat: raw.Geo.Latitude, Lon: raw.Geo.Longitude}
	}
	return loc
}
