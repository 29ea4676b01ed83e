// SPDX-License-Identifier: MIT

package transform

import (
	"time"

	"github.com/tourdata/actcache/internal/model"
)

// Tour-status horizon: an earliest event within 90 days means the act is on
// tour, within 270 days a tour is planned, beyond that the upstream status
// stands.
const (
	onTourHorizonDays      = 90
	tourPlannedHorizonDays = 270
)

// Status derives the canonical act status from its upcoming events. With no
// events the upstream status passes through unchanged. Comparisons are in
// UTC at day granularity; events is expected sorted by date ascending, as
// Events returns it.
func Status(events []model.Event, upstream string, today time.Time) string {
	if len(events) == 0 {
		return upstream
	}
	earliest, err := time.Parse("2006-01-02", events[0].Date)
	if err != nil {
		return upstream
	}
	day := time.Date(today.UTC().Year(), today.UTC().Month(), today.UTC().Day(), 0, 0, 0, 0, time.UTC)
	days := int(earliest.Sub(day).Hours() / 24)
	switch {
	case days <= onTourHorizonDays:
		return model.StatusOnTour
	case days <= tourPlannedHorizonDays:
		return model.StatusTourPlanned
	default:
		return upstream
	}
}
