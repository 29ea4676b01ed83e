// SPDX-License-Identifier: MIT

// Package enrich composes complete canonical act records from upstream
// metadata and event listings. Both the request path and the background
// workers fetch through here.
package enrich

import (
	"context"
	"regexp"
	"time"

	"github.com/tourdata/actcache/internal/bandsintown"
	"github.com/tourdata/actcache/internal/log"
	"github.com/tourdata/actcache/internal/metrics"
	"github.com/tourdata/actcache/internal/model"
	"github.com/tourdata/actcache/internal/musicbrainz"
	"github.com/tourdata/actcache/internal/transform"
)

// bandsintownURLPattern is the only accepted shape for an act's event page.
// Anything else in the bandsintown relation is treated as absent.
var bandsintownURLPattern = regexp.MustCompile(`^https?://(www\.)?bandsintown\.com/a/\d+$`)

// ActFetcher returns the raw provider-side act document.
type ActFetcher interface {
	FetchAct(ctx context.Context, id string) (*musicbrainz.Artist, error)
}

// EventFetcher returns the raw event blobs embedded in an artist page.
type EventFetcher interface {
	FetchEvents(ctx context.Context, url string) ([]bandsintown.RawEvent, error)
}

// Enricher builds canonical act records.
type Enricher struct {
	acts   ActFetcher
	events EventFetcher

	// now is the record-stamp clock; overridable in tests.
	now func() time.Time
}

// New wires an enricher over the two upstream fetchers.
func New(acts ActFetcher, events EventFetcher) *Enricher {
	return &Enricher{acts: acts, events: events, now: time.Now}
}

// Enrich assembles the full canonical record for id. Metadata failures
// always propagate. Event-listing failures propagate only when silent is
// false; background callers pass silent=true and get an eventless record
// instead.
func (e *Enricher) Enrich(ctx context.Context, id string, silent bool) (*model.Act, error) {
	logger := log.WithComponentFromContext(ctx, "enrich")
	started := e.now()

	raw, err := e.acts.FetchAct(ctx, id)
	if err != nil {
		return nil, err
	}
	act := transform.Act(raw)

	events := []model.Event{}
	if url := act.Relations["bandsintown"]; bandsintownURLPattern.MatchString(url) {
		raws, err := e.events.FetchEvents(ctx, url)
		switch {
		case err != nil && !silent:
			return nil, err
		case err != nil:
			logger.Warn().
				Err(err).
				Str("event", "enrich.events_failed").
				Str("id", id).
				Msg("event fetch failed, keeping act without events")
		default:
			var rejected []transform.Rejection
			events, rejected = transform.Events(raws, e.now())
			for _, rej := range rejected {
				metrics.RecordEventsRejected(rej.Reason)
			}
			if len(rejected) > 0 {
				logger.Debug().
					Str("event", "enrich.events_rejected").
					Str("id", id).
					Int("rejected", len(rejected)).
					Int("accepted", len(events)).
					Msg("dropped invalid upstream events")
			}
		}
	}

	act.Events = events
	act.Status = transform.Status(events, upstreamStatus(&act), e.now())
	act.UpdatedAt = model.Stamp(e.now())

	metrics.ObserveEnrichDuration(e.now().Sub(started).Seconds())
	return &act, nil
}

// upstreamStatus is the provider-side baseline used when no upcoming event
// overrides it. MusicBrainz carries no status field of its own, so the
// life-span markers stand in.
func upstreamStatus(act *model.Act) string {
	if act.Ended {
		return "ended"
	}
	return "active"
}
