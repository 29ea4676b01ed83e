// SPDX-License-Identifier: MIT

package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourdata/actcache/internal/bandsintown"
	"github.com/tourdata/actcache/internal/musicbrainz"
)

type fakeActs struct {
	artist *musicbrainz.Artist
	err    error
	calls  int
}

func (f *fakeActs) FetchAct(ctx context.Context, id string) (*musicbrainz.Artist, error) {
	f.calls++
	return f.artist, f.err
}

type fakeEvents struct {
	raws  []bandsintown.RawEvent
	err   error
	calls int
	url   string
}

func (f *fakeEvents) FetchEvents(ctx context.Context, url string) ([]bandsintown.RawEvent, error) {
	f.calls++
	f.url = url
	return f.raws, f.err
}

var fixedNow = time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

func newTestEnricher(acts *fakeActs, events *fakeEvents) *Enricher {
	e := New(acts, events)
	e.now = func() time.Time { return fixedNow }
	return e
}

func artistWithPage(url string) *musicbrainz.Artist {
	return &musicbrainz.Artist{
		ID:   "a1",
		Name: "Nirvana",
		Relations: []musicbrainz.Relation{
			{Type: "bandsintown", URL: musicbrainz.RelationURL{Resource: url}},
		},
	}
}

func TestEnrich_FullRecord(t *testing.T) {
	acts := &fakeActs{artist: artistWithPage("https://www.bandsintown.com/a/123")}
	events := &fakeEvents{raws: []bandsintown.RawEvent{
		{Name: "Show", StartDate: "2026-04-01T20:00:00+01:00"},
	}}

	act, err := newTestEnricher(acts, events).Enrich(context.Background(), "a1", false)
	require.NoError(t, err)

	assert.Equal(t, "https://www.bandsintown.com/a/123", events.url)
	require.Len(t, act.Events, 1)
	assert.Equal(t, "Show", act.Events[0].Name)
	assert.Equal(t, "on tour", act.Status, "an event 22 days out puts the act on tour")
	assert.Equal(t, "2026-03-10 12:00:00+01:00", act.UpdatedAt)
}

func TestEnrich_NoEventPage(t *testing.T) {
	acts := &fakeActs{artist: &musicbrainz.Artist{ID: "a1", Name: "X"}}
	events := &fakeEvents{}

	act, err := newTestEnricher(acts, events).Enrich(context.Background(), "a1", false)
	require.NoError(t, err)
	assert.Zero(t, events.calls, "no bandsintown relation means no event fetch")
	assert.NotNil(t, act.Events)
	assert.Empty(t, act.Events)
	assert.Equal(t, "active", act.Status)
}

func TestEnrich_RejectsNonCanonicalPageURL(t *testing.T) {
	urls := []string{
		"https://www.bandsintown.com/nirvana",
		"https://www.bandsintown.com/a/123/extra",
		"https://evil.example/a/123",
		"ftp://www.bandsintown.com/a/123",
	}
	for _, u := range urls {
		events := &fakeEvents{}
		_, err := newTestEnricher(&fakeActs{artist: artistWithPage(u)}, events).
			Enrich(context.Background(), "a1", false)
		require.NoError(t, err)
		assert.Zero(t, events.calls, "url %q must not be fetched", u)
	}
}

func TestEnrich_MetadataFailureAlwaysPropagates(t *testing.T) {
	boom := errors.New("MB_FETCH: fetch act: boom")
	for _, silent := range []bool{false, true} {
		_, err := newTestEnricher(&fakeActs{err: boom}, &fakeEvents{}).
			Enrich(context.Background(), "a1", silent)
		assert.ErrorIs(t, err, boom)
	}
}

func TestEnrich_EventFailurePropagatesWhenLoud(t *testing.T) {
	boom := errors.New("bandsintown: down")
	acts := &fakeActs{artist: artistWithPage("https://www.bandsintown.com/a/123")}

	_, err := newTestEnricher(acts, &fakeEvents{err: boom}).Enrich(context.Background(), "a1", false)
	assert.ErrorIs(t, err, boom)
}

func TestEnrich_EventFailureSwallowedWhenSilent(t *testing.T) {
	boom := errors.New("bandsintown: down")
	acts := &fakeActs{artist: artistWithPage("https://www.bandsintown.com/a/123")}

	act, err := newTestEnricher(acts, &fakeEvents{err: boom}).Enrich(context.Background(), "a1", true)
	require.NoError(t, err)
	assert.NotNil(t, act.Events)
	assert.Empty(t, act.Events)
}

func TestEnrich_EndedActBaseline(t *testing.T) {
	acts := &fakeActs{artist: &musicbrainz.Artist{
		ID:       "a1",
		Name:     "X",
		LifeSpan: musicbrainz.LifeSpan{Ended: true},
	}}

	act, err := newTestEnricher(acts, &fakeEvents{}).Enrich(context.Background(), "a1", false)
	require.NoError(t, err)
	assert.True(t, act.Ended)
	assert.Equal(t, "ended", act.Status)
}
