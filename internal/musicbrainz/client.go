// SPDX-License-Identifier: MIT

// Package musicbrainz fetches raw artist documents from the MusicBrainz
// web service. Responses are returned as-is; the transform layer maps them
// to the canonical schema.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public MusicBrainz API root.
	DefaultBaseURL = "https://musicbrainz.org/ws/2"

	userAgent      = "actcache/1.0 (https://github.com/tourdata/actcache)"
	defaultTimeout = 5 * time.Second
)

// Artist is the raw provider-side act document, decoded but not normalised.
type Artist struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Country        string     `json:"country"`
	Disambiguation string     `json:"disambiguation"`
	Area           *Area      `json:"area"`
	LifeSpan       LifeSpan   `json:"life-span"`
	Relations      []Relation `json:"relations"`
}

// Area is a named MusicBrainz region.
type Area struct {
	Name string `json:"name"`
}

// LifeSpan carries the act's recorded begin/end markers.
type LifeSpan struct {
	End   string `json:"end"`
	Ended bool   `json:"ended"`
}

// Relation is one URL relationship attached to the artist.
type Relation struct {
	Type  string      `json:"type"`
	Ended bool        `json:"ended"`
	URL   RelationURL `json:"url"`
}

// RelationURL holds the relation's target resource.
type RelationURL struct {
	Resource string `json:"resource"`
}

// Client is a rate-limited MusicBrainz fetcher. MusicBrainz allows one
// request per second per client; the limiter enforces that across callers.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a client against the given API root; an empty base selects
// the public MusicBrainz service.
func New(base string) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// FetchAct retrieves the raw artist document for the given MBID, including
// its URL relations.
func (c *Client) FetchAct(ctx context.Context, id string) (*Artist, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Sentinel: ErrTimeout, Op: "fetch act", Err: err}
	}

	u := fmt.Sprintf("%s/artist/%s?fmt=json&inc=url-rels", c.base, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrBadRequest, Op: "fetch act", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Sentinel: ErrUnavailable, Op: "fetch act", Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, &Error{Sentinel: ErrNotFound, Op: "fetch act", Status: res.StatusCode}
	case res.StatusCode != http.StatusOK:
		return nil, &Error{Sentinel: ErrUpstream, Op: "fetch act", Status: res.StatusCode}
	}

	var artist Artist
	if err := json.NewDecoder(res.Body).Decode(&artist); err != nil {
		return nil, &Error{Sentinel: ErrBadResponse, Op: "fetch act", Err: err}
	}
	return &artist, nil
}
