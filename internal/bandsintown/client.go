// SPDX-License-Identifier: MIT

// Package bandsintown scrapes concert listings from Bandsintown artist
// pages. The pages embed their event data as JSON-LD script blocks; the
// client extracts and decodes those blocks without interpreting them.
package bandsintown

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	userAgent      = "actcache/1.0 (https://github.com/tourdata/actcache)"
	defaultTimeout = 5 * time.Second
)

// RawEvent is one JSON-LD event blob as embedded in the page.
type RawEvent struct {
	Type      string      `json:"@type"`
	Name      string      `json:"name"`
	StartDate string      `json:"startDate"`
	URL       string      `json:"url"`
	Location  RawLocation `json:"location"`
}

// RawLocation is the JSON-LD place attached to an event.
type RawLocation struct {
	Name    string      `json:"name"`
	Address *RawAddress `json:"address"`
	Geo     *RawGeo     `json:"geo"`
}

// RawAddress is the JSON-LD postal address. Country sometimes arrives as a
// nested object instead of a plain string.
type RawAddress struct {
	StreetAddress   string     `json:"streetAddress"`
	AddressLocality string     `json:"addressLocality"`
	AddressCountry  FlexString `json:"addressCountry"`
}

// RawGeo is the JSON-LD coordinate pair.
type RawGeo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FlexString decodes either a JSON string or an object with a "name" field.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		*f = FlexString(obj.Name)
		return nil
	}
	// Unrecognised shape, drop the value rather than the event.
	*f = ""
	return nil
}

// Client fetches Bandsintown artist pages.
type Client struct {
	http *http.Client
}

// New creates a page fetcher with the default timeout.
func New() *Client {
	return &Client{http: &http.Client{Timeout: defaultTimeout}}
}

// FetchEvents downloads the artist page at url and returns every embedded
// JSON-LD event blob. A page without parseable blocks yields an empty
// slice; only transport failures produce an error.
func (c *Client) FetchEvents(ctx context.Context, pageURL string) ([]RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrBadRequest, Op: "fetch events", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Sentinel: ErrUnavailable, Op: "fetch events", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &Error{Sentinel: ErrUpstream, Op: "fetch events", Status: res.StatusCode}
	}

	return ExtractEvents(res.Body), nil
}

// ExtractEvents tokenizes an HTML document and decodes every
// <script type="application/ld+json"> block that holds event data.
// Malformed HTML and undecodable blocks are skipped, never fatal.
func ExtractEvents(r io.Reader) []RawEvent {
	var events []RawEvent
	z := html.NewTokenizer(r)
	inLDScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return events
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			inLDScript = false
			if string(name) != "script" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "type" && string(val) == "application/ld+json" {
					inLDScript = true
				}
				if !more {
					break
				}
			}
		case html.TextToken:
			if !inLDScript {
				continue
			}
			events = append(events, decodeBlob(z.Text())...)
		default:
			inLDScript = false
		}
	}
}

// decodeBlob parses one JSON-LD payload, which may be a single event or an
// array of them. Non-event entities (breadcrumbs, organisations) are
// filtered out here so the transform layer only sees candidate events.
func decodeBlob(data []byte) []RawEvent {
	var batch []RawEvent
	if err := json.Unmarshal(data, &batch); err != nil {
		var single RawEvent
		if err := json.Unmarshal(data, &single); err != nil {
			return nil
		}
		batch = []RawEvent{single}
	}
	out := batch[:0]
	for _, e := range batch {
		if strings.Contains(e.Type, "Event") {
			out = append(out, e)
		}
	}
	return out
}
