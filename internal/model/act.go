// SPDX-License-Identifier: MIT

// Package model defines the canonical act schema served to clients and
// persisted in the cache, independent of any upstream provider's field names.
package model

import "time"

// Act is the canonical record for a single act, assembled by the enricher
// from MusicBrainz metadata and Bandsintown event listings.
type Act struct {
	ID             string            `json:"id" bson:"_id"`
	Name           string            `json:"name" bson:"name"`
	Country        string            `json:"country,omitempty" bson:"country,omitempty"`
	Region         string            `json:"region,omitempty" bson:"region,omitempty"`
	Disambiguation string            `json:"disambiguation,omitempty" bson:"disambiguation,omitempty"`
	Ended          bool              `json:"ended" bson:"ended"`
	Status         string            `json:"status" bson:"status"`
	Relations      map[string]string `json:"relations" bson:"relations"`
	Events         []Event           `json:"events" bson:"events"`
	UpdatedAt      string            `json:"updatedAt" bson:"updatedAt"`
}

// Event is a single upcoming concert. Date is an ISO day (YYYY-MM-DD);
// past events never appear here.
type Event struct {
	Name      string   `json:"name" bson:"name"`
	Date      string   `json:"date" bson:"date"`
	LocalTime string   `json:"localTime,omitempty" bson:"localTime,omitempty"`
	URL       string   `json:"url,omitempty" bson:"url,omitempty"`
	Location  Location `json:"location" bson:"location"`
}

// Location holds the venue address and, when the upstream listing carries
// coordinates, a geo point. Geo is nil rather than fabricated when absent.
type Location struct {
	Address Address `json:"address" bson:"address"`
	Geo     *Geo    `json:"geo" bson:"geo"`
}

// Address is the free-form venue/city/country block from the listing.
type Address struct {
	Venue   string `json:"venue,omitempty" bson:"venue,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
}

// Geo is a WGS84 coordinate pair.
type Geo struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lon float64 `json:"lon" bson:"lon"`
}

// Meta is the per-act bookkeeping record. It is persisted next to the act
// and never exposed to clients.
type Meta struct {
	ID                      string `bson:"_id"`
	LastRequestedAt         string `bson:"lastRequestedAt"`
	UpdatesSinceLastRequest int    `bson:"updatesSinceLastRequest"`
}

// ActStamp pairs an act id with its updatedAt stamp, for listings that do
// not need the full record.
type ActStamp struct {
	ID        string `json:"id" bson:"_id"`
	UpdatedAt string `json:"updatedAt" bson:"updatedAt"`
}

// UpdateError is one journaled background-update failure. Records expire
// from the journal seven days after CreatedAt.
type UpdateError struct {
	Timestamp string    `json:"timestamp" bson:"timestamp"`
	ActID     string    `json:"id" bson:"id"`
	Message   string    `json:"errorMessage" bson:"errorMessage"`
	Source    string    `json:"errorSource" bson:"errorSource"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Act status values derived from upcoming events.
const (
	StatusOnTour      = "on tour"
	StatusTourPlanned = "tour planned"
)
