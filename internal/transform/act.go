// SPDX-License-Identifier: MIT

// Package transform maps raw upstream documents to the canonical act
// schema. Every function here is pure and total: the same input always
// yields the same output, and malformed inputs are rejected with reasons
// instead of raised.
package transform

import (
	"strings"

	"github.com/tourdata/actcache/internal/model"
	"github.com/tourdata/actcache/internal/musicbrainz"
)

// relationKeys maps recognised MusicBrainz URL-relation types to the
// normalised keys of the canonical relations mapping. Types absent here
// are discarded (youtube and social network get special handling).
var relationKeys = map[string]string{
	"allmusic":      "allmusic",
	"bandcamp":      "bandcamp",
	"bandsintown":   "bandsintown",
	"discogs":       "discogs",
	"last.fm":       "lastfm",
	"lyrics":        "lyrics",
	"myspace":       "myspace",
	"setlistfm":     "setlistfm",
	"songkick":      "songkick",
	"soundcloud":    "soundcloud",
	"VIAF":          "viaf",
	"wikidata":      "wikidata",
	"youtube music": "youtubeMusic",
}

// socialHosts maps URL substrings of recognised social platforms to their
// relation keys. Other "social network" relations are discarded.
var socialHosts = map[string]string{
	"twitter.com":   "twitter",
	"facebook.com":  "facebook",
	"instagram.com": "instagram",
	"tiktok.com":    "tiktok",
}

// Act maps a raw MusicBrainz artist document to the canonical record, less
// events, status and updatedAt, which the enricher fills in.
func Act(raw *musicbrainz.Artist) model.Act {
	act := model.Act{
		ID:             raw.ID,
		Name:           raw.Name,
		Country:        raw.Country,
		Disambiguation: raw.Disambiguation,
		Ended:          raw.LifeSpan.End != "" || raw.LifeSpan.Ended,
		Relations:      relations(raw.Relations),
		Events:         []model.Event{},
	}
	if raw.Area != nil {
		act.Region = raw.Area.Name
	}
	return act
}

// relations reduces the raw relation list to the canonical mapping. On
// duplicate keys, last write wins.
func relations(raws []musicbrainz.Relation) map[string]string {
	out := make(map[string]string)
	for _, rel := range raws {
		switch rel.Type {
		case "youtube":
			// Ended youtube relations point at abandoned channels.
			if !rel.Ended {
				out["youtube"] = rel.URL.Resource
			}
		case "social network":
			for host, key := range socialHosts {
				if strings.Contains(rel.URL.Resource, host) {
					out[key] = rel.URL.Resource
					break
				}
			}
		default:
			if key, ok := relationKeys[rel.Type]; ok {
				out[key] = rel.URL.Resource
			}
		}
	}
	return out
}
