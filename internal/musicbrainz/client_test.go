// SPDX-License-Identifier: MIT

package musicbrainz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const artistBody = `{
  "id": "5b11f4ce-a62d-471e-81fc-a69a8278c7da",
  "name": "Nirvana",
  "country": "US",
  "disambiguation": "90s US grunge band",
  "area": {"name": "United States"},
  "life-span": {"end": "1994-04-05", "ended": true},
  "relations": [
    {"type": "bandsintown", "url": {"resource": "https://www.bandsintown.com/a/123"}},
    {"type": "youtube", "ended": true, "url": {"resource": "https://www.youtube.com/old"}}
  ]
}`

func TestFetchAct(t *testing.T) {
	var gotPath, gotAgent, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		assert.Equal(t, "url-rels", r.URL.Query().Get("inc"))
		_, _ = w.Write([]byte(artistBody))
	}))
	defer srv.Close()

	artist, err := New(srv.URL).FetchAct(context.Background(), "5b11f4ce-a62d-471e-81fc-a69a8278c7da")
	require.NoError(t, err)

	assert.Equal(t, "/artist/5b11f4ce-a62d-471e-81fc-a69a8278c7da", gotPath)
	assert.Equal(t, userAgent, gotAgent)
	assert.Equal(t, "application/json", gotAccept)

	assert.Equal(t, "Nirvana", artist.Name)
	assert.Equal(t, "US", artist.Country)
	require.NotNil(t, artist.Area)
	assert.Equal(t, "United States", artist.Area.Name)
	assert.True(t, artist.LifeSpan.Ended)
	require.Len(t, artist.Relations, 2)
	assert.Equal(t, "bandsintown", artist.Relations[0].Type)
	assert.Equal(t, "https://www.bandsintown.com/a/123", artist.Relations[0].URL.Resource)
	assert.True(t, artist.Relations[1].Ended)
}

func TestFetchAct_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchAct(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFetchAct_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchAct(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Contains(t, err.Error(), "MB_FETCH")
	assert.Contains(t, err.Error(), "503")
}

func TestFetchAct_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchAct(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrBadResponse))
}

func TestFetchAct_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL).FetchAct(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestNew_DefaultBase(t *testing.T) {
	c := New("")
	assert.Equal(t, DefaultBaseURL, c.base)

	c = New("https://example.test/ws/2/")
	assert.Equal(t, "https://example.test/ws/2", c.base, "trailing slash is trimmed")
}
