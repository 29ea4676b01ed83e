// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourdata/actcache/internal/model"
	"github.com/tourdata/actcache/internal/store"
)

// faultStore wraps the in-memory backend with injectable failures.
type faultStore struct {
	*store.Memory
	mu       sync.Mutex
	getErr   error
	probeErr error
	probes   int
}

func (f *faultStore) Get(ctx context.Context, id string) (*model.Act, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Memory.Get(ctx, id)
}

func (f *faultStore) Probe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.probeErr != nil {
		return f.probeErr
	}
	return f.Memory.Probe(ctx)
}

func (f *faultStore) setGetErr(err error) {
	f.mu.Lock()
	f.getErr = err
	f.mu.Unlock()
}

func (f *faultStore) setProbeErr(err error) {
	f.mu.Lock()
	f.probeErr = err
	f.mu.Unlock()
}

type recordingQueue struct {
	mu    sync.Mutex
	added [][]string
}

func (r *recordingQueue) Add(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]string, len(ids))
	copy(cp, ids)
	r.added = append(r.added, cp)
}

func (r *recordingQueue) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, batch := range r.added {
		out = append(out, batch...)
	}
	return out
}

type stubEnricher struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (s *stubEnricher) Enrich(ctx context.Context, id string, silent bool) (*model.Act, error) {
	s.mu.Lock()
	s.calls = append(s.calls, id)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &model.Act{ID: id, Name: "filled " + id, UpdatedAt: model.Stamp(time.Now())}, nil
}

func (s *stubEnricher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestService(t *testing.T) (*Service, *faultStore, *recordingQueue, *stubEnricher) {
	t.Helper()
	fs := &faultStore{Memory: store.NewMemory()}
	q := &recordingQueue{}
	e := &stubEnricher{}
	return New(fs, q, e), fs, q, e
}

func seed(t *testing.T, fs *faultStore, acts ...model.Act) {
	t.Helper()
	for _, act := range acts {
		if act.UpdatedAt == "" {
			act.UpdatedAt = model.Stamp(time.Now())
		}
		require.NoError(t, fs.Memory.Put(context.Background(), &act))
	}
}

func TestFetchMany_AllCached(t *testing.T) {
	svc, fs, q, e := newTestService(t)
	seed(t, fs, model.Act{ID: "a", Name: "A"}, model.Act{ID: "b", Name: "B"})

	acts, err := svc.FetchMany(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "B", acts[0].Name, "results follow the request order")
	assert.Equal(t, "A", acts[1].Name)
	assert.Zero(t, e.count())
	assert.Empty(t, q.all())

	// The served ids get their request counters reset in the background.
	require.Eventually(t, func() bool {
		meta, ok := fs.Memory.Meta("a")
		return ok && meta.UpdatesSinceLastRequest == 0 && meta.LastRequestedAt != ""
	}, time.Second, time.Millisecond)
}

func TestFetchMany_DuplicateIDsCollapse(t *testing.T) {
	svc, fs, _, _ := newTestService(t)
	seed(t, fs, model.Act{ID: "a", Name: "A"})

	acts, err := svc.FetchMany(context.Background(), []string{"a", "a", "a"})
	require.NoError(t, err)
	assert.Len(t, acts, 1)
}

func TestFetchMany_SingleMissFilledInline(t *testing.T) {
	svc, fs, q, e := newTestService(t)
	seed(t, fs, model.Act{ID: "a", Name: "A"})

	acts, err := svc.FetchMany(context.Background(), []string{"a", "miss"})
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "A", acts[0].Name)
	assert.Equal(t, "filled miss", acts[1].Name)
	assert.Equal(t, 1, e.count())
	assert.Empty(t, q.all(), "a single miss never goes through the queue")

	// The inline fill is written back without blocking the response.
	require.Eventually(t, func() bool {
		act, err := fs.Memory.Get(context.Background(), "miss")
		return err == nil && act.Name == "filled miss"
	}, time.Second, time.Millisecond)
}

func TestFetchMany_SingleMissEnrichFailurePropagates(t *testing.T) {
	svc, _, _, e := newTestService(t)
	boom := errors.New("MB_FETCH: fetch act: musicbrainz: upstream error (HTTP 503)")
	e.err = boom

	_, err := svc.FetchMany(context.Background(), []string{"miss"})
	assert.ErrorIs(t, err, boom, "the upstream cause surfaces unchanged")
}

func TestFetchMany_BulkMissDeferred(t *testing.T) {
	svc, fs, q, e := newTestService(t)
	seed(t, fs, model.Act{ID: "a", Name: "A"})

	_, err := svc.FetchMany(context.Background(), []string{"a", "m1", "m2"})
	require.Error(t, err)

	var notCached *NotCachedError
	require.ErrorAs(t, err, &notCached)
	assert.Equal(t, 2, notCached.Missing)
	assert.Equal(t, 1, notCached.Cached)
	assert.Equal(t, "2 acts not cached. Background fetch initiated. Please try again in a few minutes.", notCached.Error())

	assert.ElementsMatch(t, []string{"m1", "m2"}, q.all())
	assert.Zero(t, e.count(), "bulk misses never fetch inline")
}

func TestFetchMany_StaleHitQueuedForRefresh(t *testing.T) {
	svc, fs, q, _ := newTestService(t)
	seed(t, fs, model.Act{
		ID:        "old",
		Name:      "Old",
		UpdatedAt: model.Stamp(time.Now().Add(-25 * time.Hour)),
	})

	acts, err := svc.FetchMany(context.Background(), []string{"old"})
	require.NoError(t, err, "staleness never blocks serving the cached record")
	require.Len(t, acts, 1)
	assert.Equal(t, "Old", acts[0].Name)
	assert.Equal(t, []string{"old"}, q.all())
}

func TestFetchMany_FreshHitNotQueued(t *testing.T) {
	svc, fs, q, _ := newTestService(t)
	seed(t, fs, model.Act{ID: "a", Name: "A"})

	_, err := svc.FetchMany(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, q.all())
}

func TestFetchMany_MissingStampCountsAsStale(t *testing.T) {
	svc, fs, q, _ := newTestService(t)
	require.NoError(t, fs.Memory.Put(context.Background(), &model.Act{ID: "a", Name: "A"}))

	_, err := svc.FetchMany(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, q.all())
}

func TestFetchMany_InvalidRequests(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.FetchMany(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.FetchMany(context.Background(), []string{"a", ""})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFetchMany_StoreFailureFlagsUnhealthy(t *testing.T) {
	svc, fs, _, _ := newTestService(t)
	fs.setGetErr(store.ErrUnavailable)

	_, err := svc.FetchMany(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.False(t, svc.Healthy())
}

func TestFetchMany_ProbeGatesUnhealthyCache(t *testing.T) {
	svc, fs, _, _ := newTestService(t)
	seed(t, fs, model.Act{ID: "a", Name: "A"})

	fs.setGetErr(store.ErrTimeout)
	_, err := svc.FetchMany(context.Background(), []string{"a"})
	require.ErrorIs(t, err, ErrCacheUnavailable)

	// While the probe keeps failing, requests are refused without touching
	// the store's read path.
	fs.setProbeErr(store.ErrUnavailable)
	_, err = svc.FetchMany(context.Background(), []string{"a"})
	require.ErrorIs(t, err, ErrCacheUnavailable)
	assert.Equal(t, 1, fs.probes)
	assert.False(t, svc.Healthy())

	// Once the probe succeeds the flag clears and the request goes through.
	fs.setProbeErr(nil)
	fs.setGetErr(nil)
	acts, err := svc.FetchMany(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, acts, 1)
	assert.True(t, svc.Healthy())
}

func TestFetchMany_NotFoundIsNotUnhealthy(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.FetchMany(context.Background(), []string{"miss"})
	require.NoError(t, err, "a miss fills inline and succeeds")
	assert.True(t, svc.Healthy())
}
