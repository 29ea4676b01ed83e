// SPDX-License-Identifier: MIT

// Package service implements the request-time read path: serve cached acts,
// fill a single miss inline, defer bulk misses to the background queue, and
// keep the cache-health gate.
package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tourdata/actcache/internal/log"
	"github.com/tourdata/actcache/internal/metrics"
	"github.com/tourdata/actcache/internal/model"
	"github.com/tourdata/actcache/internal/store"
)

const (
	// storeCallTimeout bounds every store call made from the request path.
	storeCallTimeout = 500 * time.Millisecond

	// stalenessTTL is the record age beyond which a cached hit is queued
	// for a background refresh. Not tied to the sweeper's cycle budget.
	stalenessTTL = 24 * time.Hour
)

// Backfiller accepts act ids for deferred background fetching.
type Backfiller interface {
	Add(ids []string)
}

// Enricher composes a full act record for one id.
type Enricher interface {
	Enrich(ctx context.Context, id string, silent bool) (*model.Act, error)
}

// Service is the read-through act service.
type Service struct {
	store    store.Store
	queue    Backfiller
	enricher Enricher

	// healthy is a hint, not a guarantee: a race between flag check and
	// operation is fine because the operation rediscovers the failure.
	healthy atomic.Bool

	now func() time.Time
}

// New wires the service. The cache starts out presumed healthy.
func New(st store.Store, queue Backfiller, enricher Enricher) *Service {
	s := &Service{store: st, queue: queue, enricher: enricher, now: time.Now}
	s.healthy.Store(true)
	return s
}

// FetchMany serves the requested acts from the cache, backfilling misses
// inline (single miss) or via the queue (two or more). The returned slice
// follows the request's id order.
func (s *Service) FetchMany(ctx context.Context, ids []string) ([]model.Act, error) {
	if len(ids) == 0 {
		return nil, ErrInvalidRequest
	}
	for _, id := range ids {
		if id == "" {
			return nil, ErrInvalidRequest
		}
	}

	logger := log.WithComponentFromContext(ctx, "service")

	if !s.healthy.Load() {
		if err := s.recoverHealth(ctx); err != nil {
			logger.Error().Err(err).Str("event", "service.probe_failed").Msg("cache probe failed, refusing request")
			return nil, ErrCacheUnavailable
		}
		logger.Info().Str("event", "service.probe_recovered").Msg("cache probe succeeded, resuming service")
	}

	cached, missing, err := s.lookup(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Str("event", "service.lookup_failed").Msg("cache read failed")
		return nil, ErrCacheUnavailable
	}

	if stale := s.staleIDs(cached); len(stale) > 0 {
		logger.Debug().Str("event", "service.stale_queued").Int("count", len(stale)).Msg("queueing stale acts for refresh")
		s.queue.Add(stale)
	}

	switch len(missing) {
	case 0:
		s.touchAsync(ids)
		return s.inRequestOrder(ids, cached), nil

	case 1:
		act, err := s.enricher.Enrich(ctx, missing[0], false)
		if err != nil {
			// The single-miss path surfaces the upstream cause as-is.
			return nil, err
		}
		metrics.RecordInlineFill()
		s.putAsync(act)
		cached[act.ID] = *act
		s.touchAsync(ids)
		return s.inRequestOrder(ids, cached), nil

	default:
		s.queue.Add(missing)
		logger.Info().
			Str("event", "service.bulk_miss").
			Int("missing", len(missing)).
			Int("cached", len(cached)).
			Msg("bulk miss deferred to background queue")
		return nil, &NotCachedError{Missing: len(missing), Cached: len(cached)}
	}
}

// Healthy reports the current cache-health hint, for readiness probes.
func (s *Service) Healthy() bool {
	return s.healthy.Load()
}

// lookup runs one bounded Get per id concurrently and partitions the
// result into hits and misses.
func (s *Service) lookup(ctx context.Context, ids []string) (map[string]model.Act, []string, error) {
	results := make([]*model.Act, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, storeCallTimeout)
			defer cancel()
			act, err := s.store.Get(cctx, id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				s.markUnhealthy(err)
				return err
			}
			results[i] = act
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	cached := make(map[string]model.Act)
	var missing []string
	for i, id := range ids {
		if results[i] == nil {
			if _, dup := cached[id]; !dup {
				metrics.RecordCacheMiss()
				missing = append(missing, id)
			}
			continue
		}
		metrics.RecordCacheHit()
		cached[id] = *results[i]
	}
	// A duplicate id may land in both sets when first seen as a miss.
	deduped := missing[:0]
	for _, id := range missing {
		if _, ok := cached[id]; !ok {
			deduped = append(deduped, id)
		}
	}
	return cached, deduped, nil
}

// staleIDs returns the cached ids whose updatedAt is absent, unparseable,
// or older than the staleness TTL.
func (s *Service) staleIDs(cached map[string]model.Act) []string {
	var stale []string
	cutoff := s.now().Add(-stalenessTTL)
	for id, act := range cached {
		if act.UpdatedAt == "" {
			stale = append(stale, id)
			continue
		}
		t, err := model.ParseStamp(act.UpdatedAt)
		if err != nil || t.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	return stale
}

// recoverHealth re-establishes the store connection via a bounded probe and
// clears the unhealthy flag on success.
func (s *Service) recoverHealth(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, storeCallTimeout)
	defer cancel()
	if err := s.store.Probe(pctx); err != nil {
		return err
	}
	s.healthy.Store(true)
	return nil
}

func (s *Service) markUnhealthy(err error) {
	if s.healthy.CompareAndSwap(true, false) {
		metrics.RecordCacheUnhealthy()
		logger := log.WithComponent("service")
		logger.Warn().Err(err).Str("event", "service.cache_unhealthy").Msg("flagging cache unhealthy")
	}
}

// putAsync caches a freshly enriched record without blocking the response.
// A failed write is logged, flags the cache unhealthy, and is otherwise
// dropped: the client already has the record.
func (s *Service) putAsync(act *model.Act) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
		defer cancel()
		if err := s.store.Put(ctx, act); err != nil {
			s.markUnhealthy(err)
			logger := log.WithComponent("service")
			logger.Warn().
				Err(err).
				Str("event", "service.inline_put_failed").
				Str("id", act.ID).
				Msg("could not cache enriched act")
		}
	}()
}

// touchAsync resets the request counters for the served ids. Best effort.
func (s *Service) touchAsync(ids []string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeCallTimeout)
		defer cancel()
		if err := s.store.TouchLastRequested(ctx, ids); err != nil {
			logger := log.WithComponent("service")
			logger.Warn().Err(err).Str("event", "service.touch_failed").Msg("could not update last-requested metadata")
		}
	}()
}

func (s *Service) inRequestOrder(ids []string, cached map[string]model.Act) []model.Act {
	out := make([]model.Act, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if act, ok := cached[id]; ok {
			out = append(out, act)
		}
	}
	return out
}
