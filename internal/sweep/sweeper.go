// SPDX-License-Identifier: MIT

// Package sweep keeps the cache fresh: a long-lived worker walks every
// cached act within a fixed time budget, re-enriches each one, and evicts
// records nobody has requested for a while.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tourdata/actcache/internal/log"
	"github.com/tourdata/actcache/internal/metrics"
	"github.com/tourdata/actcache/internal/model"
	"github.com/tourdata/actcache/internal/store"
)

const (
	// DefaultInterval is the time budget for one full pass over the cache.
	DefaultInterval = 12 * time.Hour

	// DefaultRetryDelay is the pause before restarting after a failed cycle.
	DefaultRetryDelay = 5 * time.Second
)

// Enricher composes a full act record for one id.
type Enricher interface {
	Enrich(ctx context.Context, id string, silent bool) (*model.Act, error)
}

// Sweeper is the background refresher. One instance runs per process.
type Sweeper struct {
	store    store.Store
	enricher Enricher

	interval   time.Duration
	retryDelay time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

// New creates a sweeper. Non-positive durations select the defaults.
func New(st store.Store, enricher Enricher, interval, retryDelay time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Sweeper{
		store:      st,
		enricher:   enricher,
		interval:   interval,
		retryDelay: retryDelay,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Run loops forever, restarting after errors with the retry delay. It
// returns only when ctx is cancelled, which happens at process shutdown.
func (s *Sweeper) Run(ctx context.Context) {
	logger := log.WithComponent("sweep")
	logger.Info().
		Str("event", "sweep.start").
		Dur("interval", s.interval).
		Msg("cache sweeper running")

	for {
		if ctx.Err() != nil {
			logger.Info().Str("event", "sweep.stop").Msg("cache sweeper stopped")
			return
		}
		if err := s.RunCycle(ctx); err != nil {
			logger.Error().
				Err(err).
				Str("event", "sweep.cycle_failed").
				Dur("retry_in", s.retryDelay).
				Msg("sweep cycle failed, will retry")
			s.sleep(ctx, s.retryDelay)
		}
	}
}

// RunCycle performs one full pass: enumerate cached ids, refresh each
// within its slice of the cycle budget, then evict inactive acts.
// Per-act failures are journaled and skipped; only enumeration or eviction
// failures abort the cycle.
func (s *Sweeper) RunCycle(ctx context.Context) error {
	logger := log.WithComponent("sweep")

	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		logger.Debug().Str("event", "sweep.idle").Msg("cache empty, sleeping out the cycle")
		s.sleep(ctx, s.interval)
		return nil
	}

	// Each act gets an equal slice of the cycle budget; a slow fetch eats
	// into its own idle time, which also caps the upstream call rate.
	slice := s.interval / time.Duration(len(ids))
	logger.Info().
		Str("event", "sweep.cycle_start").
		Int("acts", len(ids)).
		Dur("slice", slice).
		Msg("starting sweep cycle")

	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		started := s.now()

		act, err := s.enricher.Enrich(ctx, id, true)
		if err == nil {
			err = s.store.Put(ctx, act)
		}
		if err != nil {
			s.journal(ctx, logger, id, err)
		}

		if elapsed := s.now().Sub(started); elapsed < slice {
			s.sleep(ctx, slice-elapsed)
		}
	}

	evicted, err := s.store.EvictInactive(ctx)
	if err != nil {
		return err
	}
	metrics.RecordEvicted(evicted)
	metrics.RecordSweepCycle()
	logger.Info().
		Str("event", "sweep.cycle_done").
		Int("acts", len(ids)).
		Int("evicted", evicted).
		Msg("sweep cycle completed")
	return nil
}

func (s *Sweeper) journal(ctx context.Context, logger zerolog.Logger, id string, err error) {
	source := model.ClassifyErrorSource(err)
	metrics.RecordUpdateError(source)
	logger.Warn().
		Err(err).
		Str("event", "sweep.refresh_failed").
		Str("id", id).
		Str("source", source).
		Msg("act refresh failed")

	entry := model.UpdateError{
		Timestamp: model.Stamp(s.now()),
		ActID:     id,
		Message:   err.Error(),
		Source:    source,
	}
	if jerr := s.store.LogUpdateError(ctx, entry); jerr != nil {
		logger.Error().Err(jerr).Str("event", "sweep.journal_failed").Str("id", id).Msg("could not journal refresh failure")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
