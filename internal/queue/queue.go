// SPDX-License-Identifier: MIT

// Package queue implements the deduplicating background fetch queue. A
// single drainer goroutine works through pending act ids at a fixed pace so
// upstream rate limits hold regardless of how many ids pile up.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tourdata/actcache/internal/log"
	"github.com/tourdata/actcache/internal/metrics"
	"github.com/tourdata/actcache/internal/model"
)

// DefaultDelay is the minimum pause between consecutive background fetches.
const DefaultDelay = 30 * time.Second

// Enricher composes a full act record for one id.
type Enricher interface {
	Enrich(ctx context.Context, id string, silent bool) (*model.Act, error)
}

// Sink receives drained records and journals failures.
type Sink interface {
	Put(ctx context.Context, act *model.Act) error
	LogUpdateError(ctx context.Context, e model.UpdateError) error
}

// Queue is the deduplicating set of pending act ids plus its single
// drainer. Add never blocks; draining happens on a background goroutine
// that lives until the set is empty.
type Queue struct {
	enricher Enricher
	sink     Sink
	delay    time.Duration

	mu       sync.Mutex
	pending  map[string]struct{}
	draining bool

	// sleep is the inter-fetch pause; overridable in tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// New creates a queue. A non-positive delay selects DefaultDelay.
func New(enricher Enricher, sink Sink, delay time.Duration) *Queue {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Queue{
		enricher: enricher,
		sink:     sink,
		delay:    delay,
		pending:  make(map[string]struct{}),
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Add inserts ids into the pending set (duplicates collapse) and starts the
// drainer if none is running. It returns immediately.
func (q *Queue) Add(ids []string) {
	if len(ids) == 0 {
		return
	}
	q.mu.Lock()
	for _, id := range ids {
		if id != "" {
			q.pending[id] = struct{}{}
		}
	}
	depth := len(q.pending)
	start := !q.draining && depth > 0
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	metrics.RecordEnqueued(len(ids))
	metrics.SetQueueDepth(depth)
	if start {
		go q.drain()
	}
}

// Len reports the number of pending ids.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Draining reports whether the drainer goroutine is running.
func (q *Queue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// Pending returns a snapshot of the pending set.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	return ids
}

// pop removes one pending id, any order. An empty set retires the drainer
// under the same lock: clearing the flag after releasing it would let an
// Add land in between, see a live drainer, and strand its ids.
func (q *Queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id := range q.pending {
		delete(q.pending, id)
		metrics.SetQueueDepth(len(q.pending))
		return id, true
	}
	q.draining = false
	return "", false
}

// drain processes pending ids one at a time with the configured pause
// between fetches. Errors are journaled and never escape. On a normal exit
// pop has already retired the flag; a panic restarts the worker when ids
// are still pending, otherwise it resets the flag for a later Add.
func (q *Queue) drain() {
	logger := log.WithComponent("queue")
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error().Interface("panic", r).Str("event", "queue.drain_panic").Msg("drainer crashed")
		q.mu.Lock()
		restart := len(q.pending) > 0
		q.draining = restart
		q.mu.Unlock()
		if restart {
			go q.drain()
		}
	}()

	ctx := context.Background()
	for {
		id, ok := q.pop()
		if !ok {
			return
		}

		act, err := q.enricher.Enrich(ctx, id, true)
		if err == nil {
			err = q.sink.Put(ctx, act)
		}
		if err != nil {
			q.journal(ctx, logger, id, err)
		} else {
			logger.Debug().Str("event", "queue.filled").Str("id", id).Msg("background fetch stored")
		}

		if q.Len() > 0 {
			q.sleep(q.delay)
		}
	}
}

// journal records a drain failure in the persistent error journal and the
// per-source metric. Journaling itself is best effort.
func (q *Queue) journal(ctx context.Context, logger zerolog.Logger, id string, err error) {
	source := model.ClassifyErrorSource(err)
	metrics.RecordUpdateError(source)
	logger.Warn().
		Err(err).
		Str("event", "queue.fetch_failed").
		Str("id", id).
		Str("source", source).
		Msg("background fetch failed")

	entry := model.UpdateError{
		Timestamp: model.Stamp(q.now()),
		ActID:     id,
		Message:   err.Error(),
		Source:    source,
	}
	if jerr := q.sink.LogUpdateError(ctx, entry); jerr != nil {
		logger.Error().Err(jerr).Str("event", "queue.journal_failed").Str("id", id).Msg("could not journal fetch failure")
	}
}
