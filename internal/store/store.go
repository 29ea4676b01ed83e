// SPDX-License-Identifier: MIT

// Package store provides durable key-value persistence for canonical act
// records, per-act metadata, and the auto-expiring update-error journal.
// The production backend is MongoDB; the contract is backend-agnostic.
package store

import (
	"context"

	"github.com/tourdata/actcache/internal/model"
)

// EvictionThreshold is the number of cache writes an act may accumulate
// without being requested before the sweeper drops it.
const EvictionThreshold = 14

// ProbeID is the reserved act id used by health probes. It never holds a
// real record; a probe writes a sentinel under it and deletes it again.
const ProbeID = "__probe__"

// Store is the persistence contract consumed by the service, queue, and
// sweeper. All operations honour the deadline on ctx and fail with kinded
// errors from this package, never with raw driver errors.
type Store interface {
	// Get returns the canonical record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Act, error)

	// Put upserts the record by its id and, best-effort, increments the
	// act's updatesSinceLastRequest counter. A failed counter increment is
	// logged but never surfaced to the caller.
	Put(ctx context.Context, act *model.Act) error

	// Probe performs a write-then-delete round trip under ProbeID.
	Probe(ctx context.Context) error

	// ListIDs returns all cached act ids, sorted.
	ListIDs(ctx context.Context) ([]string, error)

	// ListWithUpdatedAt returns id/updatedAt pairs for all cached acts,
	// sorted by id.
	ListWithUpdatedAt(ctx context.Context) ([]model.ActStamp, error)

	// ListWithoutBandsintown returns ids of acts whose relations carry no
	// bandsintown link, sorted.
	ListWithoutBandsintown(ctx context.Context) ([]string, error)

	// TouchLastRequested marks each id as requested now, resetting its
	// updatesSinceLastRequest counter to zero.
	TouchLastRequested(ctx context.Context, ids []string) error

	// EvictInactive deletes acts (and their metadata) whose counter has
	// reached EvictionThreshold and returns the number of acts deleted.
	EvictInactive(ctx context.Context) (int, error)

	// Clear removes all act records.
	Clear(ctx context.Context) error

	// LogUpdateError journals a background-update failure.
	LogUpdateError(ctx context.Context, e model.UpdateError) error

	// RecentErrors returns the journal, newest first.
	RecentErrors(ctx context.Context) ([]model.UpdateError, error)

	// EnsureIndexes creates the journal TTL index and any lookup indexes.
	EnsureIndexes(ctx context.Context) error
}
