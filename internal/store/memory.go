// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tourdata/actcache/internal/model"
)

// Memory is a map-backed Store. It mirrors the Mongo implementation's
// semantics (counter bumps, eviction threshold, sorted listings) and is the
// backend used by tests and local development.
type Memory struct {
	mu     sync.Mutex
	acts   map[string]model.Act
	meta   map[string]model.Meta
	errors []model.UpdateError

	// Now is the clock used for lastRequestedAt stamps; overridable in tests.
	Now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		acts: make(map[string]model.Act),
		meta: make(map[string]model.Meta),
		Now:  time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, id string) (*model.Act, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	act, ok := m.acts[id]
	if !ok {
		return nil, newError(ErrNotFound, CodeGet, "get", nil)
	}
	cp := act
	return &cp, nil
}

func (m *Memory) Put(ctx context.Context, act *model.Act) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acts[act.ID] = *act
	meta := m.meta[act.ID]
	meta.ID = act.ID
	meta.UpdatesSinceLastRequest++
	m.meta[act.ID] = meta
	return nil
}

func (m *Memory) Probe(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acts[ProbeID] = model.Act{ID: ProbeID}
	delete(m.acts, ProbeID)
	return nil
}

func (m *Memory) ListIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.acts))
	for id := range m.acts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) ListWithUpdatedAt(ctx context.Context) ([]model.ActStamp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamps := make([]model.ActStamp, 0, len(m.acts))
	for id, act := range m.acts {
		stamps = append(stamps, model.ActStamp{ID: id, UpdatedAt: act.UpdatedAt})
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].ID < stamps[j].ID })
	return stamps, nil
}

func (m *Memory) ListWithoutBandsintown(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, act := range m.acts {
		if act.Relations["bandsintown"] == "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) TouchLastRequested(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := model.Stamp(m.Now())
	for _, id := range ids {
		meta := m.meta[id]
		meta.ID = id
		meta.LastRequestedAt = now
		meta.UpdatesSinceLastRequest = 0
		m.meta[id] = meta
	}
	return nil
}

func (m *Memory) EvictInactive(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, meta := range m.meta {
		if meta.UpdatesSinceLastRequest < EvictionThreshold {
			continue
		}
		if _, ok := m.acts[id]; ok {
			delete(m.acts, id)
			deleted++
		}
		delete(m.meta, id)
	}
	return deleted, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acts = make(map[string]model.Act)
	return nil
}

func (m *Memory) LogUpdateError(ctx context.Context, e model.UpdateError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.Now()
	}
	m.errors = append(m.errors, e)
	return nil
}

func (m *Memory) RecentErrors(ctx context.Context) ([]model.UpdateError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.UpdateError, len(m.errors))
	copy(out, m.errors)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) EnsureIndexes(ctx context.Context) error { return nil }

// Meta returns the bookkeeping record for id, for tests and diagnostics.
func (m *Memory) Meta(id string) (model.Meta, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.meta[id]
	return meta, ok
}
