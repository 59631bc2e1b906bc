package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/orgpulse/orgpulse/server/internal/analytics"
)

// Report is one monitor evaluation of the whole organization.
type Report struct {
	ID          string                 `json:"id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Summary     analytics.Summary      `json:"summary"`
	Headcount   analytics.Headcount    `json:"headcount"`
	Issues      []analytics.Issue      `json:"issues"`
	Units       []analytics.UnitHealth `json:"units"`
}

// Entry is a report together with the time it was stored.
type Entry struct {
	Report    *Report
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory report history keyed by report ID.
// A background goroutine (Run) periodically evicts reports older than the
// configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores r under r.ID, replacing any report with the same ID.
// Callers must not modify r after calling Put.
func (s *Store) Put(r *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[r.ID] = &Entry{
		Report:    r,
		UpdatedAt: s.now(),
	}
}

// Get returns the live entry for id. Stale entries are reported as missing.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok || !e.UpdatedAt.After(s.now().Add(-s.ttl)) {
		return nil, false
	}
	return e, true
}

// Latest returns the most recently stored live entry.
func (s *Store) Latest() (*Entry, bool) {
	entries := s.List()
	if len(entries) == 0 {
		return nil, false
	}
	return entries[len(entries)-1], true
}

// List returns all entries stored within the TTL, oldest first.
// Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Report.GeneratedAt.Before(out[j].Report.GeneratedAt)
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale reports", "count", n)
			}
		}
	}
}
