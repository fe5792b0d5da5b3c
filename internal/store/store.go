// Package store owns the authoritative in-memory expense collection. It is
// the only writer: every mutation persists through the kv backend, recomputes
// the aggregate and fans change notifications out to subscribed views.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendlog/internal/core"
	"spendlog/internal/kv"
	"spendlog/internal/log"
	"spendlog/internal/notify"
)

// KeyPrefix namespaces persisted records in the kv backend.
const KeyPrefix = "expense_"

// ErrDuplicateID guards the unique-id invariant when a caller hands Add a
// record with an id that is already live.
var ErrDuplicateID = errors.New("duplicate record id")

// loadConcurrency bounds the parallel backend reads during Load.
const loadConcurrency = 8

type Store struct {
	backend  kv.Store
	logger   *log.Logger
	notifier *notify.Notifier

	// mu is the single exclusive-access boundary: records, summary and
	// revision are only touched with it held.
	mu       sync.Mutex
	records  []core.Record
	summary  core.Summary
	revision uint64
}

func New(backend kv.Store, logger *log.Logger) *Store {
	return &Store{
		backend:  backend,
		logger:   logger.WithComponent("store"),
		notifier: notify.New(),
		summary:  core.Summarize(nil),
	}
}

// Subscribe registers a callback invoked after every mutation.
func (s *Store) Subscribe(cb notify.Callback) notify.Subscription {
	return s.notifier.Subscribe(cb)
}

// Load replaces the in-memory collection with every persisted record.
// Values are fetched with bounded parallelism; materialization, aggregate
// recompute and the single first-paint notification stay sequential.
// Malformed entries are skipped with a warning, never fatal.
func (s *Store) Load(ctx context.Context) error {
	keys, err := s.backend.Keys(ctx, KeyPrefix)
	if err != nil {
		return fmt.Errorf("list persisted records: %w", err)
	}

	values := make([]string, len(keys))
	present := make([]bool, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			v, ok, err := s.backend.Get(gctx, key)
			if err != nil {
				return fmt.Errorf("read %q: %w", key, err)
			}
			values[i], present[i] = v, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	records := make([]core.Record, 0, len(keys))
	for i, key := range keys {
		if !present[i] {
			continue
		}
		r, err := core.DecodeRecord(values[i])
		if err != nil {
			s.logger.Warn("Skipping malformed persisted record", "key", key, "error", err)
			continue
		}
		records = append(records, r)
	}

	s.mu.Lock()
	s.records = records
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Info("Records loaded", "count", len(records), "skipped", len(keys)-len(records))
	s.notifier.Publish()
	return nil
}

// Add inserts a record. An unassigned id is replaced with the lowest unused
// non-negative integer; a caller-supplied id (the edit round trip) is kept
// as-is. The backend write happens before the record becomes visible, so a
// persistence failure leaves memory untouched and is surfaced.
func (s *Store) Add(ctx context.Context, r core.Record) (core.Record, error) {
	s.mu.Lock()

	if r.ID < 0 {
		r.ID = s.nextIDLocked()
	} else if s.indexOfLocked(r.ID) >= 0 {
		s.mu.Unlock()
		return core.Record{}, fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
	}

	if err := s.persist(ctx, r); err != nil {
		s.mu.Unlock()
		return core.Record{}, err
	}

	s.records = append(s.records, r)
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Debug("Record added", "id", r.ID, "category", r.Category)
	s.notifier.Publish()
	return r, nil
}

// Remove deletes the record with the given id. An absent id is logged and
// reported as core.ErrNotFound; the store is left untouched and no
// notification fires.
func (s *Store) Remove(ctx context.Context, id int) error {
	s.mu.Lock()

	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("Remove of absent record", "id", id)
		return fmt.Errorf("remove %d: %w", id, core.ErrNotFound)
	}

	if err := s.backend.Remove(ctx, recordKey(id)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("remove persisted record %d: %w", id, err)
	}

	s.records = append(s.records[:i], s.records[i+1:]...)
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Debug("Record removed", "id", id)
	s.notifier.Publish()
	return nil
}

// Save re-persists an already-present record's current field values without
// touching membership. The aggregate is recomputed and subscribers notified;
// an edit must never leave a stale total on screen.
func (s *Store) Save(ctx context.Context, r core.Record) error {
	s.mu.Lock()

	i := s.indexOfLocked(r.ID)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("Save of absent record", "id", r.ID)
		return fmt.Errorf("save %d: %w", r.ID, core.ErrNotFound)
	}

	if err := s.persist(ctx, r); err != nil {
		s.mu.Unlock()
		return err
	}

	s.records[i] = r
	s.recomputeLocked()
	s.mu.Unlock()

	s.notifier.Publish()
	return nil
}

// Update applies mutate to a copy of the record with the given id, then
// performs one persistence write, one aggregate recompute and one
// notification. The id cannot be changed by the mutator.
func (s *Store) Update(ctx context.Context, id int, mutate func(*core.Record)) error {
	s.mu.Lock()

	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("Update of absent record", "id", id)
		return fmt.Errorf("update %d: %w", id, core.ErrNotFound)
	}

	updated := s.records[i]
	mutate(&updated)
	updated.ID = id

	if err := s.persist(ctx, updated); err != nil {
		s.mu.Unlock()
		return err
	}

	s.records[i] = updated
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Debug("Record updated", "id", id)
	s.notifier.Publish()
	return nil
}

// Snapshot returns a copy of the live records, safe to hand to the query
// engine while mutations continue.
func (s *Store) Snapshot() []core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Summary returns a copy of the derived aggregate.
func (s *Store) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := core.Summary{
		Total:      s.summary.Total,
		ByCategory: make(map[string]decimal.Decimal, len(s.summary.ByCategory)),
	}
	for k, v := range s.summary.ByCategory {
		out.ByCategory[k] = v
	}
	return out
}

// Len reports the number of live records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Revision is a counter bumped by every mutation; views key caches on it.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Categories returns the sorted distinct categories of live records, feeding
// the table's category filter options.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.records))
	for _, r := range s.records {
		if r.Category != "" {
			seen[r.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s *Store) persist(ctx context.Context, r core.Record) error {
	encoded, err := core.EncodeRecord(r)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, recordKey(r.ID), encoded); err != nil {
		return fmt.Errorf("persist record %d: %w", r.ID, err)
	}
	return nil
}

// nextIDLocked returns the lowest non-negative integer not used by any live
// record, so ids freed by removal are reused.
func (s *Store) nextIDLocked() int {
	used := make(map[int]struct{}, len(s.records))
	for _, r := range s.records {
		used[r.ID] = struct{}{}
	}
	for id := 0; ; id++ {
		if _, ok := used[id]; !ok {
			return id
		}
	}
}

func (s *Store) indexOfLocked(id int) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// recomputeLocked rebuilds the aggregate and bumps the revision. It always
// runs to completion before the caller releases the lock and publishes, so
// no subscriber can observe a partial view.
func (s *Store) recomputeLocked() {
	s.summary = core.Summarize(s.records)
	s.revision++
}

func recordKey(id int) string {
	return KeyPrefix + strconv.Itoa(id)
}
