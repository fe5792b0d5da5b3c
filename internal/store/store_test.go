package store

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
	"spendlog/internal/kv/memory"
	"spendlog/internal/log"
)

func newTestStore(t *testing.T) (*Store, *memory.Store) {
	t.Helper()
	backend := memory.New()
	return New(backend, log.New(slog.LevelError, "test")), backend
}

func draft(amount string, category, date string) core.Record {
	var amt decimal.NullDecimal
	if amount != "" {
		amt = core.SomeAmount(decimal.RequireFromString(amount))
	}
	return core.NewRecord("", amt, category, date)
}

func TestAdd_AssignsLowestUnusedID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Add(ctx, draft("10", "Food", "2024-01-01"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	second, err := s.Add(ctx, draft("20", "Food", "2024-01-02"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.ID != 0 || second.ID != 1 {
		t.Fatalf("ids = (%d, %d), want (0, 1)", first.ID, second.ID)
	}

	// Free id 0 and add again: the lowest unused id is reused.
	if err := s.Remove(ctx, 0); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	third, err := s.Add(ctx, draft("30", "Food", "2024-01-03"))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if third.ID != 0 {
		t.Errorf("reused id = %d, want 0", third.ID)
	}
}

func TestAdd_KeepsCallerSuppliedID(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	r := draft("10", "Food", "2024-01-01")
	r.ID = 5
	added, err := s.Add(ctx, r)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added.ID != 5 {
		t.Errorf("ID = %d, want 5", added.ID)
	}
	if _, ok, _ := backend.Get(ctx, "expense_5"); !ok {
		t.Error("record not persisted under expense_5")
	}
}

func TestAdd_RejectsDuplicateID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r := draft("10", "Food", "2024-01-01")
	r.ID = 2
	if _, err := s.Add(ctx, r); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := s.Add(ctx, r); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("second Add() error = %v, want ErrDuplicateID", err)
	}
}

func TestAggregateConsistency(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Add(ctx, draft("10.50", "Food", "2024-01-01"))
	s.Add(ctx, draft("20", "Food", "2024-01-02"))
	s.Add(ctx, draft("5", "Transport", "2024-01-03"))
	s.Add(ctx, draft("", "Other", "2024-01-04")) // absent amount counts as 0
	s.Remove(ctx, 1)

	sum := s.Summary()
	if !sum.Total.Equal(decimal.RequireFromString("15.50")) {
		t.Errorf("Total = %v, want 15.50", sum.Total)
	}

	acc := decimal.Zero
	for _, v := range sum.ByCategory {
		acc = acc.Add(v)
	}
	if !acc.Equal(sum.Total) {
		t.Errorf("category sums = %v, total = %v", acc, sum.Total)
	}
}

func TestRemove_AbsentIsLoggedNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var notifications int
	s.Subscribe(func() { notifications++ })

	err := s.Remove(ctx, 42)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Remove(absent) error = %v, want ErrNotFound", err)
	}
	if notifications != 0 {
		t.Errorf("absent remove must not notify, got %d notifications", notifications)
	}
}

func TestMutationsNotifySubscribers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var notifications int
	sub := s.Subscribe(func() { notifications++ })

	added, _ := s.Add(ctx, draft("10", "Food", "2024-01-01"))
	s.Update(ctx, added.ID, func(r *core.Record) {
		r.Amount = core.SomeAmount(decimal.NewFromInt(25))
	})
	s.Remove(ctx, added.ID)

	if notifications != 3 {
		t.Errorf("notifications = %d, want 3 (add, update, remove)", notifications)
	}

	sub.Cancel()
	s.Add(ctx, draft("10", "Food", "2024-01-01"))
	if notifications != 3 {
		t.Errorf("cancelled subscriber still notified")
	}
}

func TestSubscriberSeesCompleteAggregate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var observed decimal.Decimal
	s.Subscribe(func() { observed = s.Summary().Total })

	s.Add(ctx, draft("10", "Food", "2024-01-01"))
	if !observed.Equal(decimal.NewFromInt(10)) {
		t.Errorf("subscriber observed total %v, want 10", observed)
	}

	s.Add(ctx, draft("32", "Food", "2024-01-02"))
	if !observed.Equal(decimal.NewFromInt(42)) {
		t.Errorf("subscriber observed total %v, want 42", observed)
	}
}

func TestLoad_MaterializesAndNotifiesOnce(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	// Seed through one store instance.
	seedStore := New(backend, log.New(slog.LevelError, "test"))
	seedStore.Add(ctx, draft("10", "Food", "2024-01-01"))
	seedStore.Add(ctx, draft("20", "Travel", "2024-02-01"))

	// A fresh instance over the same backend picks everything up.
	s := New(backend, log.New(slog.LevelError, "test"))
	var notifications int
	s.Subscribe(func() { notifications++ })

	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if notifications != 1 {
		t.Errorf("Load notified %d times, want exactly 1", notifications)
	}
	if !s.Summary().Total.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Total after load = %v, want 30", s.Summary().Total)
	}
}

func TestLoad_SkipsMalformedEntries(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	backend.Set(ctx, "expense_0", `{"id":0,"amount":10,"category":"Food","date":"2024-01-01"}`)
	backend.Set(ctx, "expense_1", `this is not json`)
	backend.Set(ctx, "expense_2", `{"id":2,"amount":"NaNish","category":"Food","date":"2024-01-01"}`)
	backend.Set(ctx, "expense_3", `{"id":3,"date":"2024-01-01"}`) // missing category

	s := New(backend, log.New(slog.LevelError, "test"))
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (three malformed entries skipped)", s.Len())
	}
}

func TestLoad_ReplacesPreviousContents(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	s := New(backend, log.New(slog.LevelError, "test"))
	s.Add(ctx, draft("10", "Food", "2024-01-01"))

	// Wipe the backend behind the store's back, then reload.
	backend.Remove(ctx, "expense_0")
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after reload of empty backend, want 0", s.Len())
	}
	if !s.Summary().Total.IsZero() {
		t.Errorf("Total = %v, want 0", s.Summary().Total)
	}
}

func TestUpdate_SingleWriteSingleNotify(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	added, _ := s.Add(ctx, draft("10", "Food", "2024-01-01"))

	var notifications int
	s.Subscribe(func() { notifications++ })

	err := s.Update(ctx, added.ID, func(r *core.Record) {
		r.Amount = core.SomeAmount(decimal.NewFromInt(99))
		r.Description = "corrected"
		r.ID = 12345 // mutator cannot steal the id
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if notifications != 1 {
		t.Errorf("notifications = %d, want 1", notifications)
	}
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].ID != added.ID {
		t.Fatalf("id not stable across update: %+v", snap)
	}
	if !snap[0].Amount.Decimal.Equal(decimal.NewFromInt(99)) {
		t.Errorf("amount = %v, want 99", snap[0].Amount.Decimal)
	}

	v, ok, _ := backend.Get(ctx, "expense_0")
	if !ok {
		t.Fatal("persisted entry missing after update")
	}
	persisted, err := core.DecodeRecord(v)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if persisted.Description != "corrected" {
		t.Errorf("persisted description = %q, want corrected", persisted.Description)
	}
}

func TestUpdate_Absent(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Update(context.Background(), 9, func(r *core.Record) {})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update(absent) error = %v, want ErrNotFound", err)
	}
}

func TestSave_RepersistsAndRecomputes(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	added, _ := s.Add(ctx, draft("10", "Food", "2024-01-01"))

	var notifications int
	s.Subscribe(func() { notifications++ })

	added.Amount = core.SomeAmount(decimal.NewFromInt(70))
	if err := s.Save(ctx, added); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if notifications != 1 {
		t.Errorf("Save notified %d times, want 1", notifications)
	}
	if !s.Summary().Total.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Total = %v, want 70 after save", s.Summary().Total)
	}
	if s.Len() != 1 {
		t.Errorf("Save changed membership: Len() = %d", s.Len())
	}
}

func TestEditRoundTrip_RemoveThenAddKeepsID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	original, _ := s.Add(ctx, draft("10", "Food", "2024-01-01"))
	s.Add(ctx, draft("20", "Travel", "2024-01-02"))

	// The legacy edit path: remove by id, re-add the edited record which
	// still carries the id.
	if err := s.Remove(ctx, original.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	original.Amount = core.SomeAmount(decimal.NewFromInt(15))
	edited, err := s.Add(ctx, original)
	if err != nil {
		t.Fatalf("Add(edited) error = %v", err)
	}
	if edited.ID != original.ID {
		t.Errorf("edited id = %d, want %d", edited.ID, original.ID)
	}
	if !s.Summary().Total.Equal(decimal.NewFromInt(35)) {
		t.Errorf("Total = %v, want 35", s.Summary().Total)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, draft("10", "Food", "2024-01-01"))

	snap := s.Snapshot()
	snap[0].Category = "Tampered"

	if s.Snapshot()[0].Category != "Food" {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestRevisionAdvancesPerMutation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r0 := s.Revision()
	added, _ := s.Add(ctx, draft("10", "Food", "2024-01-01"))
	r1 := s.Revision()
	s.Remove(ctx, added.ID)
	r2 := s.Revision()

	if !(r0 < r1 && r1 < r2) {
		t.Errorf("revision did not advance: %d, %d, %d", r0, r1, r2)
	}
}

func TestCategories_SortedDistinct(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Add(ctx, draft("1", "Transport", "2024-01-01"))
	s.Add(ctx, draft("2", "Food", "2024-01-02"))
	s.Add(ctx, draft("3", "Food", "2024-01-03"))

	got := s.Categories()
	want := []string{"Food", "Transport"}
	if len(got) != len(want) {
		t.Fatalf("Categories() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
