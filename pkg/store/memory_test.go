package store

import (
	"errors"
	"testing"
	"time"
)

func rec(id, channel string, age time.Duration) *Record {
	return &Record{
		ID:          id,
		Kind:        KindValidate,
		Channel:     channel,
		GraphName:   "default",
		Status:      "valid",
		SubmittedAt: time.Now().Add(-age),
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore()
	defer s.Close(ctx)

	if err := s.Put(ctx, rec("run-1", "toybox", 0)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Channel != "toybox" || got.Status != "valid" {
		t.Errorf("record = %+v", got)
	}

	// Put with same ID updates
	updated := rec("run-1", "toybox", 0)
	updated.Status = "invalid"
	_ = s.Put(ctx, updated)
	got, _ = s.Get(ctx, "run-1")
	if got.Status != "invalid" {
		t.Errorf("status after update = %q", got.Status)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore()

	_ = s.Put(ctx, rec("run-old", "toybox", time.Hour))
	_ = s.Put(ctx, rec("run-new", "toybox", time.Minute))
	_ = s.Put(ctx, rec("run-other", "warehouse", time.Second))

	all, err := s.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "run-other" {
		t.Errorf("all = %v", ids(all))
	}

	toybox, _ := s.List(ctx, "toybox", 0)
	if len(toybox) != 2 || toybox[0].ID != "run-new" || toybox[1].ID != "run-old" {
		t.Errorf("toybox = %v", ids(toybox))
	}

	limited, _ := s.List(ctx, "", 1)
	if len(limited) != 1 {
		t.Errorf("limited = %v", ids(limited))
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := t.Context()
	s := NewMemoryStore()
	original := rec("run-1", "toybox", 0)
	_ = s.Put(ctx, original)

	// Mutating the caller's record or a returned record must not affect
	// the stored copy.
	original.Status = "mutated"
	got, _ := s.Get(ctx, "run-1")
	if got.Status != "valid" {
		t.Errorf("stored record shares memory with caller: %q", got.Status)
	}
	got.Status = "mutated-too"
	again, _ := s.Get(ctx, "run-1")
	if again.Status != "valid" {
		t.Errorf("stored record shares memory with reader: %q", again.Status)
	}
}

func ids(recs []*Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
