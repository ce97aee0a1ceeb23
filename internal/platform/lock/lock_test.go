package lock

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestSlotKey_DistinctPerSlot(t *testing.T) {
	doc := uuid.New()
	a := slotKey(doc, "2026-09-01", "09:00")
	b := slotKey(doc, "2026-09-01", "09:30")
	c := slotKey(uuid.New(), "2026-09-01", "09:00")

	if a == b {
		t.Error("different time slots must produce different keys")
	}
	if a == c {
		t.Error("different doctors must produce different keys")
	}
}

func TestNoopLocker_RunsSection(t *testing.T) {
	l := NewNoopLocker()
	ran := false
	err := l.WithSlotLock(context.Background(), uuid.New(), "2026-09-01", "09:00", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("expected section to run")
	}
}

func TestNoopLocker_PropagatesError(t *testing.T) {
	l := NewNoopLocker()
	want := errors.New("boom")
	err := l.WithSlotLock(context.Background(), uuid.New(), "2026-09-01", "09:00", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}
