package profile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vidyalinkco/studybot/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s)
}

func TestGetCreatesLazily(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.Get(ctx, 1, "asha")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.UserID != 1 || p.Username != "asha" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.CurrentClass != 0 {
		t.Errorf("new profile should have no class, got %d", p.CurrentClass)
	}

	// Second read returns the stored row.
	p2, err := svc.Get(ctx, 1, "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p2.Username != "asha" {
		t.Errorf("username = %q, want asha", p2.Username)
	}
}

func TestUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, 1, "asha"); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if err := svc.Update(ctx, 1, 10, "AI"); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	p, err := svc.Get(ctx, 1, "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.CurrentClass != 10 {
		t.Errorf("class = %d, want 10", p.CurrentClass)
	}
	if p.PreferredSubject != "AI" {
		t.Errorf("subject = %q, want AI", p.PreferredSubject)
	}

	// Partial update: subject only.
	if err := svc.Update(ctx, 1, 0, "CS"); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	p, _ = svc.Get(ctx, 1, "")
	if p.CurrentClass != 10 || p.PreferredSubject != "CS" {
		t.Fatalf("after partial update: class=%d subject=%q", p.CurrentClass, p.PreferredSubject)
	}
}

func TestUpdateUnknownUser(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Update(context.Background(), 404, 11, ""); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestAutoProgression(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, 1, "asha"); err != nil {
		t.Fatalf("Get error: %v", err)
	}

	// Stored last year, class 10.
	lastYear := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return lastYear }
	if err := svc.Update(ctx, 1, 10, ""); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	// Read after this year's cutoff: promoted to 11.
	thisYear := time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return thisYear }
	p, err := svc.Get(ctx, 1, "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.CurrentClass != 11 {
		t.Fatalf("class = %d, want 11", p.CurrentClass)
	}
	if p.ProgressionYear != 2026 {
		t.Fatalf("progression year = %d, want 2026", p.ProgressionYear)
	}

	// Second read in the same year is a no-op.
	p, err = svc.Get(ctx, 1, "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.CurrentClass != 11 {
		t.Fatalf("class changed again: %d", p.CurrentClass)
	}
}

func TestNoProgressionBeforeCutoff(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, 1, ""); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC) }
	if err := svc.Update(ctx, 1, 10, ""); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	// May of the following year: before June 1, no promotion.
	svc.now = func() time.Time { return time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC) }
	p, err := svc.Get(ctx, 1, "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.CurrentClass != 10 {
		t.Fatalf("class = %d, want 10", p.CurrentClass)
	}
}

func TestNoProgressionPastFinalClass(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, 1, ""); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC) }
	if err := svc.Update(ctx, 1, 12, ""); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	svc.now = func() time.Time { return time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC) }
	p, err := svc.Get(ctx, 1, "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.CurrentClass != 12 {
		t.Fatalf("class = %d, want 12 (no progression past final class)", p.CurrentClass)
	}
}

func TestNoProgressionWithoutClass(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, 1, ""); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2027, time.December, 1, 0, 0, 0, 0, time.UTC) }
	p, err := svc.Get(ctx, 1, "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if p.CurrentClass != 0 {
		t.Fatalf("class = %d, want unset", p.CurrentClass)
	}
}
