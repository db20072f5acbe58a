package gate

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingResolver struct {
	calls   int
	profile Profile
	err     error
}

func (r *countingResolver) Resolve(context.Context, uint) (Profile, error) {
	r.calls++
	return r.profile, r.err
}

func TestCachedResolver(t *testing.T) {
	inner := &countingResolver{profile: NewStaticProfile(1, "staff", "invoice:*")}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewCachedResolver[uint](inner, time.Minute)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(ctx, 7); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}

	now = now.Add(2 * time.Minute)
	_, _ = r.Resolve(ctx, 7)
	if inner.calls != 2 {
		t.Fatalf("expired entry should be refreshed, got %d calls", inner.calls)
	}

	r.Invalidate(7)
	_, _ = r.Resolve(ctx, 7)
	if inner.calls != 3 {
		t.Fatalf("invalidated entry should be refreshed, got %d calls", inner.calls)
	}

	r.InvalidateAll()
	_, _ = r.Resolve(ctx, 7)
	if inner.calls != 4 {
		t.Fatalf("InvalidateAll should drop entries, got %d calls", inner.calls)
	}
}

func TestCachedResolver_DoesNotCacheErrors(t *testing.T) {
	inner := &countingResolver{err: errors.New("db down")}
	r := NewCachedResolver[uint](inner, time.Hour)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, 1); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	inner.profile = NewStaticProfile(2, "viewer", "*:view")
	p, err := r.Resolve(ctx, 1)
	if err != nil || p == nil || p.Name() != "viewer" {
		t.Fatalf("Resolve after recovery = %v, %v", p, err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls)
	}
}
