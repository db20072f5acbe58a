package gate

import (
	"context"
	"sync"
	"time"
)

// Profile is a named role holding permissions.
type Profile interface {
	ID() uint
	Name() string
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver finds the profile assigned to a caller. A nil profile with a
// nil error means the caller has none.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// StaticProfile is an in-memory Profile.
type StaticProfile struct {
	id    uint
	name  string
	perms []Permission
}

func NewStaticProfile(id uint, name string, permissions ...Permission) *StaticProfile {
	p := &StaticProfile{id: id, name: name}
	seen := make(map[Permission]bool, len(permissions))
	for _, perm := range permissions {
		if seen[perm] {
			continue
		}
		seen[perm] = true
		p.perms = append(p.perms, perm)
	}
	return p
}

func (p *StaticProfile) ID() uint     { return p.id }
func (p *StaticProfile) Name() string { return p.name }

// Permissions returns the granted permissions in declaration order.
func (p *StaticProfile) Permissions() []Permission {
	out := make([]Permission, len(p.perms))
	copy(out, p.perms)
	return out
}

func (p *StaticProfile) HasPermission(requested Permission) bool {
	for _, perm := range p.perms {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// StaticResolver maps callers to profiles in memory.
type StaticResolver[U comparable] struct {
	mu       sync.RWMutex
	profiles map[U]Profile
}

func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

func (r *StaticResolver[U]) Set(user U, profile Profile) {
	r.mu.Lock()
	r.profiles[user] = profile
	r.mu.Unlock()
}

func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[user], nil
}

// CachedResolver memoizes another resolver for ttl. Errors are not cached.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[U]cachedProfile
}

type cachedProfile struct {
	profile   Profile
	expiresAt time.Time
}

func NewCachedResolver[U comparable](inner ProfileResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[U]cachedProfile),
	}
}

func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	r.mu.RLock()
	e, ok := r.entries[user]
	r.mu.RUnlock()
	if ok && r.now().Before(e.expiresAt) {
		return e.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.entries[user] = cachedProfile{profile: profile, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return profile, nil
}

// Invalidate drops one caller, e.g. after a profile reassignment.
func (r *CachedResolver[U]) Invalidate(user U) {
	r.mu.Lock()
	delete(r.entries, user)
	r.mu.Unlock()
}

// InvalidateAll drops every entry, e.g. after a profile's permissions change.
func (r *CachedResolver[U]) InvalidateAll() {
	r.mu.Lock()
	r.entries = make(map[U]cachedProfile)
	r.mu.Unlock()
}
