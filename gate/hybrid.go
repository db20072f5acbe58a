package gate

import (
	"context"
	"fmt"
	"sync"
)

// HybridGate checks profile permissions, then resource policies.
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]

	mu       sync.RWMutex
	policies map[string]Policy[U]
}

func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

// Register sets the policy for a resource type, replacing any previous one.
func (g *HybridGate[U]) Register(resource string, p Policy[U]) {
	g.mu.Lock()
	g.policies[resource] = p
	g.mu.Unlock()
}

// HasPolicy reports whether a policy is registered for resource.
func (g *HybridGate[U]) HasPolicy(resource string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.policies[resource]
	return ok
}

// Authorize returns nil when user may perform action. When obj is non-nil and
// a policy is registered for resource, the policy must agree as well.
func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resource string, obj any) error {
	if !g.CanProfile(ctx, user, action, resource) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, NewPermission(resource, action))
	}
	if obj == nil {
		return nil
	}
	g.mu.RLock()
	p, ok := g.policies[resource]
	g.mu.RUnlock()
	if ok && !p.Can(ctx, user, action, obj) {
		return fmt.Errorf("%w: %s denied by policy", ErrUnauthorized, resource)
	}
	return nil
}

func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resource string, obj any) bool {
	return g.Authorize(ctx, user, action, resource, obj) == nil
}

// CanProfile checks only the profile permission.
func (g *HybridGate[U]) CanProfile(ctx context.Context, user U, action Action, resource string) bool {
	var zero U
	if user == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resource, action))
}

// Check runs only the registered policy for resource. It returns
// ErrNoPolicyDefined when there is none.
func (g *HybridGate[U]) Check(ctx context.Context, user U, action Action, resource string, obj any) error {
	g.mu.RLock()
	p, ok := g.policies[resource]
	g.mu.RUnlock()
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, user, action, obj) {
		return ErrUnauthorized
	}
	return nil
}
