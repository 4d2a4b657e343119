package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultRoleCacheSize bounds the number of cached role sets
	DefaultRoleCacheSize = 1024
	// DefaultRoleCacheTTL bounds how stale a cached role set may be
	DefaultRoleCacheTTL = 30 * time.Second
)

// RoleResolver resolves the current role set of a principal
type RoleResolver interface {
	ResolveRoles(ctx context.Context, principalID string) ([]string, error)
}

// CachedRoleResolver reads role sets from the credential store and keeps
// them in an expiring LRU. A zero TTL disables caching. A read that overlaps
// an Invalidate call is returned but not cached.
type CachedRoleResolver struct {
	store  CredentialStore
	cache  *expirable.LRU[string, []string]
	logger Logger

	mu    sync.Mutex
	epoch uint64
}

var (
	_ RoleResolver         = (*CachedRoleResolver)(nil)
	_ RoleCacheInvalidator = (*CachedRoleResolver)(nil)
)

// NewCachedRoleResolver returns a resolver over store
func NewCachedRoleResolver(store CredentialStore, size int, ttl time.Duration) *CachedRoleResolver {
	r := &CachedRoleResolver{
		store:  store,
		logger: defLogger{},
	}

	if ttl > 0 {
		if size <= 0 {
			size = DefaultRoleCacheSize
		}
		r.cache = expirable.NewLRU[string, []string](size, nil, ttl)
	}

	return r
}

func (r *CachedRoleResolver) WithLogger(logger Logger) *CachedRoleResolver {
	r.logger = normalizeLogger(logger)
	return r
}

// ResolveRoles returns the role set for principalID
func (r *CachedRoleResolver) ResolveRoles(ctx context.Context, principalID string) ([]string, error) {
	if r.cache != nil {
		if roles, ok := r.cache.Get(principalID); ok {
			return cloneRoles(roles), nil
		}
	}

	epoch := r.currentEpoch()

	user, err := r.store.FindByID(ctx, principalID)
	if err != nil {
		r.logger.Debug("ResolveRoles find principal failed", "user_id", principalID, "error", err)
		return nil, err
	}

	roles, err := r.store.GetRoles(ctx, user)
	if err != nil {
		r.logger.Error("ResolveRoles get roles failed", "user_id", principalID, "error", err)
		return nil, err
	}

	if r.cache != nil {
		r.mu.Lock()
		if r.epoch == epoch {
			r.cache.Add(principalID, cloneRoles(roles))
		}
		r.mu.Unlock()
	}

	return roles, nil
}

// Invalidate drops the cached role set for principalID
func (r *CachedRoleResolver) Invalidate(principalID string) {
	if r.cache == nil {
		return
	}

	r.mu.Lock()
	r.epoch++
	r.cache.Remove(principalID)
	r.mu.Unlock()
}

func (r *CachedRoleResolver) currentEpoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

func cloneRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}
