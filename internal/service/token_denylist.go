package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const revokedTokenPrefix = "auth:revoked:"

type revocationCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TokenDenyList remembers the IDs of access tokens revoked by logout until
// they would have expired anyway. Entries are kept in process and, when a
// shared cache is configured, in redis so every instance sees them.
type TokenDenyList struct {
	cache  revocationCache
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewTokenDenyList constructs a deny-list. cache may be nil.
func NewTokenDenyList(cache revocationCache, logger *zap.Logger) *TokenDenyList {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenDenyList{
		cache:   cache,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		revoked: make(map[string]time.Time),
	}
}

// Revoke denies tokenID until expiresAt. Already expired tokens are ignored.
func (d *TokenDenyList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	now := d.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}

	d.mu.Lock()
	for id, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, id)
		}
	}
	d.revoked[tokenID] = expiresAt
	d.mu.Unlock()

	if d.cache != nil {
		if err := d.cache.Set(ctx, revokedTokenPrefix+tokenID, true, ttl); err != nil {
			return fmt.Errorf("store revoked token: %w", err)
		}
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired. A
// failing shared cache falls back to the entries held in process.
func (d *TokenDenyList) IsRevoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	d.mu.Lock()
	exp, ok := d.revoked[tokenID]
	d.mu.Unlock()
	if ok && exp.After(d.now()) {
		return true
	}

	if d.cache == nil {
		return false
	}
	var revoked bool
	hit, err := d.cache.Get(ctx, revokedTokenPrefix+tokenID, &revoked)
	if err != nil {
		d.logger.Warn("revoked token lookup failed", zap.String("token_id", tokenID), zap.Error(err))
		return false
	}
	return hit && revoked
}
