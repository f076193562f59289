package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const defaultRoleTTL = 30 * time.Second

var _ ports.RoleResolver = (*RoleCache)(nil)

// RoleCache is a read-through cache in front of another RoleResolver.
// Key format: roles:<username>
//
// Redis failures never fail a lookup; the cache is bypassed and the inner
// resolver answers.
type RoleCache struct {
	client *redis.Client
	inner  ports.RoleResolver
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRoleCache wraps inner. A ttl <= 0 uses defaultRoleTTL.
func NewRoleCache(client *redis.Client, inner ports.RoleResolver, ttl time.Duration, log zerolog.Logger) *RoleCache {
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	return &RoleCache{client: client, inner: inner, ttl: ttl, log: log}
}

func (c *RoleCache) ResolveRoles(ctx context.Context, username string) ([]string, error) {
	raw, err := c.client.Get(ctx, c.key(username)).Bytes()
	switch {
	case err == nil:
		var roles []string
		if jsonErr := json.Unmarshal(raw, &roles); jsonErr == nil && len(roles) > 0 {
			metrics.RoleLookupsTotal.WithLabelValues("hit").Inc()
			return roles, nil
		}
		c.log.Warn().Str("username", username).Msg("discarding unreadable role cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Msg("role cache read failed, falling back to store")
	}

	roles, err := c.inner.ResolveRoles(ctx, username)
	if err != nil {
		metrics.RoleLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RoleLookupsTotal.WithLabelValues("miss").Inc()

	if err := c.store(ctx, username, roles); err != nil {
		c.log.Warn().Err(err).Msg("role cache write failed")
	}
	return roles, nil
}

// Invalidate drops the cached roles of username so the next lookup reads the
// store.
func (c *RoleCache) Invalidate(ctx context.Context, username string) error {
	return c.client.Del(ctx, c.key(username)).Err()
}

func (c *RoleCache) store(ctx context.Context, username string, roles []string) error {
	payload, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	return c.client.Set(ctx, c.key(username), payload, c.ttl).Err()
}

func (c *RoleCache) key(username string) string {
	return "roles:" + username
}
