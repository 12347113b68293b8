package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/circuit"

	"custodia/internal/org/models"
)

// DefaultAccessTTL bounds how long a positive ownership check may be served
// from cache. Kept short so teardown and ownership changes converge quickly.
const DefaultAccessTTL = 30 * time.Second

// AccessCache caches positive ownership checks. Only confirmed ownership is
// ever cached; a miss or a cache failure always falls through to the store,
// so the check fails closed.
type AccessCache interface {
	Get(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// RedisAccessCache implements AccessCache on Redis.
type RedisAccessCache struct {
	client *redis.Client
}

func NewRedisAccessCache(client *redis.Client) *RedisAccessCache {
	return &RedisAccessCache{client: client}
}

func (c *RedisAccessCache) Get(ctx context.Context, key string) (bool, error) {
	err := c.client.Get(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisAccessCache) Set(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Set(ctx, key, "1", ttl).Err()
}

func (c *RedisAccessCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// AccessChecker answers "does this user own this organization" with a single
// store predicate, optionally fronted by a short-lived positive cache. A
// breaker stops the checker from trusting cache hits while Redis is
// misbehaving; attempts continue so the circuit can close again once the
// backend recovers.
type AccessChecker struct {
	orgs    OrganizationStore
	cache   AccessCache
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuit.Breaker
}

func accessKey(orgID id.OrgID, ownerID id.UserID) string {
	return "access:org:" + orgID.String() + ":" + ownerID.String()
}

// Ensure returns nil only when ownership is confirmed. Absence and wrong
// ownership both surface as the organization not-found error.
func (c *AccessChecker) Ensure(ctx context.Context, orgID id.OrgID, ownerID id.UserID) error {
	key := accessKey(orgID, ownerID)
	if c.cache != nil {
		hit, err := c.cache.Get(ctx, key)
		if err != nil {
			// Cache trouble never grants or denies access on its own.
			c.recordCacheFailure(ctx, "access cache read failed", err)
		} else if c.recordCacheSuccess(ctx) && hit {
			return nil
		}
	}

	ok, err := c.orgs.ExistsByIDAndOwner(ctx, orgID, ownerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check organization access").
			WithPublic(models.PublicCodeInternal)
	}
	if !ok {
		return orgNotFound()
	}

	if c.cache != nil {
		ttl := c.ttl
		if ttl <= 0 {
			ttl = DefaultAccessTTL
		}
		if err := c.cache.Set(ctx, key, ttl); err != nil {
			c.recordCacheFailure(ctx, "access cache write failed", err)
		} else {
			c.recordCacheSuccess(ctx)
		}
	}
	return nil
}

func (c *AccessChecker) recordCacheFailure(ctx context.Context, msg string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, "error", err)
	}
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened && c.logger != nil {
		c.logger.WarnContext(ctx, "access cache circuit opened", "breaker", c.breaker.Name())
	}
}

// recordCacheSuccess reports whether cache results are currently trusted.
func (c *AccessChecker) recordCacheSuccess(ctx context.Context) bool {
	if c.breaker == nil {
		return true
	}
	usePrimary, change := c.breaker.RecordSuccess()
	if change.Closed && c.logger != nil {
		c.logger.InfoContext(ctx, "access cache circuit closed", "breaker", c.breaker.Name())
	}
	return usePrimary
}

// Invalidate drops the cached ownership entry after teardown or any change
// that could affect access decisions.
func (c *AccessChecker) Invalidate(ctx context.Context, orgID id.OrgID, ownerID id.UserID) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, accessKey(orgID, ownerID)); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "access cache invalidation failed", "error", err)
	}
}
