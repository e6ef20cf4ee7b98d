package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CachedRuleSource is a Redis read-through cache in front of another
// RuleSource.  Redis errors fall through to the inner source so a cache
// outage never fails pricing.  Empty rule sets are not cached.
type CachedRuleSource struct {
	inner RuleSource
	rdb   *redis.Client
	key   string
	ttl   time.Duration
}

// NewCachedRuleSource wraps inner.  A nil client or non-positive ttl
// returns inner unchanged.
func NewCachedRuleSource(inner RuleSource, rdb *redis.Client, key string, ttl time.Duration) RuleSource {
	if rdb == nil || ttl <= 0 {
		return inner
	}
	return &CachedRuleSource{inner: inner, rdb: rdb, key: key, ttl: ttl}
}

func (c *CachedRuleSource) All(ctx context.Context) ([]model.AgePriceRule, error) {
	log := logger.FromContext(ctx)
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var rules []model.AgePriceRule
		if jerr := json.Unmarshal(raw, &rules); jerr == nil {
			return rules, nil
		}
		log.Warn("pricing cache: bad entry, reloading", "key", c.key)
	case !errors.Is(err, redis.Nil):
		log.Warn("pricing cache: get failed", "err", err)
	}

	rules, err := c.inner.All(ctx)
	if err != nil || len(rules) == 0 {
		return rules, err
	}
	if b, jerr := json.Marshal(rules); jerr == nil {
		if serr := c.rdb.Set(ctx, c.key, b, c.ttl).Err(); serr != nil {
			log.Warn("pricing cache: set failed", "err", serr)
		}
	}
	return rules, nil
}

// Invalidate drops the cached entry so the next read reloads from storage.
func (c *CachedRuleSource) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}
