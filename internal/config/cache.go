package config

import "time"

// PricingCacheConfig controls the Redis read-through cache in front of the
// age price rules.  Rules are the only data cached across requests; seat
// occupancy and session validity always hit the database.
type PricingCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Key     string
}

// LoadPricingCacheConfig reads PRICING_CACHE_* variables.  A TTL of zero
// disables the cache.
func LoadPricingCacheConfig() PricingCacheConfig {
	cfg := PricingCacheConfig{
		Enabled: envBool("PRICING_CACHE_ENABLED", true),
		TTL:     envDur("PRICING_CACHE_TTL", 30*time.Second),
		Key:     envStr("PRICING_CACHE_KEY", "pricing:age_rules"),
	}
	if cfg.TTL <= 0 {
		cfg.Enabled = false
	}
	return cfg
}
