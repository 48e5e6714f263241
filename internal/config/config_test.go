package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)
}

func TestLoadRateLimitConfigNormalizesNonsense(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "-5")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "30s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 5*time.Minute, cfg.TTL, "TTL is stretched to cover five refill intervals")
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "2s")

	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, 2*time.Second, cfg.TTL)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG", "YES")
	assert.True(t, envBool("FLAG", false))
	t.Setenv("FLAG", "off")
	assert.False(t, envBool("FLAG", true))
	t.Setenv("FLAG", "maybe")
	assert.True(t, envBool("FLAG", true), "unparsable values fall back to the default")
}
