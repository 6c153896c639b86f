package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODE", "DB_DRIVER", "HANDICAP_QUEUE_BATCH_SIZE", "RATE_LIMIT_ENABLED", "STRIPE_PRICE_PREMIUM", "HANDICAP_QUEUE_INLINE"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, ModeDev, cfg.Mode)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 25, cfg.QueueBatchSize)
	assert.Equal(t, 3, cfg.QueueMaxRetries)
	assert.Equal(t, "@every 1m", cfg.QueueSchedule)
	assert.True(t, cfg.QueueInline)
	assert.Equal(t, 25, cfg.FreeTierRoundLimit)
	assert.True(t, cfg.RateLimitEnabled)
	assert.True(t, cfg.LogPretty)
	assert.Empty(t, cfg.StripePriceMap)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MODE", "prod")
	t.Setenv("HANDICAP_QUEUE_BATCH_SIZE", "50")
	t.Setenv("HANDICAP_MAX_RETRIES", "oops")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("HANDICAP_QUEUE_INLINE", "0")
	t.Setenv("RATE_LIMIT_IDLE_TTL", "90s")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("STRIPE_PRICE_PREMIUM", "price_p")
	t.Setenv("STRIPE_PRICE_LIFETIME", "price_l")

	cfg := FromEnv()
	assert.Equal(t, ModeProd, cfg.Mode)
	assert.False(t, cfg.LogPretty)
	assert.Equal(t, 50, cfg.QueueBatchSize)
	assert.Equal(t, 3, cfg.QueueMaxRetries, "unparsable values fall back")
	assert.False(t, cfg.RateLimitEnabled)
	assert.False(t, cfg.QueueInline)
	assert.Equal(t, 90*time.Second, cfg.RateLimitIdleTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "premium", cfg.StripePriceMap["price_p"])
	assert.Equal(t, "lifetime", cfg.StripePriceMap["price_l"])
}
