package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestParseStringSliceTrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, parseStringSlice(" http://a, ,http://b,"))
	assert.Empty(t, parseStringSlice(""))
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseDuration("nope", 5*time.Second))
	assert.Equal(t, time.Hour, parseDuration("1h", 5*time.Second))
}

func TestLoadReadsRedemptionSettings(t *testing.T) {
	t.Setenv("REDEMPTION_TTL", "48h")
	t.Setenv("REDEMPTION_EXPIRY_REFUND", "customer")
	t.Setenv("EXPIRY_SWEEP_BATCH", "42")
	t.Setenv("STREAK_TIMEZONE", "Asia/Almaty")

	cfg := Load()

	assert.Equal(t, 48*time.Hour, cfg.RedemptionTTL)
	assert.Equal(t, "customer", cfg.RedemptionExpiryRefund)
	assert.Equal(t, 42, cfg.ExpirySweepBatch)
	assert.Equal(t, "Asia/Almaty", cfg.StreakLocation().String())
}

func TestStreakLocationUnknownZoneIsUTC(t *testing.T) {
	cfg := &Config{StreakTimezone: "Mars/Olympus"}
	assert.Equal(t, time.UTC, cfg.StreakLocation())
}
