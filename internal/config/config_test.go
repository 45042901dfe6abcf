package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ListenAddr:         ":6767",
		HostKeyPath:        "host_key",
		RateLimitMax:       5,
		RateLimitWindow:    60 * time.Second,
		LineRatePerMin:     120,
		SupervisorInterval: 30 * time.Second,
		WarnAfter:          240 * time.Second,
		EvictAfter:         300 * time.Second,
		MetricsAddr:        ":9767",
		LogMaxSizeMB:       50,
	}
}

func TestConfig_Validate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestConfig_Validate_EmptyListenAddr(t *testing.T) {
	c := validConfig()
	c.ListenAddr = ""
	if err := c.Validate(); err == nil {
		t.Error("expected error for empty listen address")
	}
}

func TestConfig_Validate_WarnMustBeBeforeEvict(t *testing.T) {
	c := validConfig()
	c.WarnAfter = 300 * time.Second
	c.EvictAfter = 240 * time.Second
	if err := c.Validate(); err == nil {
		t.Error("expected error when warn-after >= evict-after")
	}
}

func TestConfig_Validate_NonPositiveRateLimit(t *testing.T) {
	c := validConfig()
	c.RateLimitMax = 0
	if err := c.Validate(); err == nil {
		t.Error("expected error for non-positive rate limit max")
	}
}

func TestBuildConfig_Defaults(t *testing.T) {
	cfg := buildConfig(Args{
		ListenAddr:         ":6767",
		HostKeyPath:        "k",
		RateLimitMax:       5,
		RateLimitWindow:    60 * time.Second,
		LineRatePerMinute:  120,
		SupervisorInterval: 30 * time.Second,
		WarnAfter:          240 * time.Second,
		EvictAfter:         300 * time.Second,
		MetricsAddr:        ":9767",
		LogMaxSizeMB:       50,
	})
	if err := cfg.Validate(); err != nil {
		t.Fatalf("built config should validate: %v", err)
	}
}
