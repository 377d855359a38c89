package store

import (
	"testing"
	"time"
)

func TestPoolConfigDefaults(t *testing.T) {
	got := PoolConfig{}.withDefaults()
	if got != defaultPoolConfig {
		t.Fatalf("withDefaults() = %+v, want %+v", got, defaultPoolConfig)
	}

	got = PoolConfig{MaxOpenConns: 4, ConnMaxLifetime: time.Minute}.withDefaults()
	if got.MaxOpenConns != 4 || got.MaxIdleConns != 4 {
		t.Fatalf("idle connections not capped at open limit: %+v", got)
	}
	if got.ConnMaxLifetime != time.Minute || got.ConnMaxIdleTime != defaultPoolConfig.ConnMaxIdleTime {
		t.Fatalf("unexpected lifetimes: %+v", got)
	}
}
