package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PoolSize != 20 || cfg.SweepInterval != 10*time.Second {
		t.Fatalf("unexpected ledger defaults: pool=%d interval=%s", cfg.PoolSize, cfg.SweepInterval)
	}
	if cfg.Ledger.Backend != BackendFile || cfg.Ledger.Path != "db.json" {
		t.Fatalf("unexpected ledger backend defaults: %+v", cfg.Ledger)
	}
	if cfg.PricePerUnit != 10 || cfg.PriceUnitMinutes != 30 {
		t.Fatalf("unexpected pricing defaults: %v per %v", cfg.PricePerUnit, cfg.PriceUnitMinutes)
	}
	if cfg.ListenAddr != ":3000" {
		t.Fatalf("expected :3000, got %s", cfg.ListenAddr)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("POOL_SIZE", "5")
	t.Setenv("SWEEP_INTERVAL", "250ms")
	t.Setenv("PRICE_PER_UNIT", "12.5")
	t.Setenv("LEDGER_BACKEND", "SQLite")
	t.Setenv("NOTIFY_QUEUE", "redis")
	t.Setenv("PORT", "8081")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PoolSize != 5 || cfg.SweepInterval != 250*time.Millisecond || cfg.PricePerUnit != 12.5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Ledger.Backend != BackendSQLite || cfg.Notify.Queue != QueueRedis {
		t.Fatalf("expected sqlite/redis, got %s/%s", cfg.Ledger.Backend, cfg.Notify.Queue)
	}
	if cfg.ListenAddr != ":8081" {
		t.Fatalf("expected PORT to set listen addr, got %s", cfg.ListenAddr)
	}
}

func TestFromEnvSweepIntervalSeconds(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "3")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SweepInterval != 3*time.Second {
		t.Fatalf("expected 3s, got %s", cfg.SweepInterval)
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"POOL_SIZE":          "0",
		"SWEEP_INTERVAL":     "soon",
		"LEDGER_BACKEND":     "mongo",
		"NOTIFY_QUEUE":       "kafka",
		"REDIS_DB":           "nope",
		"PRICE_UNIT_MINUTES": "0",
		"RECEIPT_HASH_KEY":   base64.StdEncoding.EncodeToString([]byte("short")),
	}
	for k, v := range tests {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", k, v)
			}
		})
	}
}

func TestFromEnvReadsYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parkour.yaml")
	payload := strings.Join([]string{
		"poolSize: 8",
		"sweepInterval: 2s",
		"ledger:",
		"  backend: redis",
		"  redisKey: bays",
		"pricing:",
		"  perUnit: 15",
		"notify:",
		"  ownerEmail: owner@example.com",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("PARKOUR_CONFIG", path)
	t.Setenv("POOL_SIZE", "9")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PoolSize != 9 {
		t.Fatalf("expected env to win over file, got %d", cfg.PoolSize)
	}
	if cfg.SweepInterval != 2*time.Second || cfg.Ledger.Backend != BackendRedis || cfg.Ledger.RedisKey != "bays" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PricePerUnit != 15 || cfg.Notify.OwnerEmail != "owner@example.com" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestFromEnvMissingFile(t *testing.T) {
	t.Setenv("PARKOUR_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDecodeRejectsBadDuration(t *testing.T) {
	cfg := Defaults()
	if err := Decode([]byte("sweepInterval: later\n"), &cfg); err == nil {
		t.Fatal("expected error for bad sweepInterval")
	}
}

func TestDecodeB64AcceptsRawAndPadded(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	for _, enc := range []string{base64.StdEncoding.EncodeToString(key), base64.RawStdEncoding.EncodeToString(key)} {
		got, err := decodeB64(enc + "\n")
		if err != nil || string(got) != string(key) {
			t.Fatalf("decode %q: got %q err=%v", enc, got, err)
		}
	}
}

func TestFromEnvTrustProxy(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TrustProxy {
		t.Fatalf("forwarded headers must not be trusted by default")
	}

	t.Setenv("TRUST_PROXY", "true")
	if cfg, err = FromEnv(); err != nil || !cfg.TrustProxy {
		t.Fatalf("expected TRUST_PROXY=true to apply, got %v (err=%v)", cfg.TrustProxy, err)
	}

	t.Setenv("TRUST_PROXY", "sometimes")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for invalid TRUST_PROXY")
	}
}
