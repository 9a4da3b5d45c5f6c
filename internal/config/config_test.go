package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "SECURESIM_API_ADDR", "SECURESIM_TICK_EVERY", "SECURESIM_STORE",
		"SECURESIM_DATA_DIR", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"SECURESIM_REDIS_PREFIX", "DATABASE_URL", "SECURESIM_KAFKA_BROKERS",
		"SECURESIM_KAFKA_TOPIC", "SECURESIM_TRADE_RPS", "SECURESIM_WORKER_RUN_ONCE",
		"SIM_API_BASE_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadAPIDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Engine.TickEvery != 3*time.Second {
		t.Fatalf("tick every = %v", cfg.Engine.TickEvery)
	}
	if cfg.Engine.Store.Backend != StoreFile {
		t.Fatalf("backend = %q", cfg.Engine.Store.Backend)
	}
	if cfg.Feed.Enabled() {
		t.Fatalf("feed should be disabled without brokers")
	}
	if cfg.TradeRPS != 5 {
		t.Fatalf("trade rps = %v", cfg.TradeRPS)
	}
}

func TestLoadAPIOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("SECURESIM_TICK_EVERY", "250ms")
	t.Setenv("SECURESIM_STORE", "Redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SECURESIM_KAFKA_BROKERS", "a:9092, b:9092,,")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Engine.TickEvery != 250*time.Millisecond {
		t.Fatalf("tick every = %v", cfg.Engine.TickEvery)
	}
	if cfg.Engine.Store.Backend != StoreRedis || cfg.Engine.Store.RedisDB != 2 {
		t.Fatalf("store = %+v", cfg.Engine.Store)
	}
	if len(cfg.Feed.KafkaBrokers) != 2 || cfg.Feed.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("brokers = %v", cfg.Feed.KafkaBrokers)
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"SECURESIM_STORE": "floppy"}},
		{"postgres without url", map[string]string{"SECURESIM_STORE": "postgres"}},
		{"negative tick", map[string]string{"SECURESIM_TICK_EVERY": "-1s"}},
		{"zero rps", map[string]string{"SECURESIM_TRADE_RPS": "0"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadAPIFromEnv(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadWorkerRunOnce(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECURESIM_WORKER_RUN_ONCE", "true")
	cfg, err := LoadWorkerFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.RunOnce {
		t.Fatalf("expected run once")
	}
}

func TestLoadCLI(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIM_API_BASE_URL", "http://sim.local:8080/")
	t.Setenv("SECURESIM_STORE", "floppy")
	cfg := LoadCLIFromEnv()
	if cfg.APIBaseURL != "http://sim.local:8080" {
		t.Fatalf("base url = %q", cfg.APIBaseURL)
	}
	if cfg.Engine.Store.Backend != "floppy" {
		t.Fatalf("backend = %q", cfg.Engine.Store.Backend)
	}
}

func TestLoadReadsDotEnvInWorkingDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := "SECURESIM_TRADE_RPS=7\nSECURESIM_TICK_EVERY=9s\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	// clearEnv restores it afterwards.
	os.Unsetenv("SECURESIM_TRADE_RPS")
	t.Setenv("SECURESIM_TICK_EVERY", "2s")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TradeRPS != 7 {
		t.Fatalf("trade rps = %v, want value from .env", cfg.TradeRPS)
	}
	if cfg.Engine.TickEvery != 2*time.Second {
		t.Fatalf("tick every = %v, want process env to win", cfg.Engine.TickEvery)
	}
}
