package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type StoreConfig struct {
	Backend       string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	DatabaseURL   string
}

type EngineConfig struct {
	TickEvery time.Duration
	Store     StoreConfig
}

type FeedConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

func (f FeedConfig) Enabled() bool {
	return len(f.KafkaBrokers) > 0
}

type APIConfig struct {
	Addr     string
	Engine   EngineConfig
	Feed     FeedConfig
	TradeRPS float64
}

type WorkerConfig struct {
	Engine  EngineConfig
	Feed    FeedConfig
	RunOnce bool
}

type CLIConfig struct {
	APIBaseURL string
	Engine     EngineConfig
}

// loadDotEnv copies a .env file in the working directory into the process
// environment. Variables already set win; a missing file is the normal case.
func loadDotEnv() {
	_ = godotenv.Load()
}

func LoadAPIFromEnv() (APIConfig, error) {
	loadDotEnv()
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("SECURESIM_API_ADDR", ":8080")
	}

	engine, err := loadEngine()
	if err != nil {
		return APIConfig{}, err
	}
	cfg := APIConfig{
		Addr:     addr,
		Engine:   engine,
		Feed:     loadFeed(),
		TradeRPS: envFloatDefault("SECURESIM_TRADE_RPS", 5),
	}
	if cfg.TradeRPS <= 0 {
		return cfg, fmt.Errorf("SECURESIM_TRADE_RPS must be > 0")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	loadDotEnv()
	engine, err := loadEngine()
	if err != nil {
		return WorkerConfig{}, err
	}
	return WorkerConfig{
		Engine:  engine,
		Feed:    loadFeed(),
		RunOnce: envBoolDefault("SECURESIM_WORKER_RUN_ONCE", false),
	}, nil
}

// LoadCLIFromEnv never fails: a bad store setting only matters to `play`,
// which reports it when it opens the store.
func LoadCLIFromEnv() CLIConfig {
	loadDotEnv()
	engine, _ := loadEngine()
	if engine.Store.Backend == "" {
		engine.Store.Backend = StoreFile
	}
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Engine:     engine,
	}
}

func loadEngine() (EngineConfig, error) {
	cfg := EngineConfig{
		TickEvery: envDurationDefault("SECURESIM_TICK_EVERY", 3*time.Second),
		Store: StoreConfig{
			Backend:       strings.ToLower(envDefault("SECURESIM_STORE", StoreFile)),
			DataDir:       strings.TrimSpace(os.Getenv("SECURESIM_DATA_DIR")),
			RedisAddr:     envDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envIntDefault("REDIS_DB", 0),
			RedisPrefix:   envDefault("SECURESIM_REDIS_PREFIX", "securesim:"),
			DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		},
	}
	if cfg.TickEvery <= 0 {
		return cfg, fmt.Errorf("SECURESIM_TICK_EVERY must be > 0")
	}
	switch cfg.Store.Backend {
	case StoreFile, StoreMemory, StoreRedis:
	case StorePostgres:
		if cfg.Store.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return cfg, fmt.Errorf("unknown SECURESIM_STORE %q", cfg.Store.Backend)
	}
	return cfg, nil
}

func loadFeed() FeedConfig {
	var brokers []string
	for _, b := range strings.Split(os.Getenv("SECURESIM_KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return FeedConfig{
		KafkaBrokers: brokers,
		KafkaTopic:   envDefault("SECURESIM_KAFKA_TOPIC", "securesim.snapshots"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
