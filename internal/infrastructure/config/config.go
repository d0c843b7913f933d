package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Backend  BackendConfig
	Store    StoreConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Redirect RedirectConfig
}

// BackendConfig points the gateway at the external credential backend.
type BackendConfig struct {
	BaseURL string        `env:"BACKEND_URL,     default=http://localhost:5000/api"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT, default=5s"`
}

// StoreConfig selects the credential store backend.
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=redis"` // redis | mongo | memory
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=cabinet_portal"`
}

// RedirectConfig tunes the redirect controller's settle-delay safety net.
type RedirectConfig struct {
	SettleDelay time.Duration `env:"REDIRECT_SETTLE_DELAY, default=1s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
