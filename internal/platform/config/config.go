package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Cache       CacheConfig     `mapstructure:"cache"`
	JWT         JWTConfig       `mapstructure:"jwt"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	APIKeys     APIKeysConfig   `mapstructure:"api_keys"`
	Jobs        JobsConfig      `mapstructure:"jobs"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

type CacheConfig struct {
	OrgTTL     time.Duration `mapstructure:"org_ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// RateLimitConfig selects one counter backend for the whole deployment.
type RateLimitConfig struct {
	Backend   string     `mapstructure:"backend"` // memory or redis
	KeyPrefix string     `mapstructure:"key_prefix"`
	Auth      LimitClass `mapstructure:"auth"`
	API       LimitClass `mapstructure:"api"`
	PublicAPI LimitClass `mapstructure:"public_api"`
}

type LimitClass struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type APIKeysConfig struct {
	Lookup     string `mapstructure:"lookup"` // scan or prefix
	BcryptCost int    `mapstructure:"bcrypt_cost"`
	Prefix     string `mapstructure:"prefix"`
}

type JobsConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseBackoff    time.Duration `mapstructure:"base_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	QueueSize      int           `mapstructure:"queue_size"`
	UsageRetention time.Duration `mapstructure:"usage_retention"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.url", "file:./data/taskgate.db")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("cache.org_ttl", 5*time.Minute)
	v.SetDefault("cache.max_entries", 1000)

	v.SetDefault("jwt.access_token_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_token_ttl", 7*24*time.Hour)

	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.key_prefix", "rl:")
	v.SetDefault("rate_limit.auth.limit", 5)
	v.SetDefault("rate_limit.auth.window", 15*time.Minute)
	v.SetDefault("rate_limit.api.limit", 100)
	v.SetDefault("rate_limit.api.window", 15*time.Minute)
	v.SetDefault("rate_limit.public_api.limit", 100)
	v.SetDefault("rate_limit.public_api.window", time.Hour)

	v.SetDefault("api_keys.lookup", "scan")
	v.SetDefault("api_keys.bcrypt_cost", 10)
	v.SetDefault("api_keys.prefix", "tg_live")

	v.SetDefault("jobs.max_attempts", 3)
	v.SetDefault("jobs.base_backoff", time.Second)
	v.SetDefault("jobs.max_backoff", 30*time.Second)
	v.SetDefault("jobs.queue_size", 256)
	v.SetDefault("jobs.usage_retention", 30*24*time.Hour)
	v.SetDefault("jobs.sweep_interval", 10*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
