package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Sweeper    SweeperConfig   `mapstructure:"sweeper"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Channel     string        `mapstructure:"channel"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// AuthConfig maps static API keys to sender identities. A request carrying
// one of these keys acts as the mapped sender.
type AuthConfig struct {
	Keys map[string]string `mapstructure:"keys"` // api key -> sender name
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

// SweeperConfig drives the retention sweeper. EventRetentionDays <= 0
// disables the general retention sweep entirely.
type SweeperConfig struct {
	Grace              time.Duration `mapstructure:"grace"`
	Interval           time.Duration `mapstructure:"interval"`
	EventRetentionDays int           `mapstructure:"event_retention_days"`
	StaleActionTimeout time.Duration `mapstructure:"stale_action_timeout"`
	LogRetentionDays   int           `mapstructure:"log_retention_days"`
	ActionTopics       []string      `mapstructure:"action_topics"`
	LogTopics          []string      `mapstructure:"log_topics"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (EVTS_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (EVTS_*)
	v.SetEnvPrefix("EVTS")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
