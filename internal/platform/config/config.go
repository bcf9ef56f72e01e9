package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Webhooks WebhooksConfig `mapstructure:"webhooks"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	// Driver is one of sqlite3 (cgo), sqlite (pure Go) or pgx (PostgreSQL).
	Driver         string `mapstructure:"driver"`
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

type WebhooksConfig struct {
	// Secret is the shared HMAC key. Empty disables signature verification.
	Secret             string        `mapstructure:"secret"`
	SignatureHeader    string        `mapstructure:"signature_header"`
	AbandonmentDelay   time.Duration `mapstructure:"abandonment_delay"`
	DedupeByProviderID bool          `mapstructure:"dedupe_by_provider_id"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
}

type JobsConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval"`
	// InvokerKeyHash is a bcrypt hash of the key the external scheduler presents.
	InvokerKeyHash string `mapstructure:"invoker_key_hash"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "file:funnel.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("webhooks.secret", "")
	v.SetDefault("webhooks.signature_header", "whop-signature")
	v.SetDefault("webhooks.abandonment_delay", 60*time.Minute)
	v.SetDefault("webhooks.dedupe_by_provider_id", false)
	v.SetDefault("webhooks.max_body_bytes", int64(1<<20))

	v.SetDefault("jobs.batch_size", 100)
	v.SetDefault("jobs.max_attempts", 5)
	v.SetDefault("jobs.interval", time.Minute)
	v.SetDefault("jobs.invoker_key_hash", "")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "funnel")
	v.SetDefault("jwt.access_token_ttl", time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
}

// Load reads the YAML file at path and applies environment overrides.
// A missing file is not an error when path is empty; defaults and the
// environment are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// The hosting platform documents its secret under this name.
	if err := v.BindEnv("webhooks.secret", "WEBHOOKS_SECRET", "WHOP_WEBHOOK_SECRET"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
