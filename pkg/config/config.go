package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aquasafe/aquasafe/pkg/models"
	"github.com/aquasafe/aquasafe/pkg/repository"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// InsecureJWTSecret is the placeholder shipped in example env files
const InsecureJWTSecret = "change_me_in_production"

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Auth   AuthConfig   `yaml:"auth" mapstructure:"auth"`
	Access AccessConfig `yaml:"access" mapstructure:"access"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and configures the sample backing.
type StoreConfig struct {
	Driver      string         `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string         `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string         `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Postgres    PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig holds discrete connection settings, used when no
// database_url is given.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Name     string `yaml:"name" mapstructure:"name"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// AuthConfig configures token signing.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// AccessConfig holds per-role page size caps. A cap of 0 means uncapped.
type AccessConfig struct {
	PageCaps   map[string]int `yaml:"page_caps" mapstructure:"page_caps"`
	DefaultCap int            `yaml:"default_cap" mapstructure:"default_cap"`
}

// Policy converts the configured caps into a repository access policy
func (c AccessConfig) Policy() repository.AccessPolicy {
	caps := make(map[models.Role]int, len(c.PageCaps))
	for role, limit := range c.PageCaps {
		caps[models.Role(role)] = limit
	}
	return repository.NewAccessPolicy(caps, c.DefaultCap)
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PostgresDSN returns database_url when set, else a key/value DSN built
// from the discrete settings.
func (c StoreConfig) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	p := c.Postgres
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode,
	)
}

// Redacted returns a loggable description of the store target
func (c StoreConfig) Redacted() string {
	switch c.Driver {
	case DriverSQLite:
		return c.SQLitePath
	case DriverMemory:
		return "memory"
	}
	if c.DatabaseURL != "" {
		if u, err := url.Parse(c.DatabaseURL); err == nil {
			return u.Redacted()
		}
		return "postgres"
	}
	return fmt.Sprintf("%s@%s:%s/%s", c.Postgres.User, c.Postgres.Host, c.Postgres.Port, c.Postgres.Name)
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "" {
		return eris.New("config: store.sqlite_path is required for the sqlite driver")
	}
	if c.Access.DefaultCap < 0 {
		return eris.New("config: access.default_cap must not be negative")
	}
	for role, limit := range c.Access.PageCaps {
		if limit < 0 {
			return eris.Errorf("config: access.page_caps.%s must not be negative", role)
		}
	}
	return nil
}

// Load reads .env, config.yaml and AQUASAFE_* environment variables, in
// increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AQUASAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing deployments
	for key, env := range map[string]string{
		"auth.jwt_secret":         "JWT_SECRET",
		"server.allowed_origins":  "SERVER_ALLOWED_ORIGINS",
		"store.database_url":      "DATABASE_URL",
		"store.postgres.host":     "DB_HOST",
		"store.postgres.port":     "DB_PORT",
		"store.postgres.user":     "DB_USER",
		"store.postgres.password": "DB_PASSWORD",
		"store.postgres.name":     "DB_NAME",
		"store.postgres.sslmode":  "DB_SSLMODE",
	} {
		if err := v.BindEnv(key, "AQUASAFE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "aquasafe.db")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", "5432")
	v.SetDefault("store.postgres.user", "aquasafe_user")
	v.SetDefault("store.postgres.password", "aquasafe_pass")
	v.SetDefault("store.postgres.name", "aquasafe_db")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("server.port", 8059)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("access.page_caps", map[string]int{"lower_official": 10, "higher_official": 0})
	v.SetDefault("access.default_cap", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// splitOrigins accepts both list values and a single comma separated string
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

// NewLogger builds a zap logger for cfg: JSON in production, console for
// local development.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}
