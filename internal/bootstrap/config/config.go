package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/errs"
)

const envPrefix = "CO"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Valuation ValuationConfig `mapstructure:"valuation"`
	Quote     QuoteConfig     `mapstructure:"quote"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Timezone string `mapstructure:"timezone"`
	BaseURL  string `mapstructure:"base_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr              string        `mapstructure:"addr"`
	AuthRatePerSecond float64       `mapstructure:"auth_rate_per_second"`
	AuthBurst         int           `mapstructure:"auth_burst"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type IdentityConfig struct {
	JWTSecret            string        `mapstructure:"jwt_secret"`
	TokenTTL             time.Duration `mapstructure:"token_ttl"`
	VerificationTTL      time.Duration `mapstructure:"verification_ttl"`
	RequireVerifiedEmail bool          `mapstructure:"require_verified_email"`
}

type ValuationConfig struct {
	AutoStart    bool          `mapstructure:"auto_start"`
	MinWait      time.Duration `mapstructure:"min_wait"`
	MaxWait      time.Duration `mapstructure:"max_wait"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	StaleAfter   time.Duration `mapstructure:"stale_after"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type QuoteConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Location resolves app.timezone, falling back to the process zone.
func (c AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errs.Wrapf(err, "load timezone %q", name)
	}
	return loc, nil
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	if err := loadDotEnv(logCtx); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		case configFile != "" && errors.Is(err, os.ErrNotExist):
			logging.Warn(logCtx, "config file not found, fallback to defaults and env", slog.String("path", configFile))
		default:
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("require_verified_email", cfg.Identity.RequireVerifiedEmail),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if strings.TrimSpace(c.Identity.JWTSecret) == "" {
		return errors.New("identity.jwt_secret is required")
	}
	if c.Valuation.MinWait > c.Valuation.MaxWait {
		return fmt.Errorf("valuation.min_wait %s exceeds valuation.max_wait %s", c.Valuation.MinWait, c.Valuation.MaxWait)
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	return nil
}

// loadDotEnv copies .env entries into the process environment; existing variables win.
func loadDotEnv(ctx context.Context) error {
	path := strings.TrimSpace(os.Getenv(envPrefix + "_ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errs.Wrapf(err, "load env file %q", path)
	}
	logging.Info(ctx, "env file loaded", slog.String("path", path))
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cashoffer")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.timezone", "Local")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".cashoffer/state/cashoffer.sqlite")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.auth_rate_per_second", 1.0)
	v.SetDefault("http.auth_burst", 5)
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("identity.jwt_secret", "")
	v.SetDefault("identity.token_ttl", "24h")
	v.SetDefault("identity.verification_ttl", "48h")
	v.SetDefault("identity.require_verified_email", true)
	v.SetDefault("valuation.auto_start", true)
	v.SetDefault("valuation.min_wait", "60s")
	v.SetDefault("valuation.max_wait", "120s")
	v.SetDefault("valuation.poll_interval", "5s")
	v.SetDefault("valuation.batch_size", 20)
	v.SetDefault("valuation.stale_after", "10m")
	v.SetDefault("valuation.max_attempts", 5)
	v.SetDefault("valuation.retry_backoff", "15s")
	v.SetDefault("quote.ttl", "168h")
}
