// Package config loads the process configuration once at startup. The result is
// passed explicitly to the components that need it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/locale"
	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/validation"
	"github.com/spf13/viper"
)

const (
	// DefaultName is the base name of the configuration file; any extension viper
	// understands (yaml, toml, json, properties) is accepted.
	DefaultName = "application"
	envPrefix   = "MINISHOP"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Language string `mapstructure:"language" validate:"required"`
	Country  string `mapstructure:"country" validate:"required"`
	Currency string `mapstructure:"currency" validate:"omitempty,len=3"`

	Env     string        `mapstructure:"env" validate:"oneof=dev test prod"`
	Service ServiceConfig `mapstructure:"service"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Payment PaymentConfig `mapstructure:"payment"`
	Gateway GatewayConfig `mapstructure:"gateway"`

	Locale locale.Locale `mapstructure:"-" validate:"-"`
}

type ServiceConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	File   string `mapstructure:"file"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type PaymentConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1"`
	BaseDelay   time.Duration `mapstructure:"base_delay" validate:"gte=0"`
	MaxDelay    time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
	Multiplier  float64       `mapstructure:"multiplier" validate:"gte=1"`
	Jitter      float64       `mapstructure:"jitter" validate:"gte=0,lt=1"`
}

type GatewayConfig struct {
	SuccessRate float64       `mapstructure:"success_rate" validate:"gte=0,lte=1"`
	Latency     time.Duration `mapstructure:"latency" validate:"gte=0"`
}

// Load searches paths for a file named DefaultName. With no paths it looks in
// the working directory and ./config.
func Load(paths ...string) (*Config, error) {
	v := newViper()
	v.SetConfigName(DefaultName)
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	return read(v)
}

// LoadFile reads exactly the file at path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return read(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"language", "country", "currency"} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("env", "dev")
	v.SetDefault("service.name", "minishop-checkout")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("payment.timeout", 2*time.Second)
	v.SetDefault("payment.retry.max_attempts", 3)
	v.SetDefault("payment.retry.base_delay", 100*time.Millisecond)
	v.SetDefault("payment.retry.max_delay", 2*time.Second)
	v.SetDefault("payment.retry.multiplier", 2.0)
	v.SetDefault("payment.retry.jitter", 0.1)
	v.SetDefault("gateway.success_rate", 0.9)
	v.SetDefault("gateway.latency", 50*time.Millisecond)
	return v
}

func read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", v.ConfigFileUsed(), err)
	}
	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, v.ConfigFileUsed(), err)
	}

	loc, err := locale.Parse(cfg.Language, cfg.Country, cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	cfg.Locale = loc
	return &cfg, nil
}
