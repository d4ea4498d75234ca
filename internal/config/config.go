package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/reinvoice/reinvoice/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Catalog    CatalogConfig    `validate:"required"`
	Cache      CacheConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// BillingConfig carries the reconciliation knobs. The invoice lookback window
// and the raw-usage window are deliberately independent: the usage window is
// measured in billing periods and may reach behind the invoice cutoff,
// re-invoicing usage for a period the item diff no longer inspects.
type BillingConfig struct {
	// LookbackDays bounds the repair diff: persisted items whose period ends
	// before target date minus this window are trusted as final
	LookbackDays int `validate:"required,min=1"`
	// MaxRawUsagePreviousPeriods bounds how many past billing periods of raw
	// usage are read per reconciliation pass
	MaxRawUsagePreviousPeriods int `validate:"required,min=1"`
	// InArrearMode selects GREEDY or CONSERVATIVE billing of partial arrear periods
	InArrearMode types.InArrearMode `validate:"required"`
	// DefaultTimezone is used when an account carries no timezone of its own
	DefaultTimezone string `validate:"required"`
}

type CatalogConfig struct {
	// CacheTTL bounds how long a resolved catalog version set is reused
	// before the plugin marker is consulted again
	CacheTTL time.Duration `validate:"required"`
	// MaxTransientRetries bounds immediate retries of generic transient
	// plugin failures before the triggering event is abandoned
	MaxTransientRetries uint64 `validate:"min=1"`
	// TransientRetryInterval is the pause between those retries
	TransientRetryInterval time.Duration
}

type CacheConfig struct {
	Enabled bool
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/reinvoice")

	v.SetEnvPrefix("REINVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("billing.lookbackdays", 90)
	v.SetDefault("billing.maxrawusagepreviousperiods", 2)
	v.SetDefault("billing.inarrearmode", string(types.InArrearModeConservative))
	v.SetDefault("billing.defaulttimezone", "UTC")
	v.SetDefault("catalog.cachettl", 30*time.Minute)
	v.SetDefault("catalog.maxtransientretries", 3)
	v.SetDefault("catalog.transientretryinterval", 100*time.Millisecond)
	v.SetDefault("cache.enabled", true)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return c.Billing.InArrearMode.Validate()
}

// GetDefaultConfig returns a default configuration for local development and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Billing: BillingConfig{
			LookbackDays:               90,
			MaxRawUsagePreviousPeriods: 2,
			InArrearMode:               types.InArrearModeConservative,
			DefaultTimezone:            "UTC",
		},
		Catalog: CatalogConfig{
			CacheTTL:               30 * time.Minute,
			MaxTransientRetries:    3,
			TransientRetryInterval: time.Millisecond,
		},
		Cache: CacheConfig{Enabled: true},
	}
}
