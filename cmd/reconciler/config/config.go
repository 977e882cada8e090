// Package config assembles component configurations from viper, layering
// config file values and RECONCILER_* environment variables over defaults.
package config

import (
	"p2p-reconciler/internal/matcher"
	"p2p-reconciler/internal/storage"
	"p2p-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// LoadMatcherConfig builds the matching policy, applying overrides from
// configuration on top of the defaults.
func LoadMatcherConfig() *matcher.Config {
	cfg := matcher.DefaultConfig()

	// Zero means "not overridden"; the defaults are never zero.
	if v := viper.GetInt("matching.minutes_threshold"); v > 0 {
		cfg.MinutesThreshold = v
	}
	if v := viper.GetFloat64("matching.amount_tolerance"); v > 0 {
		cfg.AmountTolerance = decimal.NewFromFloat(v)
	}
	if v := viper.GetFloat64("matching.commission"); v > 0 {
		cfg.Commission = decimal.NewFromFloat(v)
	}

	return cfg
}

// LoadStorageConfig builds the database configuration. The default is a
// local sqlite file, suitable for single-operator use; deployments set
// storage.driver=postgres and a DSN.
func LoadStorageConfig() *storage.Config {
	cfg := &storage.Config{
		Driver: "sqlite",
		DSN:    "reconciler.db",
	}

	if viper.IsSet("storage.driver") {
		cfg.Driver = viper.GetString("storage.driver")
	}
	if viper.IsSet("storage.dsn") {
		cfg.DSN = viper.GetString("storage.dsn")
	}

	return cfg
}

// LoadLoggerConfig builds the logger configuration; --verbose forces debug
// level regardless of the configured one.
func LoadLoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()

	if viper.IsSet("log.level") {
		cfg.Level = logger.Level(viper.GetString("log.level"))
	}
	if viper.IsSet("log.format") {
		cfg.Format = logger.Format(viper.GetString("log.format"))
	}
	if viper.IsSet("log.file") {
		cfg.File = viper.GetString("log.file")
	}

	if viper.GetBool("verbose") {
		cfg.Level = logger.DebugLevel
	}

	return cfg
}
