package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/stepflow/runtime/logger"
	"github.com/AltairaLabs/stepflow/runtime/statestore"
)

const (
	flagConfig = "config"
	envPrefix  = "STEPCTL"
	configName = "stepctl"
)

// settings is the merged configuration from flags, STEPCTL_* environment
// variables and stepctl.yaml, in that order of precedence.
type settings struct {
	Log         logger.LoggingConfigSpec `mapstructure:"log"`
	Listen      string                   `mapstructure:"listen"`
	MetricsAddr string                   `mapstructure:"metrics_addr"`
	Workflows   []string                 `mapstructure:"workflows"`
	Journal     string                   `mapstructure:"journal"`
	Redis       redisSettings            `mapstructure:"redis"`
	OTLP        otlpSettings             `mapstructure:"otlp"`
	Commands    commandSettings          `mapstructure:"commands"`
}

type redisSettings struct {
	Addr   string        `mapstructure:"addr"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type otlpSettings struct {
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

type commandSettings struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatText)
	v.SetDefault("listen", ":8080")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("journal", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("otlp.endpoint", "")
	v.SetDefault("workflows", []string{"workflows"})
	v.SetDefault("redis.prefix", "stepflow")
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("otlp.service", "stepctl")
	v.SetDefault("commands.rate", 20)
	v.SetDefault("commands.burst", 40)
}

// initConfig wires defaults, the environment and the optional config file.
// A missing stepctl.yaml is not an error; a missing explicit --config is.
func initConfig(v *viper.Viper) error {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString(flagConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loadSettings(v *viper.Viper) (*settings, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &s, nil
}

// openStore returns a Redis store when an address is configured, else nil.
func openStore(s *settings) (statestore.Store, func() error) {
	if s.Redis.Addr == "" {
		return nil, func() error { return nil }
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{s.Redis.Addr}})
	store := statestore.NewRedisStore(client,
		statestore.WithPrefix(s.Redis.Prefix),
		statestore.WithTTL(s.Redis.TTL),
	)
	return store, client.Close
}

// bindFlags binds config keys to the flags of the executing command. It runs
// at execution time since several commands share the same keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, flag := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}
