package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config file identity.
const (
	configName = "arbor"
	envPrefix  = "ARBOR"
)

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load resolves the application configuration.
//
// Precedence, lowest to highest: built-in defaults, an arbor.yaml file
// found in the search path, ARBOR_-prefixed environment variables, and
// finally the optional runtime overrides map.
//
// The loaded config is cached; GetConfig returns it until the next
// Load call.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/" + configName)
	v.AddConfigPath("/etc/" + configName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file is fine; defaults plus env apply.
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, override := range overrides {
		if err := v.MergeConfigMap(override); err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = cfg
	configMu.Unlock()

	return cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil if
// Load has not been called.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setDefaults registers built-in defaults on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", DefaultReadTimeout.String())
	v.SetDefault("server.write_timeout", DefaultWriteTimeout.String())
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout.String())
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout.String())

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.profile", DefaultLogProfile)
}
