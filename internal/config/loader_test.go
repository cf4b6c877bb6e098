package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify logging defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "structured", cfg.Logging.Profile)

		// No roots configured by default
		assert.Empty(t, cfg.Roots)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify overrides were applied
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Verify non-overridden values remain default
		assert.Equal(t, "structured", cfg.Logging.Profile)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("ARBOR_SERVER_PORT", "3000")
		t.Setenv("ARBOR_LOGGING_LEVEL", "warn")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("ARBOR_SERVER_PORT", "4000")

		// Runtime override should win over env var
		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("DurationFromEnv", func(t *testing.T) {
		t.Setenv("ARBOR_SERVER_READ_TIMEOUT", "45s")
		t.Setenv("ARBOR_SERVER_SHUTDOWN_TIMEOUT", "5m")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Load(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoad_Roots(t *testing.T) {
	ctx := context.Background()

	overrides := map[string]any{
		"roots": map[string]any{
			"handbook": map[string]any{
				"backend": "github",
				"id":      "acme/handbook",
				"path":    "/docs",
				"ref":     "main",
			},
			"archive": map[string]any{
				"backend":          "s3",
				"id":               "archive-bucket",
				"region":           "eu-west-1",
				"force_path_style": true,
			},
		},
	}

	cfg, err := Load(ctx, overrides)
	require.NoError(t, err)

	require.Len(t, cfg.Roots, 2)

	handbook := cfg.Roots["handbook"]
	assert.Equal(t, "github", handbook.Backend)
	assert.Equal(t, "acme/handbook", handbook.ID)
	assert.Equal(t, "/docs", handbook.Path)
	assert.Equal(t, "main", handbook.Ref)

	archive := cfg.Roots["archive"]
	assert.Equal(t, "s3", archive.Backend)
	assert.Equal(t, "eu-west-1", archive.Region)
	assert.True(t, archive.ForcePathStyle)
}

func TestLoad_RootValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		root        map[string]any
		errContains string
	}{
		{
			name:        "missing backend",
			root:        map[string]any{"id": "bucket"},
			errContains: "backend is required",
		},
		{
			name:        "missing id",
			root:        map[string]any{"backend": "s3"},
			errContains: "id is required",
		},
		{
			name:        "unknown backend",
			root:        map[string]any{"backend": "ftp", "id": "x"},
			errContains: "unknown backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(ctx, map[string]any{
				"roots": map[string]any{"bad": tt.root},
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()

	cfg, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Run("GetConfigReturnsLoadedConfig", func(t *testing.T) {
		retrieved := GetConfig()
		assert.NotNil(t, retrieved)
		assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
		assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
	})

	t.Run("ReloadUpdatesGetConfig", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{"port": cfg.Server.Port + 1000},
		}

		cfg2, err := Load(ctx, overrides)
		require.NoError(t, err)
		assert.Equal(t, cfg.Server.Port+1000, cfg2.Server.Port)

		current := GetConfig()
		assert.Equal(t, cfg2.Server.Port, current.Server.Port)
	})
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 70000}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port out of range")
}
