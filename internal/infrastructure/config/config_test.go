package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bivex/storekit-manager/internal/infrastructure/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadFrom(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		v := viper.New()
		v.Set("jwt.secret", testSecret)

		cfg, err := config.LoadFrom(v)
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, config.PlatformSandbox, cfg.Platform.Mode)
		assert.Equal(t, 15*time.Minute, cfg.Manager.CatalogTTL)
		assert.Equal(t, "storekit.events", cfg.Events.Channel)
		assert.False(t, cfg.Notify.Enabled)
	})

	t.Run("reads environment variables", func(t *testing.T) {
		t.Setenv("JWT_SECRET", testSecret)
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("PLATFORM_MODE", "remote")
		t.Setenv("PLATFORM_BASE_URL", "https://gateway.local")
		t.Setenv("EVENTS_SOURCE", "nats")
		t.Setenv("MANAGER_CATALOG_TTL", "2m")

		cfg, err := config.LoadFrom(viper.New())
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, config.PlatformRemote, cfg.Platform.Mode)
		assert.Equal(t, "https://gateway.local", cfg.Platform.BaseURL)
		assert.Equal(t, config.EventsNATS, cfg.Events.Source)
		assert.Equal(t, 2*time.Minute, cfg.Manager.CatalogTTL)
	})

	t.Run("environment overrides keep the remaining defaults", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")

		v := viper.New()
		v.Set("jwt.secret", testSecret)

		cfg, err := config.LoadFrom(v)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 120, cfg.Server.RateLimit)
		assert.Equal(t, "development", cfg.Server.Environment)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			setup func(v *viper.Viper)
			want  string
		}{
			{
				name:  "missing secret",
				setup: func(v *viper.Viper) {},
				want:  "JWT_SECRET is required",
			},
			{
				name:  "short secret",
				setup: func(v *viper.Viper) { v.Set("jwt.secret", "short") },
				want:  "at least 32 characters",
			},
			{
				name: "remote without base url",
				setup: func(v *viper.Viper) {
					v.Set("jwt.secret", testSecret)
					v.Set("platform.mode", "remote")
				},
				want: "PLATFORM_BASE_URL",
			},
			{
				name: "unknown event source",
				setup: func(v *viper.Viper) {
					v.Set("jwt.secret", testSecret)
					v.Set("platform.mode", "remote")
					v.Set("platform.base_url", "https://gateway.local")
					v.Set("events.source", "kafka")
				},
				want: "EVENTS_SOURCE",
			},
			{
				name: "unknown mode",
				setup: func(v *viper.Viper) {
					v.Set("jwt.secret", testSecret)
					v.Set("platform.mode", "hardware")
				},
				want: "PLATFORM_MODE",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				v := viper.New()
				tt.setup(v)

				_, err := config.LoadFrom(v)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.want)
			})
		}
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	dotenv := "JWT_SECRET=" + testSecret + "\nSERVER_PORT=7000\nNOTIFY_QUEUE=billing\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))
	t.Chdir(dir)

	t.Run("reads the .env file", func(t *testing.T) {
		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 7000, cfg.Server.Port)
		assert.Equal(t, "billing", cfg.Notify.Queue)
		assert.Equal(t, 15*time.Minute, cfg.Manager.CatalogTTL)
	})

	t.Run("environment wins over .env", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9191")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 9191, cfg.Server.Port)
		assert.Equal(t, "billing", cfg.Notify.Queue)
	})
}
