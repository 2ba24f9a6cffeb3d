package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cases := map[string]struct {
		environment   map[string]string
		assertConfig  func(t *testing.T, cfg *Config)
		expectedError string
	}{
		"should apply defaults": {
			environment: map[string]string{"STORAGE_MEDIA_SECRET": "s3cret"},
			assertConfig: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Port)
				assert.Equal(t, DatabaseSQLite, cfg.Database.Driver)
				assert.Equal(t, StorageFilesystem, cfg.Storage.Backend)
				assert.Equal(t, 30*time.Second, cfg.Receipt.LoadTimeout)
				assert.Equal(t, "@daily", cfg.Reconcile.Schedule)
				assert.Equal(t, 24*time.Hour, cfg.Reconcile.Grace)
				assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
			},
		},
		"should read nested prefixes": {
			environment: map[string]string{
				"PORT":              "9090",
				"DB_DRIVER":         "postgres",
				"DB_DSN":            "postgres://localhost/tailor",
				"STORAGE_BACKEND":   "s3",
				"STORAGE_S3_BUCKET": "photos",
				"REDIS_ADDR":        "localhost:6379",
				"MYSQL_HOST":        "db",
				"MYSQL_USER":        "casbin",
				"MYSQL_PASSWORD":    "pw",
			},
			assertConfig: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Port)
				assert.Equal(t, DatabasePostgres, cfg.Database.Driver)
				assert.Equal(t, "photos", cfg.Storage.Bucket)
				assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
				assert.Equal(t, "casbin:pw@tcp(db:3306)/", cfg.MySQL.DSN())
			},
		},
		"should reject unknown drivers": {
			environment:   map[string]string{"DB_DRIVER": "oracle"},
			expectedError: `unsupported database driver "oracle"`,
		},
		"should reject unknown storage backends": {
			environment:   map[string]string{"STORAGE_BACKEND": "ftp"},
			expectedError: `unsupported storage backend "ftp"`,
		},
		"should require a media secret for filesystem storage": {
			environment:   map[string]string{},
			expectedError: "STORAGE_MEDIA_SECRET is required for filesystem storage",
		},
		"should report malformed values": {
			environment:   map[string]string{"PORT": "eighty", "STORAGE_MEDIA_SECRET": "s"},
			expectedError: "failed to parse config",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := load(env.Options{Environment: tc.environment})
			if tc.expectedError != "" {
				assert.ErrorContains(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			tc.assertConfig(t, cfg)
		})
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()

	custom := filepath.Join(dir, "shop.yaml")
	require.NoError(t, os.WriteFile(custom, []byte("title: 老王裁缝\nquick_prices: [15, 30]\ntime_zone: Asia/Tokyo\n"), 0o600))

	badZone := filepath.Join(dir, "zone.yaml")
	require.NoError(t, os.WriteFile(badZone, []byte("time_zone: Mars/Olympus\n"), 0o600))

	badYAML := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("quick_tags: {"), 0o600))

	t.Run("should default without a path", func(t *testing.T) {
		p, err := LoadProfile("")
		require.NoError(t, err)
		assert.Equal(t, DefaultProfile().QuickTags, p.QuickTags)
		assert.Equal(t, []int{10, 20, 50}, p.QuickPrices)
		assert.Equal(t, DefaultTimeZone, p.Location().String())
	})

	t.Run("should overlay the file on the defaults", func(t *testing.T) {
		p, err := LoadProfile(custom)
		require.NoError(t, err)
		assert.Equal(t, "老王裁缝", p.Title)
		assert.Equal(t, []int{15, 30}, p.QuickPrices)
		assert.Equal(t, DefaultProfile().QuickTags, p.QuickTags)
		assert.Equal(t, "Asia/Tokyo", p.Location().String())
	})

	t.Run("should reject unknown zones", func(t *testing.T) {
		_, err := LoadProfile(badZone)
		assert.ErrorContains(t, err, `invalid time zone "Mars/Olympus"`)
	})

	t.Run("should reject malformed yaml", func(t *testing.T) {
		_, err := LoadProfile(badYAML)
		assert.ErrorContains(t, err, "failed to parse profile")
	})

	t.Run("should report missing files", func(t *testing.T) {
		_, err := LoadProfile(filepath.Join(dir, "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read profile")
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "app.log")

	logger, closer := NewLogger(LogConfig{Level: "warn", File: file, MaxSizeMB: 1}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "order_id", "o-1")
	require.NoError(t, closer.Close())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), fmt.Sprintf("%q:%q", "version", "dev"))
	assert.Contains(t, buf.String(), fmt.Sprintf("%q:%q", "order_id", "o-1"))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))
}
