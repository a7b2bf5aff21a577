package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/ems/internal/flagx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	t.Setenv(flagx.ConfigPathEnv, "")

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"env":                             "dev",
		"http_addr":                       "www.example:9000",
		"request_timeout":                 "3s",
		"database_dsn":                    "ems.db",
		"session_backend":                 "redis",
		"redis_addr":                      "cache:6379",
		"redis_db":                        2,
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "1m",
		"refresh_token_validity_duration": "3m",
		"otp_validity_duration":           600000000000,
		"mailer_backend":                  "ses",
		"mail_from":                       "hr@example.com",
		"s3_bucket":                       "bucket",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, parseJson(cfg, []string{"-config", pathFlag}))

		assert.Equal(t, "dev", cfg.Env)
		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "ems.db", cfg.DatabaseDSN)
		assert.Equal(t, "redis", cfg.SessionBackend)
		assert.Equal(t, "cache:6379", cfg.RedisAddr)
		assert.Equal(t, 2, cfg.RedisDB)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 1*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 10*time.Minute, cfg.OTPValidityDuration)
		assert.Equal(t, "ses", cfg.MailerBackend)
		assert.Equal(t, "hr@example.com", cfg.MailFrom)
		assert.Equal(t, "bucket", cfg.S3Bucket)
	})

	t.Run("absent keys keep current values", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-c", pathFlag}))

		assert.Equal(t, "admin", cfg.S3RootUser)
		assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	})

	t.Run("no config and no flags → no changes", func(t *testing.T) {
		cfg := &Config{HTTPAddr: "defaults:1234", SecretKey: "key", OTPValidityDuration: 2 * time.Minute}
		require.NoError(t, parseJson(cfg, nil))

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.OTPValidityDuration)
	})

	t.Run("path from environment", func(t *testing.T) {
		t.Setenv(flagx.ConfigPathEnv, pathFlag)

		cfg := &Config{}
		require.NoError(t, parseJson(cfg, nil))
		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		cfg := &Config{}
		require.Error(t, parseJson(cfg, []string{"-config", bad}))
	})
}
