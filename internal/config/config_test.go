package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8787", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 720*time.Hour, cfg.Redis.EditorStateTTL)
	assert.Equal(t, "./data/repos", cfg.Repos.Dir)
	assert.True(t, cfg.Seed.Enabled)
	assert.Equal(t, "admin@kb.local", cfg.Seed.AdminEmail)
	assert.Empty(t, cfg.Minio.Endpoint)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")
	content := []byte(`
server:
  addr: ":9000"
auth:
  jwt_secret: "from-file"
  access_ttl: 1h
minio:
  endpoint: "localhost:9000"
  bucket: "images"
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv("KB_AUTH_JWT_SECRET", "from-env")
	t.Setenv("KB_REDIS_EDITOR_STATE_TTL", "2h")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, 2*time.Hour, cfg.Redis.EditorStateTTL)
	assert.Equal(t, "images", cfg.Minio.Bucket)
	assert.Equal(t, "./db/migrations", cfg.Database.MigrationsDir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("KB_AUTH_JWT_SECRET", " ")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"KB_SERVER_ADDR":             "server.addr",
		"KB_DATABASE_MIGRATIONS_DIR": "database.migrations_dir",
		"KB_MINIO_USE_SSL":           "minio.use_ssl",
		"KB_STANDALONE":              "standalone",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Fatalf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
