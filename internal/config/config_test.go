package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000", cfg.Server.ClientURL, "the server's own origin")
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/todo.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL.Std())
	assert.Equal(t, time.Hour, cfg.Session.SweepInterval.Std())
	assert.Equal(t, SessionStoreSQL, cfg.Session.Store)
	assert.False(t, cfg.Session.CookieSecure)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Google.Enabled())

	// No secret configured: one is generated and flagged.
	assert.True(t, cfg.Session.EphemeralSecret)
	assert.Len(t, cfg.Session.Secret, 64)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: 8080
  client_url: http://app.example.com
database:
  driver: postgres
  url: postgres://yaml@db/todos
session:
  ttl: 2h
  store: memory
log:
  level: debug
  format: json
`)

	cfg, err := load(path, env(map[string]string{
		"PORT":           "9090",
		"SESSION_SECRET": "0123456789abcdef",
		"COOKIE_SECURE":  "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "env overrides the file")
	assert.Equal(t, "http://app.example.com", cfg.Server.ClientURL)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://yaml@db/todos", cfg.Database.PostgresDSN())
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL.Std())
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, "0123456789abcdef", cfg.Session.Secret)
	assert.False(t, cfg.Session.EphemeralSecret)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// Untouched keys keep their defaults.
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestLoadGoogle(t *testing.T) {
	cfg, err := load("", env(map[string]string{
		"GOOGLE_CLIENT_ID":     "id",
		"GOOGLE_CLIENT_SECRET": "secret",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.Google.Enabled())
	assert.Equal(t, "http://localhost:3000/auth/google/callback", cfg.Google.CallbackURL)
}

func TestLoadDerivesURLsFromPort(t *testing.T) {
	cfg, err := load("", env(map[string]string{"PORT": "8080"}))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server.ClientURL)
	assert.Equal(t, "http://localhost:8080/auth/google/callback", cfg.Google.CallbackURL)

	// Explicit values win.
	cfg, err = load("", env(map[string]string{
		"PORT":                "8080",
		"CLIENT_URL":          "https://todo.example.com",
		"GOOGLE_CALLBACK_URL": "https://todo.example.com/auth/google/callback",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://todo.example.com", cfg.Server.ClientURL)
	assert.Equal(t, "https://todo.example.com/auth/google/callback", cfg.Google.CallbackURL)

	assert.Equal(t, "http://localhost:3000", Defaults().Server.ClientURL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr []string
	}{
		{
			name:    "unparseable values are all reported",
			vars:    map[string]string{"PORT": "abc", "SESSION_TTL": "forever", "COOKIE_SECURE": "maybe"},
			wantErr: []string{"PORT", "SESSION_TTL", "COOKIE_SECURE"},
		},
		{
			name: "validation problems are aggregated",
			vars: map[string]string{
				"DB_DRIVER":     "mongo",
				"SESSION_STORE": "redis",
				"BCRYPT_COST":   "3",
			},
			wantErr: []string{"database.driver", "session.store", "auth.bcrypt_cost"},
		},
		{
			name:    "short secret",
			vars:    map[string]string{"SESSION_SECRET": "short"},
			wantErr: []string{"session.secret"},
		},
		{
			name:    "non-positive ttl",
			vars:    map[string]string{"SESSION_TTL": "0s"},
			wantErr: []string{"session.ttl"},
		},
		{
			name:    "half-configured google",
			vars:    map[string]string{"GOOGLE_CLIENT_ID": "id"},
			wantErr: []string{"google"},
		},
		{
			name:    "postgres without a database",
			vars:    map[string]string{"DB_DRIVER": "postgres"},
			wantErr: []string{"postgres driver needs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load("", env(tt.vars))
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.ErrorContains(t, err, "reading")

	path := writeFile(t, "session:\n  ttl: soon\n")
	_, err = load(path, env(nil))
	assert.ErrorContains(t, err, "invalid duration")
}

func TestPostgresDSNFromParts(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "todo", Password: "p@ss", Name: "todos"}
	assert.Equal(t, "postgres://todo:p%40ss@db:5433/todos?sslmode=disable", d.PostgresDSN())

	d.Password = ""
	assert.Equal(t, "postgres://todo@db:5433/todos?sslmode=disable", d.PostgresDSN())
}
