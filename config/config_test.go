package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "supportflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	require.Equal(t, "gemma3:latest", cfg.Backend.Model)
	require.Equal(t, 30*time.Second, cfg.Backend.HealthInterval)
	require.Equal(t, 8081, cfg.Server.Port)
	require.Equal(t, StoreMemory, cfg.Transcript.Store)
	require.Equal(t, 200, cfg.Transcript.MaxMessages)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SUPPORTFLOW_BACKEND_URL", "")
	t.Setenv("SUPPORTFLOW_TRANSCRIPT_STORE", "")
	path := writeConfig(t, `
backend:
  url: http://support.internal:8000
  health_interval: 5s
transcript:
  store: sqlite
  path: /tmp/transcripts.db
escalation:
  agent_id: agent_007
quick_actions:
  refund: I would like a refund.
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://support.internal:8000", cfg.Backend.URL)
	require.Equal(t, 5*time.Second, cfg.Backend.HealthInterval)
	require.Equal(t, 30*time.Second, cfg.Backend.RequestTimeout)
	require.Equal(t, StoreSQLite, cfg.Transcript.Store)
	require.Equal(t, "agent_007", cfg.Escalation.AgentID)
	require.Equal(t, "I would like a refund.", cfg.QuickActions["refund"])
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "backend:\n  uri: http://typo\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SUPPORTFLOW_BACKEND_URL": "http://api:9000",
		"REDIS_URL":               "redis://redis:6379/0",
		"PORT":                    "9090",
		"ALLOWED_ORIGINS":         "https://a.example.com, https://b.example.com,",
		"LOG_LEVEL":               "debug",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	require.Equal(t, "http://api:9000", cfg.Backend.URL)
	require.Equal(t, "redis://redis:6379/0", cfg.Redis.URL)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "debug", cfg.Log.Level)

	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "PORT" {
			return "eighty", true
		}
		return noEnv(k)
	})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown store":      func(c *Config) { c.Transcript.Store = "postgres" },
		"redis without url":  func(c *Config) { c.Transcript.Store = StoreRedis },
		"zero interval":      func(c *Config) { c.Backend.HealthInterval = 0 },
		"negative timeout":   func(c *Config) { c.Backend.RequestTimeout = -time.Second },
		"empty model":        func(c *Config) { c.Backend.Model = " " },
		"bad port":           func(c *Config) { c.Server.Port = 70000 },
		"empty quick action": func(c *Config) { c.QuickActions = map[string]string{"x": ""} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Transcript.Store = StoreRedis
	cfg.Redis.URL = "redis://localhost:6379"
	require.NoError(t, cfg.Validate())
}
