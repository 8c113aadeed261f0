// Package config loads supportflow settings from a yaml file and the environment.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "supportflow.yaml"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type Config struct {
	Backend      BackendConfig     `yaml:"backend"`
	Server       ServerConfig      `yaml:"server"`
	Redis        RedisConfig       `yaml:"redis"`
	Transcript   TranscriptConfig  `yaml:"transcript"`
	Escalation   EscalationConfig  `yaml:"escalation"`
	Log          LogConfig         `yaml:"log"`
	Greeting     string            `yaml:"greeting"`
	QuickActions map[string]string `yaml:"quick_actions"`
}

type BackendConfig struct {
	URL            string        `yaml:"url"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	HealthInterval time.Duration `yaml:"health_interval"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RedisConfig enables the redis event bus when URL is set.
type RedisConfig struct {
	URL string `yaml:"url"`
}

type TranscriptConfig struct {
	Store       string        `yaml:"store"`
	Path        string        `yaml:"path"`
	MaxMessages int           `yaml:"max_messages"`
	TTL         time.Duration `yaml:"ttl"`
}

type EscalationConfig struct {
	AgentID string `yaml:"agent_id"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	WithCaller bool   `yaml:"with_caller"`
}

func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:            "http://localhost:8000",
			Model:          "gemma3:latest",
			RequestTimeout: 30 * time.Second,
			HealthInterval: 30 * time.Second,
			ProbeTimeout:   10 * time.Second,
		},
		Server: ServerConfig{Port: 8081},
		Transcript: TranscriptConfig{
			Store:       StoreMemory,
			Path:        "supportflow.db",
			MaxMessages: 200,
			TTL:         24 * time.Hour,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (or DefaultPath when path is empty and the file exists), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrapf(err, "read %s", path)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overrides settings from the environment, using the same variable names as
// the deployment manifests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SUPPORTFLOW_BACKEND_URL"); ok && v != "" {
		c.Backend.URL = v
	}
	if v, ok := lookup("SUPPORTFLOW_MODEL"); ok && v != "" {
		c.Backend.Model = v
	}
	if v, ok := lookup("SUPPORTFLOW_TRANSCRIPT_STORE"); ok && v != "" {
		c.Transcript.Store = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Redis.URL = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid PORT %q", v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Transcript.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.Redis.URL == "" {
			return errors.New("transcript store redis requires redis.url or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown transcript store %q", c.Transcript.Store)
	}
	if c.Transcript.Store == StoreSQLite && c.Transcript.Path == "" {
		return errors.New("transcript store sqlite requires transcript.path")
	}
	if strings.TrimSpace(c.Backend.URL) == "" {
		return errors.New("backend.url is required")
	}
	if strings.TrimSpace(c.Backend.Model) == "" {
		return errors.New("backend.model is required")
	}
	if c.Backend.HealthInterval <= 0 {
		return errors.New("backend.health_interval must be positive")
	}
	if c.Backend.RequestTimeout <= 0 {
		return errors.New("backend.request_timeout must be positive")
	}
	if c.Backend.ProbeTimeout <= 0 {
		return errors.New("backend.probe_timeout must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Transcript.MaxMessages < 0 {
		return errors.New("transcript.max_messages must not be negative")
	}
	for name, text := range c.QuickActions {
		if strings.TrimSpace(text) == "" {
			return errors.Errorf("quick action %q has no text", name)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
