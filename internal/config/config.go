package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		Bind           string   `yaml:"bind"`
		PublicURL      string   `yaml:"publicURL"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Generator struct {
		BaseURL string `yaml:"baseURL"`
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		Topic   string `yaml:"topic"`
		Timeout string `yaml:"timeout"`
	} `yaml:"generator"`
	Game struct {
		TimeLimit         int    `yaml:"timeLimit"`
		QuestionsPerMatch int    `yaml:"questionsPerMatch"`
		Award             int    `yaml:"award"`
		AdvanceDelay      string `yaml:"advanceDelay"`
		TickThreshold     *int   `yaml:"tickThreshold"`
	} `yaml:"game"`
	Questions struct {
		CacheTTL string `yaml:"cacheTTL"`
	} `yaml:"questions"`
	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subjectPrefix"`
	} `yaml:"nats"`
}

// Load reads YAML config from path. A missing file yields the zero config so
// the service can run on flags and environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
