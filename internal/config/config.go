package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Jobs   JobsConfig   `yaml:"jobs"`
	Render RenderConfig `yaml:"render"`
	Paths  PathsConfig  `yaml:"paths"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type AuthConfig struct {
	TokenTTLHours int `yaml:"token_ttl_hours"`
}

type JobsConfig struct {
	Workers             int   `yaml:"workers"`
	PollIntervalSec     int   `yaml:"poll_interval_sec"`
	FetchAttempts       int   `yaml:"fetch_attempts"`
	FetchBackoffSec     int   `yaml:"fetch_backoff_sec"`
	FetchTimeoutSec     int   `yaml:"fetch_timeout_sec"`
	RenderTimeoutSec    int   `yaml:"render_timeout_sec"`
	StaleAfterSec       int   `yaml:"stale_after_sec"`
	AcceptedMaxComments []int `yaml:"accepted_max_comments"`
}

type RenderConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FPS        int    `yaml:"fps"`
	FontSize   int    `yaml:"font_size"`
	Voice      string `yaml:"voice"`
	Background string `yaml:"background"`
}

type PathsConfig struct {
	DataDir   string `yaml:"data_dir"`
	VideosDir string `yaml:"videos_dir"`
}

// Load reads config.yaml and returns a Config struct with defaults applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a Config with every field at its default value, for use
// when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = 24 * 7
	}
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = 2
	}
	if c.Jobs.PollIntervalSec <= 0 {
		c.Jobs.PollIntervalSec = 1
	}
	if c.Jobs.FetchAttempts <= 0 {
		c.Jobs.FetchAttempts = 3
	}
	if c.Jobs.FetchBackoffSec <= 0 {
		c.Jobs.FetchBackoffSec = 2
	}
	if c.Jobs.FetchTimeoutSec <= 0 {
		c.Jobs.FetchTimeoutSec = 30
	}
	if c.Jobs.RenderTimeoutSec <= 0 {
		c.Jobs.RenderTimeoutSec = 600
	}
	if c.Jobs.StaleAfterSec <= 0 {
		c.Jobs.StaleAfterSec = 900
	}
	if len(c.Jobs.AcceptedMaxComments) == 0 {
		c.Jobs.AcceptedMaxComments = []int{3, 5, 10}
	}
	if c.Render.Width <= 0 {
		c.Render.Width = 1920
	}
	if c.Render.Height <= 0 {
		c.Render.Height = 1080
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = 24
	}
	if c.Render.FontSize <= 0 {
		c.Render.FontSize = 48
	}
	if c.Render.Voice == "" {
		c.Render.Voice = "en-US-GuyNeural"
	}
	if c.Render.Background == "" {
		c.Render.Background = "0x101018"
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "./data"
	}
	if c.Paths.VideosDir == "" {
		c.Paths.VideosDir = "./videos"
	}
}

// MaxCommentsAccepted reports whether n is one of the accepted submission values.
func (c *Config) MaxCommentsAccepted(n int) bool {
	for _, v := range c.Jobs.AcceptedMaxComments {
		if v == n {
			return true
		}
	}
	return false
}
