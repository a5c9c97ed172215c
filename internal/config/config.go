package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. COURTBOARD_LISTEN
// or COURTBOARD_CAPTURE_ENABLED.
const EnvPrefix = "courtboard"

// FeedConfig describes an ICS subscription whose events become court blocks.
type FeedConfig struct {
	// ID is stored as Block.Source so a refresh can replace the feed's blocks.
	ID string `yaml:"id" json:"id"`
	// URL is the ICS endpoint.
	URL string `yaml:"url" json:"url"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
	// Courts lists the courts every feed event blocks. Empty means all courts.
	Courts []int `yaml:"courts" json:"courts"`
	// Wet marks every event from this feed as a wet-court block, regardless
	// of WetKeywords.
	Wet bool `yaml:"wet" json:"wet"`
}

// CaptureConfig controls the headless screenshot of the court board.
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
	Output  string `yaml:"output" json:"output"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the admin API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and board page.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone the club's calendar days are counted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Courts is the number of courts, numbered 1..Courts.
	Courts int `yaml:"courts" json:"courts"`

	// RefreshCron is a cron spec (e.g. "*/5 * * * *") for feed refresh and
	// board capture.
	RefreshCron string `yaml:"refresh" json:"refresh" split_words:"true"`

	// HorizonDays is how far ahead feed events are imported.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days" split_words:"true"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" split_words:"true"`

	// WetKeywords mark an imported feed event as a wet-court block when its
	// summary contains any of them (case-insensitive).
	WetKeywords []string `yaml:"wet_keywords" json:"wet_keywords" split_words:"true"`

	// CacheDir holds the on-disk ICS cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" split_words:"true"`

	Feeds []FeedConfig `yaml:"feeds" json:"feeds" ignored:"true"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if set, protects every endpoint except /health and /board.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" ignored:"true"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "America/Chicago",
		Courts:      12,
		RefreshCron: "*/5 * * * *",
		HorizonDays: 30,
		LogLevel:    "info",
		WetKeywords: []string{"wet", "rain"},
		CacheDir:    "./var/ics-cache",
		Feeds:       []FeedConfig{},
		Capture: CaptureConfig{
			URL:    "http://127.0.0.1:8080/board",
			Output: "./var/preview.png",
			Width:  1280,
			Height: 800,
		},
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Courts <= 0 {
		c.Courts = def.Courts
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.WetKeywords == nil {
		c.WetKeywords = def.WetKeywords
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].ID == "" {
			if c.Feeds[i].Name != "" {
				c.Feeds[i].ID = c.Feeds[i].Name
			} else {
				c.Feeds[i].ID = c.Feeds[i].URL
			}
		}
	}
	if c.Capture.URL == "" {
		c.Capture.URL = def.Capture.URL
	}
	if c.Capture.Output == "" {
		c.Capture.Output = def.Capture.Output
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Capture.Height
	}
}

// Location resolves Timezone, falling back to time.Local when the zone is
// unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	seen := make(map[string]bool, len(c.Feeds))
	for _, f := range c.Feeds {
		if f.URL == "" {
			return fmt.Errorf("config: feed %q has no url", f.ID)
		}
		if seen[f.ID] {
			return fmt.Errorf("config: duplicate feed id %q", f.ID)
		}
		seen[f.ID] = true
		for _, n := range f.Courts {
			if n < 1 || n > c.Courts {
				return fmt.Errorf("config: feed %q court %d out of range 1..%d", f.ID, n, c.Courts)
			}
		}
	}
	return nil
}

// ApplyEnv overlays COURTBOARD_* environment variables onto c. Variables
// that are not set leave the loaded values alone.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path, then applies
// environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created if needed) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Even if save fails, return cfg with error so caller can decide.
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Normalize()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) when needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".courtboard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
