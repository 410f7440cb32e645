// Package config loads ytlive settings from defaults, a YAML or TOML file,
// a .env file and YTLIVE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "ytlive"

// Config is the complete recorder configuration.
type Config struct {
	APIKey             string `yaml:"api_key" toml:"api_key"`
	Proxy              string `yaml:"proxy" toml:"proxy"`
	CookiesFile        string `yaml:"cookies_file" toml:"cookies_file"`
	CookiesFromBrowser string `yaml:"browser" toml:"browser"` // passed to --cookies-from-browser

	OutputPath     string `yaml:"output_path" toml:"output_path"`
	TempPath       string `yaml:"temp_path" toml:"temp_path"`
	UnarchivedPath string `yaml:"unarchived_path" toml:"unarchived_path"`

	StartStreamLoopTime  int    `yaml:"start_stream_loop_time" toml:"start_stream_loop_time"` // seconds
	CheckInterval        int    `yaml:"check_interval" toml:"check_interval"`                 // seconds
	Loop                 bool   `yaml:"loop" toml:"loop"`
	DisableBus           bool   `yaml:"disable_bus" toml:"disable_bus"`
	DisableLiveFromStart bool   `yaml:"disable_live_from_start" toml:"disable_live_from_start"`
	CaptureTool          string `yaml:"capture_tool" toml:"capture_tool"`
	InContainer          bool   `yaml:"in_container" toml:"in_container"`

	MQTT       MQTTConfig  `yaml:"mqtt" toml:"mqtt"`
	Mongo      MongoConfig `yaml:"mongo" toml:"mongo"`
	StatusAddr string      `yaml:"status_addr" toml:"status_addr"`
	Log        LogConfig   `yaml:"log" toml:"log"`
}

// MQTTConfig holds the coordination bus broker settings.
// An empty Broker leaves the bus disabled.
type MQTTConfig struct {
	Broker      string `yaml:"broker" toml:"broker"`
	ClientID    string `yaml:"client_id" toml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"`
	Username    string `yaml:"username" toml:"username"`
	Password    string `yaml:"password" toml:"password"`
}

// MongoConfig holds the durable store settings.
// An empty URI selects the in-memory store.
type MongoConfig struct {
	URI      string `yaml:"uri" toml:"uri"`
	Database string `yaml:"database" toml:"database"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text, json
}

// Error is a configuration problem. The CLI exits with status 3 on it.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		OutputPath:          "recordings",
		TempPath:            filepath.Join("recordings", "temp"),
		UnarchivedPath:      filepath.Join("recordings", "unarchived"),
		StartStreamLoopTime: 10,
		CheckInterval:       600,
		CaptureTool:         "yt-dlp",
		Mongo:               MongoConfig{Database: appName},
		Log:                 LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path may be empty, in which case the
// default config file is used when it exists. Values from a .env file in
// the working directory never override variables already set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Field: ".env", Reason: err.Error()}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if !cfg.InContainer {
		cfg.InContainer = DetectContainer()
	}
	return cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/ytlive/config.yaml (or .toml) when
// such a file exists.
func DefaultPath() string {
	var dir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dir = filepath.Join(xdg, appName)
	} else if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config", appName)
	} else {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Field: "config file", Reason: err.Error()}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return &Error{Field: "config file", Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}
	return nil
}

// DetectContainer reports whether the process runs inside a container.
func DetectContainer() bool {
	if v, ok := os.LookupEnv("YTLIVE_IN_CONTAINER"); ok {
		return parseBoolLoose(v)
	}
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// Validate fills zero values with defaults and reports the first problem.
func (c *Config) Validate() error {
	def := Default()
	if strings.TrimSpace(c.APIKey) == "" {
		return &Error{Field: "api_key", Reason: "required (set YTLIVE_API_KEY or GOOGLE_API_KEY)"}
	}
	if c.OutputPath == "" {
		c.OutputPath = def.OutputPath
	}
	if c.TempPath == "" {
		c.TempPath = def.TempPath
	}
	if c.UnarchivedPath == "" {
		c.UnarchivedPath = def.UnarchivedPath
	}
	if c.CaptureTool == "" {
		c.CaptureTool = def.CaptureTool
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = def.Mongo.Database
	}
	if c.StartStreamLoopTime < 0 {
		return &Error{Field: "start_stream_loop_time", Reason: "must not be negative"}
	}
	if c.CheckInterval <= 0 {
		return &Error{Field: "check_interval", Reason: "must be positive"}
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "":
		c.Log.Level = def.Log.Level
	case "debug", "info", "warn", "error":
	default:
		return &Error{Field: "log.level", Reason: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = def.Log.Format
	case "text", "json":
	default:
		return &Error{Field: "log.format", Reason: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}

// WaitForVideo is the capture tool's --wait-for-video retry interval.
func (c *Config) WaitForVideo() time.Duration {
	return time.Duration(c.StartStreamLoopTime) * time.Second
}

// CheckEvery is the pause between live page checks while no candidate exists.
func (c *Config) CheckEvery() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

// LiveFromStart reports whether capture starts from the broadcast's beginning.
func (c *Config) LiveFromStart() bool {
	return !c.DisableLiveFromStart
}
