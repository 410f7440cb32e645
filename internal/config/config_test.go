package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"GOOGLE_API_KEY", "YTLIVE_API_KEY", "YTLIVE_PROXY", "YTLIVE_OUTPUT_PATH",
	"YTLIVE_START_STREAM_LOOP_TIME", "YTLIVE_CHECK_INTERVAL", "YTLIVE_LOOP",
	"YTLIVE_MQTT_BROKER", "YTLIVE_MONGO_URI", "YTLIVE_LOG_LEVEL",
}

// isolate points config discovery and .env loading at empty directories.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("YTLIVE_IN_CONTAINER", "false")
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return xdg
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CheckEvery() != 10*time.Minute {
		t.Fatalf("CheckEvery() = %v", cfg.CheckEvery())
	}
	if cfg.WaitForVideo() != 10*time.Second {
		t.Fatalf("WaitForVideo() = %v", cfg.WaitForVideo())
	}
	if !cfg.LiveFromStart() || cfg.Loop || cfg.InContainer {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
	if cfg.CaptureTool != "yt-dlp" {
		t.Fatalf("CaptureTool = %q", cfg.CaptureTool)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "ytlive.yaml")
	data := `
api_key: from-file
output_path: /srv/out
check_interval: 120
loop: true
mqtt:
  broker: tcp://broker:1883
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YTLIVE_OUTPUT_PATH", "/env/out")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "from-file" || cfg.OutputPath != "/env/out" || cfg.CheckInterval != 120 || !cfg.Loop {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" || cfg.Log.Level != "debug" {
		t.Fatalf("nested cfg = %+v %+v", cfg.MQTT, cfg.Log)
	}
	if cfg.TempPath != Default().TempPath {
		t.Fatalf("TempPath = %q, default should survive", cfg.TempPath)
	}
}

func TestLoadTOML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "ytlive.toml")
	data := "api_key = \"toml-key\"\ndisable_live_from_start = true\n\n[mongo]\nuri = \"mongodb://db:27017\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "toml-key" || cfg.LiveFromStart() || cfg.Mongo.URI != "mongodb://db:27017" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Mongo.Database != appName {
		t.Fatalf("Mongo.Database = %q", cfg.Mongo.Database)
	}
}

func TestLoadDiscoversXDGFile(t *testing.T) {
	xdg := isolate(t)
	dir := filepath.Join(xdg, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_key: xdg\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "xdg" {
		t.Fatalf("APIKey = %q", cfg.APIKey)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".env", []byte("YTLIVE_PROXY=http://proxy:8080\nYTLIVE_CHECK_INTERVAL=30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YTLIVE_CHECK_INTERVAL", "45")
	// godotenv only fills variables that are absent, not ones set empty.
	os.Unsetenv("YTLIVE_PROXY")
	t.Cleanup(func() { os.Unsetenv("YTLIVE_PROXY") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Proxy != "http://proxy:8080" {
		t.Fatalf("Proxy = %q", cfg.Proxy)
	}
	if cfg.CheckInterval != 45 {
		t.Fatalf("CheckInterval = %d, want env value 45", cfg.CheckInterval)
	}
}

func TestLoadGoogleAPIKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "google")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "google" {
		t.Fatalf("APIKey = %q", cfg.APIKey)
	}

	t.Setenv("YTLIVE_API_KEY", "ytlive")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "ytlive" {
		t.Fatalf("APIKey = %q, YTLIVE_API_KEY should win", cfg.APIKey)
	}
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	t.Run("bad integer", func(t *testing.T) {
		t.Setenv("YTLIVE_CHECK_INTERVAL", "ten")
		_, err := Load("")
		var cfgErr *Error
		if !errors.As(err, &cfgErr) || cfgErr.Field != "YTLIVE_CHECK_INTERVAL" {
			t.Fatalf("Load() error = %v, want *Error for YTLIVE_CHECK_INTERVAL", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		var cfgErr *Error
		if !errors.As(err, &cfgErr) {
			t.Fatalf("Load() error = %v, want *Error", err)
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("loop: [unterminated"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		var cfgErr *Error
		if !errors.As(err, &cfgErr) {
			t.Fatalf("Load() error = %v, want *Error", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"ok", func(c *Config) {}, ""},
		{"missing api key", func(c *Config) { c.APIKey = " " }, "api_key"},
		{"zero interval", func(c *Config) { c.CheckInterval = 0 }, "check_interval"},
		{"negative wait", func(c *Config) { c.StartStreamLoopTime = -1 }, "start_stream_loop_time"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.APIKey = "key"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var cfgErr *Error
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.wantField {
				t.Fatalf("Validate() error = %v, want field %s", err, tt.wantField)
			}
		})
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &Config{APIKey: "key", CheckInterval: 60, Log: LogConfig{Level: "WARN"}}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	def := Default()
	if cfg.OutputPath != def.OutputPath || cfg.TempPath != def.TempPath || cfg.UnarchivedPath != def.UnarchivedPath {
		t.Fatalf("paths = %q %q %q", cfg.OutputPath, cfg.TempPath, cfg.UnarchivedPath)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "text" || cfg.CaptureTool != "yt-dlp" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestDetectContainerEnv(t *testing.T) {
	t.Setenv("YTLIVE_IN_CONTAINER", "1")
	if !DetectContainer() {
		t.Fatal("DetectContainer() = false with YTLIVE_IN_CONTAINER=1")
	}
	t.Setenv("YTLIVE_IN_CONTAINER", "off")
	if DetectContainer() {
		t.Fatal("DetectContainer() = true with YTLIVE_IN_CONTAINER=off")
	}
}
