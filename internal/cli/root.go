// Package cli implements the ytlive command tree.
package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/famomatic/ytlive/internal/config"
	"github.com/famomatic/ytlive/internal/version"
)

// ExitConfig is the exit status for configuration errors.
const ExitConfig = 3

type Dependencies struct {
	Out io.Writer
	Err io.Writer
	// LoadConfig defaults to config.Load.
	LoadConfig func(path string) (*config.Config, error)
}

type globalOptions struct {
	configPath string
	debug      bool
	logFormat  string
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Err == nil {
		deps.Err = os.Stderr
	}
	if deps.LoadConfig == nil {
		deps.LoadConfig = config.Load
	}
	global := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "ytlive",
		Short:         "Record scheduled YouTube livestreams unattended",
		Long:          "ytlive watches a channel for upcoming broadcasts, waits for them to start, records them with yt-dlp and files the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(deps.Out)
	rootCmd.SetErr(deps.Err)

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&global.configPath, "config", "", "Config file (YAML or TOML)")
	pf.BoolVar(&global.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&global.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(NewRecordCmd(deps, global))
	rootCmd.AddCommand(NewResolveCmd(deps, global))
	rootCmd.AddCommand(NewDoctorCmd(deps, global))
	rootCmd.AddCommand(NewVersionCmd(deps))

	return rootCmd
}

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	return 1
}

// loadConfig reads the config, applies command flags and the global logging
// flags, and builds the logger. Validation is left to the caller.
func (g *globalOptions) loadConfig(deps *Dependencies, apply func(*config.Config)) (*config.Config, error) {
	cfg, err := deps.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	if g.debug {
		cfg.Log.Level = "debug"
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	return cfg, nil
}

// NewLogger builds the process logger from the log settings.
func NewLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
