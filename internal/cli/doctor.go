package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/famomatic/ytlive/internal/capture"
	"github.com/famomatic/ytlive/internal/config"
	"github.com/famomatic/ytlive/internal/cookies"
)

func NewDoctorCmd(deps *Dependencies, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(deps, nil)
			if err != nil {
				return err
			}
			if Doctor(deps.Out, cfg) {
				fmt.Fprintln(deps.Out, "\nAll prerequisites met. Ready to record.")
			} else {
				fmt.Fprintln(deps.Out, "\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

// Doctor writes one line per check and reports whether all passed.
func Doctor(w io.Writer, cfg *config.Config) bool {
	ok := true
	check := func(name string, pass bool, detail string) {
		mark := "ok"
		if !pass {
			mark = "!!"
			ok = false
		}
		fmt.Fprintf(w, "[%s] %-18s %s\n", mark, name, detail)
	}

	runner := capture.NewYTDLP(cfg.CaptureTool, nil)
	if runner.Available() {
		check("capture tool", true, runner.Path)
	} else {
		check("capture tool", false, runner.Path+" not found; install yt-dlp or set capture_tool")
	}

	if cfg.APIKey != "" {
		check("api key", true, "configured")
	} else {
		check("api key", false, "not set; set YTLIVE_API_KEY or GOOGLE_API_KEY")
	}

	switch {
	case cfg.CookiesFile != "":
		list, err := cookies.LoadFile(cfg.CookiesFile)
		if err != nil {
			check("cookies", false, err.Error())
		} else {
			check("cookies", true, fmt.Sprintf("%d cookies in %s", len(list), cfg.CookiesFile))
		}
	case cfg.CookiesFromBrowser != "":
		check("cookies", true, "from browser "+cfg.CookiesFromBrowser)
	default:
		check("cookies", true, "none; members-only broadcasts cannot be recorded")
	}

	for _, dir := range []struct{ name, path string }{
		{"temp path", cfg.TempPath},
		{"output path", cfg.OutputPath},
		{"unarchived path", cfg.UnarchivedPath},
	} {
		if err := writable(dir.path); err != nil {
			check(dir.name, false, err.Error())
		} else {
			check(dir.name, true, dir.path)
		}
	}

	if cfg.DisableBus {
		check("bus", true, "disabled")
	} else if cfg.MQTT.Broker == "" {
		check("bus", true, "no broker configured")
	} else {
		check("bus", true, cfg.MQTT.Broker)
	}
	return ok
}

func writable(dir string) error {
	if dir == "" {
		return fmt.Errorf("not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".ytlive-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
