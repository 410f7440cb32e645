package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/famomatic/ytlive/internal/app"
	"github.com/famomatic/ytlive/internal/config"
)

// RecordOptions are the record command flags. Only flags set on the command
// line override the loaded configuration.
type RecordOptions struct {
	APIKey               string
	Proxy                string
	CookiesFile          string
	Browser              string
	OutputPath           string
	TempPath             string
	UnarchivedPath       string
	WaitForVideo         int
	CheckInterval        int
	Loop                 bool
	DisableBus           bool
	DisableLiveFromStart bool
	CaptureTool          string
	InContainer          bool
	MQTTBroker           string
	MongoURI             string
	StatusAddr           string
}

// Apply copies the flags reported by changed onto cfg.
func (o *RecordOptions) Apply(cfg *config.Config, changed func(name string) bool) {
	strs := []struct {
		flag string
		src  string
		dst  *string
	}{
		{"api-key", o.APIKey, &cfg.APIKey},
		{"proxy", o.Proxy, &cfg.Proxy},
		{"cookies", o.CookiesFile, &cfg.CookiesFile},
		{"browser", o.Browser, &cfg.CookiesFromBrowser},
		{"output", o.OutputPath, &cfg.OutputPath},
		{"temp", o.TempPath, &cfg.TempPath},
		{"unarchived", o.UnarchivedPath, &cfg.UnarchivedPath},
		{"capture-tool", o.CaptureTool, &cfg.CaptureTool},
		{"mqtt-broker", o.MQTTBroker, &cfg.MQTT.Broker},
		{"mongo-uri", o.MongoURI, &cfg.Mongo.URI},
		{"status-addr", o.StatusAddr, &cfg.StatusAddr},
	}
	for _, s := range strs {
		if changed(s.flag) {
			*s.dst = s.src
		}
	}
	bools := []struct {
		flag string
		src  bool
		dst  *bool
	}{
		{"loop", o.Loop, &cfg.Loop},
		{"disable-bus", o.DisableBus, &cfg.DisableBus},
		{"disable-live-from-start", o.DisableLiveFromStart, &cfg.DisableLiveFromStart},
		{"in-container", o.InContainer, &cfg.InContainer},
	}
	for _, b := range bools {
		if changed(b.flag) {
			*b.dst = b.src
		}
	}
	if changed("wait-for-video") {
		cfg.StartStreamLoopTime = o.WaitForVideo
	}
	if changed("check-interval") {
		cfg.CheckInterval = o.CheckInterval
	}
}

func NewRecordCmd(deps *Dependencies, global *globalOptions) *cobra.Command {
	opts := &RecordOptions{}

	cmd := &cobra.Command{
		Use:   "record <channel-url|channel-id|video-id|watch-url>",
		Short: "Record the next broadcast of a channel, or one specific broadcast",
		Long: "Record watches a channel's live page for the next scheduled broadcast, waits for it, " +
			"and records it with yt-dlp. Given a video id or watch URL it records that broadcast only. " +
			"With --loop it keeps monitoring the channel afterwards.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(deps, func(cfg *config.Config) {
				opts.Apply(cfg, cmd.Flags().Changed)
			})
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := NewLogger(deps.Err, cfg.Log)
			slog.SetDefault(logger)
			return runRecord(cmd.Context(), cfg, logger, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.APIKey, "api-key", "", "YouTube Data API key")
	f.StringVar(&opts.Proxy, "proxy", "", "HTTP proxy URL for platform requests")
	f.StringVar(&opts.CookiesFile, "cookies", "", "Netscape cookies.txt file")
	f.StringVar(&opts.Browser, "browser", "", "Browser to read cookies from (yt-dlp --cookies-from-browser)")
	f.StringVar(&opts.OutputPath, "output", "", "Output directory for finished recordings")
	f.StringVar(&opts.TempPath, "temp", "", "Directory recordings are written to while live")
	f.StringVar(&opts.UnarchivedPath, "unarchived", "", "Directory for deleted or members-only recordings")
	f.IntVar(&opts.WaitForVideo, "wait-for-video", 10, "Seconds between yt-dlp start checks")
	f.IntVar(&opts.CheckInterval, "check-interval", 600, "Seconds between live page checks when nothing is scheduled")
	f.BoolVar(&opts.Loop, "loop", false, "Keep monitoring the channel after a recording")
	f.BoolVar(&opts.DisableBus, "disable-bus", false, "Do not publish notifications or track recordings")
	f.BoolVar(&opts.DisableLiveFromStart, "disable-live-from-start", false, "Record from the current position and restart every 5h59m")
	f.StringVar(&opts.CaptureTool, "capture-tool", "", "Path to yt-dlp")
	f.BoolVar(&opts.InContainer, "in-container", false, "Force container mode")
	f.StringVar(&opts.MQTTBroker, "mqtt-broker", "", "MQTT broker address")
	f.StringVar(&opts.MongoURI, "mongo-uri", "", "MongoDB URI for durable state")
	f.StringVar(&opts.StatusAddr, "status-addr", "", "Listen address for the status endpoint, e.g. :8080")

	return cmd
}

func runRecord(ctx context.Context, cfg *config.Config, logger *slog.Logger, ref string) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	if !a.Runner.Available() {
		return &config.Error{Field: "capture_tool", Reason: a.Runner.Path + " not found"}
	}

	logger.Info("starting recorder",
		"ref", ref,
		"output", cfg.OutputPath,
		"temp", cfg.TempPath,
		"unarchived", cfg.UnarchivedPath,
		"loop", cfg.Loop,
		"live_from_start", cfg.LiveFromStart(),
		"in_container", cfg.InContainer,
	)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	if cfg.StatusAddr != "" {
		srv := a.StatusServer()
		g.Go(func() error { return srv.Serve(runCtx, cfg.StatusAddr) })
	}
	g.Go(func() error {
		defer stop()
		result, err := a.Monitor.Run(runCtx, ref)
		if err != nil {
			return err
		}
		logger.Info("recorder finished", "result", result.String())
		return nil
	})
	return g.Wait()
}
