// Package app assembles the recorder from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/famomatic/ytlive/client"
	"github.com/famomatic/ytlive/internal/archive"
	"github.com/famomatic/ytlive/internal/bus"
	"github.com/famomatic/ytlive/internal/capture"
	"github.com/famomatic/ytlive/internal/channel"
	"github.com/famomatic/ytlive/internal/clock"
	"github.com/famomatic/ytlive/internal/config"
	"github.com/famomatic/ytlive/internal/cookies"
	"github.com/famomatic/ytlive/internal/detector"
	"github.com/famomatic/ytlive/internal/monitor"
	"github.com/famomatic/ytlive/internal/schedule"
	"github.com/famomatic/ytlive/internal/status"
	"github.com/famomatic/ytlive/internal/store"
)

const (
	platform = "youtube"
	// containerCookiesFile is used inside a container when no cookies file is configured.
	containerCookiesFile = "/app/cookies.txt"
	requestTimeout       = 30 * time.Second
)

// Store is the durable backend shared by the alias cache and the bus set.
type Store interface {
	channel.AliasCache
	bus.SetStore
	Close(ctx context.Context) error
}

// App holds the wired recorder.
type App struct {
	Config   *config.Config
	Client   *client.Client
	Resolver *channel.Resolver
	Monitor  *monitor.Monitor
	Tracker  *status.Tracker
	Events   *bus.Events
	Runner   *capture.YTDLP

	store     Store
	publisher bus.Publisher
	checks    map[string]status.HealthCheck
	logger    *slog.Logger
}

// ClientConfig maps recorder settings onto the platform client.
func ClientConfig(cfg *config.Config, logger *slog.Logger) (client.Config, error) {
	out := client.Config{
		APIKey:         cfg.APIKey,
		ProxyURL:       cfg.Proxy,
		RequestTimeout: requestTimeout,
		Logger:         client.SlogLogger(logger),
	}
	if cfg.CookiesFile != "" {
		jar, err := cookies.LoadJar(cfg.CookiesFile)
		if err != nil {
			return out, &config.Error{Field: "cookies_file", Reason: err.Error()}
		}
		out.CookieJar = jar
	}
	return out, nil
}

// NewClient builds only the platform client, for commands that need no
// storage or bus.
func NewClient(cfg *config.Config, logger *slog.Logger) (*client.Client, error) {
	ccfg, err := ClientConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return client.New(ccfg), nil
}

// New connects the store and bus and wires every lifecycle component.
// cfg must already be validated.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger, checks: map[string]status.HealthCheck{}}

	c, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Client = c

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openBus(ctx); err != nil {
		_ = a.store.Close(context.Background())
		return nil, err
	}

	clk := clock.Real{}
	a.Tracker = status.NewTracker(clk)
	a.Resolver = channel.NewResolver(c, a.store, logger)

	a.Runner = capture.NewYTDLP(cfg.CaptureTool, logger)
	a.Runner.CookiesFile = cfg.CookiesFile
	a.Runner.CookiesFromBrowser = cfg.CookiesFromBrowser
	if cfg.InContainer && cfg.CookiesFile == "" {
		if _, err := os.Stat(containerCookiesFile); err == nil {
			a.Runner.CookiesFile = containerCookiesFile
		}
	}

	layout := capture.Layout{
		TempRoot:       cfg.TempPath,
		OutputRoot:     cfg.OutputPath,
		UnarchivedRoot: cfg.UnarchivedPath,
	}
	supervisor := capture.NewSupervisor(c, a.Runner, a.Events, clk, capture.Config{
		Layout:        layout,
		LiveFromStart: cfg.LiveFromStart(),
		WaitForVideo:  cfg.WaitForVideo(),
	}, logger)
	supervisor.OnSession = a.Tracker.SetSession
	archiver := archive.NewArchiver(a.Events, archive.Config{
		UnarchivedRoot: cfg.UnarchivedPath,
		InContainer:    cfg.InContainer,
	}, logger)

	a.Monitor = monitor.New(monitor.Deps{
		Resolver:   a.Resolver,
		Videos:     c,
		Detector:   detector.New(c, clk, detector.Config{Interval: cfg.CheckEvery()}, logger),
		Waiter:     schedule.NewWaiter(c, clk, schedule.Config{}, logger),
		Supervisor: supervisor,
		Classifier: archive.NewClassifier(c, logger),
		Archiver:   archiver,
		Events:     a.Events,
		Tracker:    a.Tracker,
	}, monitor.Config{Loop: cfg.Loop}, logger)

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Mongo
	if cfg.URI == "" {
		a.store = store.NewMemory()
		return nil
	}
	m, err := store.ConnectMongo(ctx, cfg.URI, cfg.Database, a.logger)
	if err != nil {
		return err
	}
	a.store = m
	a.checks["mongo"] = m.Health
	return nil
}

func (a *App) openBus(ctx context.Context) error {
	cfg := a.Config
	switch {
	case cfg.DisableBus:
		a.logger.Info("bus disabled")
		a.publisher = bus.Nop{}
		a.Events = bus.NewEvents(a.publisher, nil, platform, a.logger)
		return nil
	case cfg.MQTT.Broker == "":
		a.logger.Warn("no mqtt broker configured, notifications are not published")
		a.publisher = bus.Nop{}
	default:
		p := bus.NewMQTTPublisher(bus.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         1,
		}, a.logger)
		if err := p.Connect(ctx); err != nil {
			return fmt.Errorf("connect bus: %w", err)
		}
		a.publisher = p
		a.checks["mqtt"] = func(context.Context) error {
			if !p.Stats().Connected {
				return errors.New("not connected")
			}
			return nil
		}
	}
	a.Events = bus.NewEvents(a.publisher, a.store, platform, a.logger)
	return nil
}

// StatusServer returns the HTTP status server for this app.
func (a *App) StatusServer() *status.Server {
	return status.NewServer(a.Tracker, a.checks, a.logger)
}

// Close releases the bus and the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close(ctx))
	}
	return errors.Join(errs...)
}
