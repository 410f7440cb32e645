package status

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// HealthCheck reports a dependency failure, e.g. a store ping.
type HealthCheck func(ctx context.Context) error

// Server exposes /health and /status.
type Server struct {
	*fiber.App
	tracker *Tracker
	checks  map[string]HealthCheck
	logger  *slog.Logger
}

func NewServer(tracker *Tracker, checks map[string]HealthCheck, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	app := fiber.New(fiber.Config{
		AppName:               "ytlive",
		ServerHeader:          "ytlive",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           30 * time.Second,
		DisableStartupMessage: true,
	})
	s := &Server{
		App:     app,
		tracker: tracker,
		checks:  checks,
		logger:  logger.With("component", "status"),
	}
	s.App.Use(recover.New())
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	s.App.Get("/health", s.healthHandler)
	s.App.Get("/status", s.statusHandler)
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	result := fiber.Map{"status": "ok"}
	failed := fiber.Map{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		result["status"] = "degraded"
		result["errors"] = failed
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}
	return c.JSON(result)
}

func (s *Server) statusHandler(c *fiber.Ctx) error {
	return c.JSON(s.tracker.Snapshot())
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", addr)
		errCh <- s.App.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.App.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}
