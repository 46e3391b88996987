// Package httpapi serves the daemon's health, status and scan trigger endpoints.
package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// ScanTrigger starts background scans and reports on them.
type ScanTrigger interface {
	RunAsync(ctx context.Context) error
	Snapshot() schema.RunSnapshot
}

// Server wraps the fiber app. Store may be nil.
type Server struct {
	app     *fiber.App
	trigger ScanTrigger
	store   contract.Store
	baseCtx context.Context
}

// New creates the server. Scans started over HTTP run under ctx,
// so they outlive the request that started them.
func New(ctx context.Context, trigger ScanTrigger, store contract.Store) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "testhub",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())

	s := &Server{app: app, trigger: trigger, store: store, baseCtx: ctx}
	s.Register(app)
	return s
}

// Register sets up the routes on router.
func (s *Server) Register(router fiber.Router) {
	router.Get("/healthz", s.Health)
	router.Get("/status", s.Status)
	router.Post("/scan", s.Scan)
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	contract.LogInfof("Listening on %s", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting requests and waits for open ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Health reports liveness.
func (s *Server) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Status returns the scheduler snapshot and, when a store is set, its status.
func (s *Server) Status(c fiber.Ctx) error {
	body := fiber.Map{"scheduler": s.trigger.Snapshot()}
	if s.store != nil {
		st, err := s.store.GetStatus(c.Context())
		if err != nil {
			body["store_error"] = err.Error()
		}
		body["store"] = st
	}
	return c.JSON(body)
}

// Scan starts a background scan: 202 when started, 409 when one is already running.
func (s *Server) Scan(c fiber.Ctx) error {
	err := s.trigger.RunAsync(s.baseCtx)
	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
	case errors.Is(err, contract.ErrScanInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
