package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StatusApp exposes the server's health and lobby counters over HTTP.
func (s *Server) StatusApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	app.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.Stats())
	})
	return app
}

// ServeStatus runs the status endpoint on addr until ctx is cancelled.
func (s *Server) ServeStatus(ctx context.Context, addr string) error {
	app := s.StatusApp()
	go func() {
		<-ctx.Done()
		app.Shutdown()
	}()
	s.log.Info().Str("addr", addr).Msg("status endpoint listening")
	return app.Listen(addr)
}
