package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func (s *APIServer) handleHealth(c *fiber.Ctx) error {
	report := s.health.Check(c.UserContext())
	status := fiber.StatusOK
	if !report.Healthy() {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

func (s *APIServer) handleSimpleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Seconds(),
	})
}
