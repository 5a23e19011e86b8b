package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/wallet-canister-backend/internal/icp"
	"github.com/rxtech-lab/wallet-canister-backend/internal/services"
	"go.uber.org/zap"
)

// Response is the envelope every API route answers with
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrOrphanedResource):
		return fiber.StatusInternalServerError
	case errors.Is(err, services.ErrResourceNotLive), errors.Is(err, services.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, icp.ErrResourceCreation),
		errors.Is(err, icp.ErrInstallation),
		errors.Is(err, icp.ErrStatusQuery),
		errors.Is(err, icp.ErrResourceDeletion):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *APIServer) sendError(c *fiber.Ctx, err error, message string) error {
	status := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error(message, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(Response{
		Success: false,
		Error:   message,
	})
}
