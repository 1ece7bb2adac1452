package serverutils

import (
	"errors"
	"log"

	"city-inspect-be/pkg/session"
	"city-inspect-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps domain errors onto HTTP statuses. The
// message is the error text; internal failures are not echoed verbatim.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status, message := classify(err)
		if status == fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
			message = "internal server error"
		}
		return ctx.Status(status).JSON(ErrorResponse(message))
	}
}

func classify(err error) (int, string) {
	var validationErr *ValidationError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Message
	case errors.Is(err, store.ErrEmptyQuery):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrSessionExpired):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, store.ErrTaskNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, session.ErrInvalidTransition):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, store.ErrRetrievalFailure):
		return fiber.StatusBadGateway, err.Error()
	case errors.Is(err, store.ErrGenerationFailure):
		return fiber.StatusBadGateway, err.Error()
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, err.Error()
	}
}
