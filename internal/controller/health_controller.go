package controller

import (
	"context"
	"time"

	"city-inspect-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	pingDB func(ctx context.Context) error
}

// NewHealthController reports service liveness. pingDB may be nil when
// the vector index is not configured.
func NewHealthController(pingDB func(ctx context.Context) error) IHealthController {
	return &healthController{pingDB: pingDB}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	components := fiber.Map{"api": "ok"}

	if c.pingDB != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
		defer cancel()
		if err := c.pingDB(pingCtx); err != nil {
			components["database"] = "unreachable"
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse("degraded"))
		}
		components["database"] = "ok"
	}

	return ctx.JSON(serverutils.SuccessResponse("healthy", components))
}
