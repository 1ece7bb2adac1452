package controller

import (
	"city-inspect-be/internal/dto"
	"city-inspect-be/internal/pkg/serverutils"
	"city-inspect-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IInspectController interface {
	RegisterRoutes(r fiber.Router)
	AnalyzeImage(ctx *fiber.Ctx) error
	CompleteAnswer(ctx *fiber.Ctx) error
	Query(ctx *fiber.Ctx) error
}

type inspectController struct {
	inspectService service.IInspectService
}

func NewInspectController(inspectService service.IInspectService) IInspectController {
	return &inspectController{
		inspectService: inspectService,
	}
}

func (c *inspectController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/inspect/v1")
	h.Post("analyze-image", c.AnalyzeImage)
	h.Post("complete-answer", c.CompleteAnswer)
	h.Post("query", c.Query)
}

// AnalyzeImage runs phase 1. The `async` query flag returns a task id
// instead of blocking on the worker.
func (c *inspectController) AnalyzeImage(ctx *fiber.Ctx) error {
	var req dto.AnalyzeImageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if ctx.QueryBool("async") {
		res, err := c.inspectService.AnalyzeImageAsync(ctx.Context(), &req)
		if err != nil {
			return err
		}
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Analysis task enqueued", res))
	}

	res, err := c.inspectService.AnalyzeImage(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success analyze image", res))
}

func (c *inspectController) CompleteAnswer(ctx *fiber.Ctx) error {
	var req dto.CompleteAnswerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if ctx.QueryBool("async") {
		res, err := c.inspectService.CompleteAnswerAsync(ctx.Context(), &req)
		if err != nil {
			return err
		}
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Answer task enqueued", res))
	}

	res, err := c.inspectService.CompleteAnswer(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success complete answer", res))
}

func (c *inspectController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if ctx.QueryBool("async") {
		res, err := c.inspectService.QueryAsync(ctx.Context(), &req)
		if err != nil {
			return err
		}
		return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Query task enqueued", res))
	}

	res, err := c.inspectService.Query(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success query", res))
}
