package controller

import (
	"city-inspect-be/internal/pkg/serverutils"
	"city-inspect-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITaskController interface {
	RegisterRoutes(r fiber.Router)
	Status(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
}

type taskController struct {
	inspectService service.IInspectService
}

func NewTaskController(inspectService service.IInspectService) ITaskController {
	return &taskController{
		inspectService: inspectService,
	}
}

func (c *taskController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/task/v1")
	h.Get(":id", c.Status)
	h.Delete(":id", c.Cancel)
}

func (c *taskController) Status(ctx *fiber.Ctx) error {
	res, err := c.inspectService.TaskStatus(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get task status", res))
}

// Cancel is best-effort on RUNNING tasks; terminal tasks are left
// untouched and still answer success.
func (c *taskController) Cancel(ctx *fiber.Ctx) error {
	if err := c.inspectService.CancelTask(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Task cancellation requested", nil))
}
