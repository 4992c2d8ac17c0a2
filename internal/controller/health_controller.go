package controller

import (
	"ecospectre-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	scans service.IScanService
}

func NewHealthController(scans service.IScanService) IHealthController {
	return &healthController{scans: scans}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

// Health always answers 200; storage tells clients whether writes are durable right now.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":  "ok",
		"storage": string(c.scans.StorageMode()),
	})
}
