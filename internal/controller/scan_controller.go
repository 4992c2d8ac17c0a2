// FILE: internal/controller/scan_controller.go
package controller

import (
	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/pkg/serverutils"
	"ecospectre-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const IdempotencyHeader = "Idempotency-Key"

type IScanController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
}

type scanController struct {
	service service.IScanService
}

func NewScanController(service service.IScanService) IScanController {
	return &scanController{service: service}
}

func (c *scanController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/scans")
	h.Post("/", serverutils.OptionalJwtMiddleware, c.Create)
	h.Get("/", serverutils.OptionalJwtMiddleware, c.List)
}

func (c *scanController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateScanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	receipt, err := c.service.Create(ctx.UserContext(), serverutils.IdentityFrom(ctx), &req, ctx.Get(IdempotencyHeader))
	if err != nil {
		return err
	}

	res := dto.CreateScanResponse{Id: receipt.Id.String()}
	if receipt.Storage == entity.StorageMemory {
		res.Storage = string(entity.StorageMemory)
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *scanController) List(ctx *fiber.Ctx) error {
	var query dto.ListScansQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}

	scans, err := c.service.List(ctx.UserContext(), serverutils.IdentityFrom(ctx), query)
	if err != nil {
		return err
	}
	return ctx.JSON(scans)
}
