package controller

import (
	"errors"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/pkg/serverutils"
	"ecospectre-be/internal/repository/unitofwork"
	"ecospectre-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router)
	GetProfile(ctx *fiber.Ctx) error
	UpdateSettings(ctx *fiber.Ctx) error
	DeleteAccount(ctx *fiber.Ctx) error
}

type userController struct {
	service service.IUserService
}

func NewUserController(service service.IUserService) IUserController {
	return &userController{service: service}
}

func (c *userController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/users", serverutils.JwtMiddleware)
	h.Get("/me", c.GetProfile)
	h.Patch("/settings", c.UpdateSettings)
	h.Delete("/", c.DeleteAccount)
}

func (c *userController) userID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(serverutils.IdentityFrom(ctx).UserID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}
	return id, nil
}

func (c *userController) GetProfile(ctx *fiber.Ctx) error {
	id, err := c.userID(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.GetProfile(ctx.UserContext(), id)
	if err != nil {
		return userError(err)
	}
	return ctx.JSON(res)
}

func (c *userController) UpdateSettings(ctx *fiber.Ctx) error {
	id, err := c.userID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateSettingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.UpdateSettings(ctx.UserContext(), id, &req)
	if err != nil {
		return userError(err)
	}
	return ctx.JSON(res)
}

func (c *userController) DeleteAccount(ctx *fiber.Ctx) error {
	id, err := c.userID(ctx)
	if err != nil {
		return err
	}
	if err := c.service.DeleteAccount(ctx.UserContext(), id); err != nil {
		return userError(err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func userError(err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, unitofwork.ErrDurableUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Accounts are unavailable while storage is offline")
	}
	return err
}
