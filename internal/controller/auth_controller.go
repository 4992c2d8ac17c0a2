// FILE: internal/controller/auth_controller.go
package controller

import (
	"errors"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/repository/unitofwork"
	"ecospectre-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
}

func NewAuthController(service service.IAuthService) IAuthController {
	return &authController{service: service}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/register", c.Register)
	h.Post("/login", c.Login)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, service.ErrCredentialsRequired.Error())
	}

	res, err := c.service.Register(ctx.UserContext(), &req)
	if err != nil {
		return authError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, service.ErrCredentialsRequired.Error())
	}

	res, err := c.service.Login(ctx.UserContext(), &req)
	if err != nil {
		return authError(err)
	}
	return ctx.JSON(res)
}

func authError(err error) error {
	switch {
	case errors.Is(err, service.ErrCredentialsRequired), errors.Is(err, service.ErrUserExists):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, unitofwork.ErrDurableUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Accounts are unavailable while storage is offline")
	}
	return err
}
