package serverutils

import (
	"errors"

	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/scan"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into {message} bodies.
// Unknown errors are logged and reported as a generic 500.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var verr *scan.ValidationError
		var aerr *scan.AuthError
		var ferr *fiber.Error
		switch {
		case errors.As(err, &verr):
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": verr.Error()})
		case errors.As(err, &aerr):
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": aerr.Error()})
		case errors.As(err, &ferr):
			return ctx.Status(ferr.Code).JSON(fiber.Map{"message": ferr.Message})
		}

		log.Error("HTTP", "Unhandled request error", map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"error":  err,
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": scan.ErrServerFault.Error()})
	}
}
