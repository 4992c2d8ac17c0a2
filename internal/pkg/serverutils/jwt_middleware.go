package serverutils

import (
	"errors"
	"os"
	"strings"
	"time"

	"ecospectre-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTTL = 30 * 24 * time.Hour

	localsUserID   = "user_id"
	localsIdentity = "identity"
)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// SignToken issues the bearer token handed out on register and login.
func SignToken(userID, email string, now time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret())
}

// ParseToken verifies signature and expiry and returns the claims.
func ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerToken extracts the token from the Authorization header, or "" when absent.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

func attachIdentity(ctx *fiber.Ctx, claims *Claims) {
	ctx.Locals(localsUserID, claims.UserID)
	ctx.Locals(localsIdentity, entity.Authenticated(claims.UserID, claims.Email))
}

// OptionalJwtMiddleware attaches an authenticated identity when a valid bearer token is present.
// A missing or invalid token is not an error: the request continues as a guest.
func OptionalJwtMiddleware(ctx *fiber.Ctx) error {
	if tokenStr := BearerToken(ctx); tokenStr != "" {
		if claims, err := ParseToken(tokenStr); err == nil {
			attachIdentity(ctx, claims)
		}
	}
	return ctx.Next()
}

func JwtMiddleware(ctx *fiber.Ctx) error {
	tokenStr := BearerToken(ctx)
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}

	claims, err := ParseToken(tokenStr)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	attachIdentity(ctx, claims)
	return ctx.Next()
}

// IdentityFrom returns the identity attached by the middlewares, or a guest.
func IdentityFrom(ctx *fiber.Ctx) entity.Identity {
	if id, ok := ctx.Locals(localsIdentity).(entity.Identity); ok {
		return id
	}
	return entity.Guest()
}
