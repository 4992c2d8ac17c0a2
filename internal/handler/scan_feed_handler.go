package handler

import (
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/pkg/serverutils"
	internalWS "ecospectre-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ScanFeedHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewScanFeedHandler(hub *internalWS.Hub, log logger.ILogger) *ScanFeedHandler {
	return &ScanFeedHandler{hub: hub, logger: log}
}

func (h *ScanFeedHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/scans/feed", h.ServeWs)
}

// ServeWs upgrades an authenticated request to the live scan feed.
func (h *ScanFeedHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket handshake, so the query wins.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c)
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}

	claims, err := serverutils.ParseToken(tokenStr)
	if err != nil {
		h.logger.Warn("ScanFeedHandler", "Invalid token in websocket handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}
	userID := claims.UserID

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ScanFeedHandler", "Starting websocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID)
			h.logger.Info("ScanFeedHandler", "Websocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
