package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/credpay/credpay/internal/agent"
	"github.com/credpay/credpay/internal/middleware"
)

// RegisterAgentRoutes wires the conversational agent endpoint behind a
// per-IP rate limit.
func RegisterAgentRoutes(api fiber.Router, h *agent.Handler, d Deps) {
	api.Post("/agent", middleware.AgentRateLimit(d.Cache, 10), h.Chat)
}
