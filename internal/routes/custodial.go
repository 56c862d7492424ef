package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/credpay/credpay/internal/custodial"
)

// RegisterCustodialRoutes wires custodial wallet management, including the AI
// access policy endpoint.
func RegisterCustodialRoutes(api fiber.Router, h *custodial.Handler) {
	wallets := api.Group("/custodial/wallets")
	wallets.Post("/", h.Create)
	wallets.Get("/", h.List)
	wallets.Put("/:walletId/ai-access", h.UpdateAIAccess)
}
