package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/credpay/credpay/internal/registry"
)

// RegisterUserRoutes wires the username registry endpoints.
func RegisterUserRoutes(api fiber.Router, h *registry.Handler) {
	users := api.Group("/users")
	users.Post("/register", h.Register)
	users.Get("/availability", h.Availability)
	users.Put("/username", h.ChangeUsername)
	users.Get("/:address", h.ByWallet)
	users.Put("/:address/verified", h.SetVerified)

	api.Get("/resolve/:recipient", h.Resolve)
}
