package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/credpay/credpay/internal/middleware"
	"github.com/credpay/credpay/internal/payments"
)

// RegisterPaymentRoutes wires payment submission and the /pay deep link.
// Submission sits behind the idempotency guard when Redis is available so a
// retried request cannot double-send.
func RegisterPaymentRoutes(app *fiber.App, api fiber.Router, h *payments.Handler, d Deps) {
	pay := api.Group("/payments")
	if d.Cache != nil {
		pay.Post("/send", middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger), h.Send)
	} else {
		pay.Post("/send", h.Send)
	}

	// Shareable link: /pay/alice?amount=5 pre-fills the payment form.
	app.Get("/pay/:recipient", h.PayLink)
}
