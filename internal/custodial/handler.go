package custodial

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/credpay/credpay/internal/apperr"
)

// Handler exposes custodial wallet endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a custodial wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserID string `json:"user_id"`
	Label  string `json:"label"`
}

type aiAccessRequest struct {
	UserID     string `json:"user_id"`
	Enabled    bool   `json:"enabled"`
	Level      string `json:"level"`
	DailyLimit string `json:"daily_limit,omitempty"`
}

type walletResponse struct {
	WalletID   string `json:"wallet_id"`
	UserID     string `json:"user_id"`
	Label      string `json:"label"`
	Enabled    bool   `json:"ai_enabled"`
	Level      string `json:"ai_level"`
	DailyLimit string `json:"ai_daily_limit,omitempty"`
}

func toWalletResponse(w Wallet) walletResponse {
	resp := walletResponse{
		WalletID: w.WalletID,
		UserID:   w.UserID,
		Label:    w.Label,
		Enabled:  w.AIAccess.Enabled,
		Level:    string(w.AIAccess.Level),
	}
	if w.AIAccess.Level == LevelSendLimited {
		resp.DailyLimit = w.AIAccess.DailyLimit.String()
	}
	return resp
}

// Create provisions a custodial wallet.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	wallet, err := h.service.Create(c.UserContext(), req.UserID, req.Label)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toWalletResponse(wallet))
}

// List returns the caller's custodial wallets.
func (h *Handler) List(c *fiber.Ctx) error {
	wallets, err := h.service.ListByUser(c.UserContext(), c.Query("user"))
	if err != nil {
		return mapError(err)
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toWalletResponse(w))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// UpdateAIAccess updates a wallet's delegation policy.
func (h *Handler) UpdateAIAccess(c *fiber.Ctx) error {
	var req aiAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	policy := AccessPolicy{
		Enabled: req.Enabled,
		Level:   AccessLevel(req.Level),
	}
	if req.DailyLimit != "" {
		limit, err := decimal.NewFromString(req.DailyLimit)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid daily limit")
		}
		policy.DailyLimit = limit
	}

	wallet, err := h.service.UpdateAIAccess(c.UserContext(), req.UserID, c.Params("walletId"), policy)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toWalletResponse(wallet))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
