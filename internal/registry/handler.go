package registry

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/credpay/credpay/internal/apperr"
)

// Handler exposes registry endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a registry handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type changeUsernameRequest struct {
	WalletAddress string `json:"wallet_address"`
	NewUsername   string `json:"new_username"`
}

type userResponse struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username"`
	IsVerified    bool   `json:"is_verified"`
	CreatedAt     string `json:"created_at"`
	LastSeen      string `json:"last_seen"`
}

func toUserResponse(u User) userResponse {
	return userResponse{
		WalletAddress: u.WalletAddress,
		Username:      u.Username,
		IsVerified:    u.IsVerified,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339Nano),
		LastSeen:      u.LastSeen.Format(time.RFC3339Nano),
	}
}

// Register lazily creates a record for a connected wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), req.WalletAddress)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toUserResponse(user))
}

// Availability answers whether a username can be claimed by the given wallet.
func (h *Handler) Availability(c *fiber.Ctx) error {
	username := c.Query("username")
	currentWallet := c.Query("wallet")
	available, reason, err := h.service.Availability(c.UserContext(), username, currentWallet)
	if err != nil {
		return mapError(err)
	}
	resp := fiber.Map{"available": available}
	if reason != "" {
		resp["reason"] = reason
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// ChangeUsername renames the caller's handle.
func (h *Handler) ChangeUsername(c *fiber.Ctx) error {
	var req changeUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.ChangeUsername(c.UserContext(), req.WalletAddress, req.NewUsername)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"user":    toUserResponse(user),
	})
}

// ByWallet looks up a user record by wallet address.
func (h *Handler) ByWallet(c *fiber.Ctx) error {
	user, err := h.service.GetUserByWallet(c.UserContext(), c.Params("address"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toUserResponse(user))
}

type setVerifiedRequest struct {
	Verified bool `json:"verified"`
}

// SetVerified flips the trust badge for a wallet. Exposed for the operator
// tooling that runs the verification process.
func (h *Handler) SetVerified(c *fiber.Ctx) error {
	var req setVerifiedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SetVerified(c.UserContext(), c.Params("address"), req.Verified); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Resolve maps recipient input text to a destination address.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	address, err := h.service.Resolve(c.UserContext(), c.Params("recipient"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"address": address})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrUsernameTaken):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
