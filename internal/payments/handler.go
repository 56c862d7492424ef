package payments

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/credpay/credpay/internal/apperr"
	"github.com/credpay/credpay/internal/chain"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sendRequest struct {
	From      string `json:"from"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type sendResponse struct {
	TxHash      string   `json:"tx_hash"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	AmountWei   string   `json:"amount_wei"`
	State       State    `json:"state"`
	Trail       []State  `json:"trail"`
	CompletedAt string   `json:"completed_at"`
}

// Send processes a payment submission attempt.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Send(c.UserContext(), SendInput{
		From:      req.From,
		Recipient: req.Recipient,
		Amount:    req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, apperr.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, apperr.ErrNetworkMismatch):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(sendResponse{
		TxHash:      res.TxHash,
		From:        res.From,
		To:          res.To,
		AmountWei:   res.AmountWei,
		State:       res.State,
		Trail:       res.Trail,
		CompletedAt: res.CompletedAt.Format(time.RFC3339),
	})
}

// PayLink answers the /pay/<recipient>?amount= deep link with the data the
// payment form needs pre-filled.
func (h *Handler) PayLink(c *fiber.Ctx) error {
	recipient := c.Params("recipient")
	amount := c.Query("amount")

	address, err := h.service.Resolve(c.UserContext(), recipient)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	resp := fiber.Map{
		"recipient": recipient,
		"address":   address,
	}
	if amount != "" {
		if _, err := chain.ParseAmount(amount); err != nil {
			resp["amount_valid"] = false
		} else {
			resp["amount"] = amount
			resp["amount_valid"] = true
		}
	}
	return c.Status(http.StatusOK).JSON(resp)
}
