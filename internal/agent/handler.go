package agent

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/credpay/credpay/internal/apperr"
)

var errNotConfigured = fmt.Errorf("%w: GOOGLE_API_KEY, RPC_URL, AGENT_PRIVATE_KEY and AGENT_WALLET_ADDRESS must all be set", apperr.ErrConfiguration)

// Handler exposes the conversational agent endpoint.
type Handler struct {
	runner Runner
	log    Logger
}

// Logger is the minimal logging surface the handler needs.
type Logger interface {
	Error(msg string, args ...any)
}

// NewHandler builds the agent handler. A nil runner means the agent
// credentials are absent; requests then fail with a stable configuration
// error instead of a panic.
func NewHandler(runner Runner, log Logger) *Handler {
	return &Handler{runner: runner, log: log}
}

type chatRequest struct {
	Input       string    `json:"input"`
	ChatHistory []Message `json:"chatHistory"`
}

type chatResponse struct {
	Output string `json:"output"`
}

type chatError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Chat handles one conversational turn. All failures map to 500 with a stable
// {error, details} body so the client's error path stays uniform.
func (h *Handler) Chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Input == "" {
		return fiber.NewError(http.StatusBadRequest, "input is required")
	}

	if h.runner == nil {
		return c.Status(http.StatusInternalServerError).JSON(chatError{
			Error:   "Failed to process request",
			Details: errNotConfigured.Error(),
		})
	}

	output, err := h.runner.Run(c.UserContext(), req.Input, req.ChatHistory)
	if err != nil {
		if h.log != nil {
			h.log.Error("agent turn failed", "error", err)
		}
		return c.Status(http.StatusInternalServerError).JSON(chatError{
			Error:   "Failed to process request",
			Details: err.Error(),
		})
	}

	return c.Status(http.StatusOK).JSON(chatResponse{Output: output})
}
