package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/credpay/credpay/internal/apperr"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"

	// A turn involves at most one transfer, so a short tool loop suffices.
	maxToolRounds = 4
)

const systemPrompt = "You are the CredPay assistant. You help users send CTC payments " +
	"to usernames or wallet addresses on Creditcoin Testnet. Use the send_payment tool " +
	"to execute transfers. Always confirm the recipient and amount back to the user. " +
	"If a payment is blocked, explain why without inventing details."

// GeminiRunner drives Google's generateContent API over plain HTTP, executing
// tool calls through the configured toolset until the model produces text.
type GeminiRunner struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	tools   *Toolset
}

// GeminiOption customises a GeminiRunner.
type GeminiOption func(*GeminiRunner)

// WithGeminiBaseURL overrides the API endpoint. Used by tests.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(r *GeminiRunner) { r.baseURL = strings.TrimRight(url, "/") }
}

// WithGeminiModel overrides the model name.
func WithGeminiModel(model string) GeminiOption {
	return func(r *GeminiRunner) { r.model = model }
}

// NewGeminiRunner builds a runner authenticated with the given API key.
func NewGeminiRunner(apiKey string, tools *Toolset, opts ...GeminiOption) *GeminiRunner {
	r := &GeminiRunner{
		apiKey:  apiKey,
		baseURL: defaultGeminiBaseURL,
		model:   defaultGeminiModel,
		http:    &http.Client{Timeout: 60 * time.Second},
		tools:   tools,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type geminiPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResp `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTools   `json:"tools,omitempty"`
}

type geminiTools struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func sendPaymentDeclaration() geminiFunctionDecl {
	return geminiFunctionDecl{
		Name:        ToolSendPayment,
		Description: "Send a CTC payment from the user's custodial wallet to a username or 0x address.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recipient": map[string]any{
					"type":        "string",
					"description": "Destination username or 0x wallet address.",
				},
				"amount": map[string]any{
					"type":        "string",
					"description": "Amount of CTC to send, as a decimal string.",
				},
			},
			"required": []string{"recipient", "amount"},
		},
	}
}

// Run implements Runner.
func (r *GeminiRunner) Run(ctx context.Context, input string, history []Message) (string, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, m := range history {
		role := m.Role
		if role != RoleModel {
			role = RoleUser
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	contents = append(contents, geminiContent{Role: RoleUser, Parts: []geminiPart{{Text: input}}})

	for round := 0; round < maxToolRounds; round++ {
		reply, err := r.generate(ctx, contents)
		if err != nil {
			return "", err
		}

		call := findFunctionCall(reply)
		if call == nil {
			return collectText(reply), nil
		}

		result, err := r.tools.Execute(ctx, ToolCall{Name: call.Name, Args: call.Args})
		if err != nil {
			return "", err
		}

		contents = append(contents, reply, geminiContent{
			Role: RoleUser,
			Parts: []geminiPart{{FunctionResponse: &geminiFunctionResp{
				Name:     call.Name,
				Response: map[string]any{"result": result},
			}}},
		})
	}

	return "", fmt.Errorf("%w: model did not settle after %d tool rounds", apperr.ErrExternalService, maxToolRounds)
}

func (r *GeminiRunner) generate(ctx context.Context, contents []geminiContent) (geminiContent, error) {
	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          contents,
		Tools:             []geminiTools{{FunctionDeclarations: []geminiFunctionDecl{sendPaymentDeclaration()}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return geminiContent{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", r.baseURL, r.model, r.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return geminiContent{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return geminiContent{}, fmt.Errorf("%w: %v", apperr.ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return geminiContent{}, fmt.Errorf("%w: %v", apperr.ErrExternalService, err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return geminiContent{}, fmt.Errorf("%w: malformed model response: %v", apperr.ErrExternalService, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return geminiContent{}, fmt.Errorf("%w: %s", apperr.ErrExternalService, msg)
	}
	if len(parsed.Candidates) == 0 {
		return geminiContent{}, fmt.Errorf("%w: model returned no candidates", apperr.ErrExternalService)
	}
	return parsed.Candidates[0].Content, nil
}

func findFunctionCall(content geminiContent) *geminiFunctionCall {
	for _, p := range content.Parts {
		if p.FunctionCall != nil {
			return p.FunctionCall
		}
	}
	return nil
}

func collectText(content geminiContent) string {
	var b strings.Builder
	for _, p := range content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
