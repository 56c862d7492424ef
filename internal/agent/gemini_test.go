package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/credpay/credpay/internal/custodial"
)

// fakeGemini serves canned generateContent responses in order.
func fakeGemini(t *testing.T, turns []geminiContent, requests *[]geminiRequest) *httptest.Server {
	t.Helper()
	i := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		*requests = append(*requests, req)

		if i >= len(turns) {
			t.Errorf("unexpected extra model call")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := geminiResponse{}
		resp.Candidates = append(resp.Candidates, struct {
			Content geminiContent `json:"content"`
		}{Content: turns[i]})
		i++
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGeminiRunnerToolLoop(t *testing.T) {
	ts, sim := newTestToolset(t, custodial.AccessPolicy{
		Enabled:    true,
		Level:      custodial.LevelSendLimited,
		DailyLimit: decimal.NewFromInt(5),
	})

	var requests []geminiRequest
	srv := fakeGemini(t, []geminiContent{
		{Role: RoleModel, Parts: []geminiPart{{FunctionCall: &geminiFunctionCall{
			Name: ToolSendPayment,
			Args: map[string]any{"recipient": "bob", "amount": "1"},
		}}}},
		{Role: RoleModel, Parts: []geminiPart{{Text: "Done, 1 CTC sent to bob."}}},
	}, &requests)
	defer srv.Close()

	runner := NewGeminiRunner("test-key", ts, WithGeminiBaseURL(srv.URL))
	out, err := runner.Run(context.Background(), "pay bob 1 ctc", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "Done, 1 CTC sent to bob." {
		t.Fatalf("output %q", out)
	}
	if len(sim.Sent()) != 1 {
		t.Fatalf("expected one transfer, got %d", len(sim.Sent()))
	}

	if len(requests) != 2 {
		t.Fatalf("expected two model calls, got %d", len(requests))
	}
	// Second call must replay the model's tool call plus the tool response.
	second := requests[1].Contents
	if len(second) != 3 {
		t.Fatalf("second request carried %d contents", len(second))
	}
	last := second[len(second)-1]
	if len(last.Parts) != 1 || last.Parts[0].FunctionResponse == nil {
		t.Fatalf("missing function response part: %+v", last)
	}
	if last.Parts[0].FunctionResponse.Name != ToolSendPayment {
		t.Fatalf("function response for %q", last.Parts[0].FunctionResponse.Name)
	}
}

func TestGeminiRunnerPlainAnswer(t *testing.T) {
	ts, _ := newTestToolset(t, custodial.AccessPolicy{})

	var requests []geminiRequest
	srv := fakeGemini(t, []geminiContent{
		{Role: RoleModel, Parts: []geminiPart{{Text: "Your wallet works on "}, {Text: "Creditcoin Testnet."}}},
	}, &requests)
	defer srv.Close()

	runner := NewGeminiRunner("test-key", ts, WithGeminiBaseURL(srv.URL))
	out, err := runner.Run(context.Background(), "which network?", []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "Your wallet works on Creditcoin Testnet." {
		t.Fatalf("output %q", out)
	}
	if len(requests[0].Contents) != 2 {
		t.Fatalf("history not replayed: %d contents", len(requests[0].Contents))
	}
	if requests[0].Tools == nil || len(requests[0].Tools[0].FunctionDeclarations) != 1 {
		t.Fatalf("send_payment declaration missing")
	}
}

func TestGeminiRunnerSurfacesAPIError(t *testing.T) {
	ts, _ := newTestToolset(t, custodial.AccessPolicy{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "quota exhausted"}})
	}))
	defer srv.Close()

	runner := NewGeminiRunner("test-key", ts, WithGeminiBaseURL(srv.URL))
	if _, err := runner.Run(context.Background(), "hello", nil); err == nil {
		t.Fatalf("expected error from non-200 response")
	}
}
