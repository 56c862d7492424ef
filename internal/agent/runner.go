package agent

import "context"

// Role values accepted in chat history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of the conversation the caller maintains client-side and
// replays with every request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Runner produces the assistant's reply for one turn, executing tools as
// needed along the way.
type Runner interface {
	Run(ctx context.Context, input string, history []Message) (string, error)
}
