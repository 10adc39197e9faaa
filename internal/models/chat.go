package models

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound body of POST /api/chat. Strict is a pointer so
// an absent field falls back to the configured default.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Context  string    `json:"context"`
	Strict   *bool     `json:"strict,omitempty"`
}

type ChatResponse struct {
	Reply    string          `json:"reply"`
	Products []ClientProduct `json:"products"`
}

// DecodingConfig is passed unchanged to the completion backend.
type DecodingConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}
