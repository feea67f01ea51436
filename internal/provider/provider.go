// Package provider normalizes the chat-completion APIs the engine can talk
// to. Each client accepts ordered role/content turns and returns exactly one
// complete text reply; streaming is deliberately not exposed.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Turn is one conversation entry sent to a model.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the engine's view of one provider.
type Client interface {
	// Chat sends the full turn list and returns the assistant's reply text.
	Chat(ctx context.Context, model string, turns []Turn) (string, error)
}

// Transport-level failures shared across clients.
var (
	ErrUnauthorized = errors.New("provider rejected the API key")
	ErrRateLimited  = errors.New("provider rate limit exceeded")
	ErrUnavailable  = errors.New("provider temporarily unavailable")
)

// Info describes one selectable provider for the settings UI.
type Info struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Models      []string `json:"models"`
}

// Providers lists everything the engine can drive, in display order.
func Providers() []Info {
	return []Info{
		{
			ID:          "openai",
			DisplayName: "OpenAI",
			Models: []string{
				"gpt-5.2",
				"gpt-5-mini",
				"gpt-5-nano",
				"gpt-4.1",
				"gpt-4.1-mini",
				"gpt-4.1-nano",
			},
		},
		{
			ID:          "anthropic",
			DisplayName: "Anthropic",
			Models: []string{
				"claude-sonnet-4-5-20250929",
				"claude-haiku-4-5-20251001",
				"claude-opus-4-5-20251101",
				"claude-sonnet-4-20250514",
				"claude-opus-4-1-20250805",
			},
		},
		{
			ID:          "google",
			DisplayName: "Google",
			Models: []string{
				"gemini-2.5-pro",
				"gemini-2.5-flash",
			},
		},
	}
}

// New builds the client for a provider ID.
func New(providerID, apiKey string) (Client, error) {
	switch providerID {
	case "openai":
		return NewOpenAI(apiKey), nil
	case "anthropic":
		return NewAnthropic(apiKey), nil
	case "google":
		return NewGemini(apiKey), nil
	}
	return nil, fmt.Errorf("unknown provider: %s", providerID)
}
