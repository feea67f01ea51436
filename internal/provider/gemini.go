package provider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini drives Google models through the genai SDK. The client is built
// lazily on first use so construction cannot fail.
type Gemini struct {
	apiKey string
	client *genai.Client
}

func NewGemini(apiKey string) *Gemini {
	return &Gemini{apiKey: apiKey}
}

func (c *Gemini) ensureClient(ctx context.Context) (*genai.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, errors.New("google API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *Gemini) Chat(ctx context.Context, model string, turns []Turn) (string, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(t.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}
