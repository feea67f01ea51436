package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	anthropicMaxTok  = 4096
)

// Anthropic drives the Messages API. System turns are lifted into the
// top-level system field, which the API requires.
type Anthropic struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAnthropic(apiKey string) *Anthropic {
	return &Anthropic{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Anthropic) Chat(ctx context.Context, model string, turns []Turn) (string, error) {
	messages := make([]Turn, 0, len(turns))
	var system []string
	for _, t := range turns {
		if t.Role == RoleSystem {
			system = append(system, t.Content)
			continue
		}
		messages = append(messages, t)
	}
	payload := map[string]any{
		"model":      model,
		"max_tokens": anthropicMaxTok,
		"messages":   messages,
	}
	if len(system) > 0 {
		payload["system"] = strings.Join(system, "\n\n")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if err := statusError(resp.StatusCode, respBody); err != nil {
		return "", err
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("anthropic response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("anthropic: %s", decoded.Error.Message)
	}
	var parts []string
	for _, block := range decoded.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("anthropic returned no text content")
	}
	return strings.Join(parts, "\n"), nil
}
