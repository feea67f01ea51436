package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChat(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "hello"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test")
	c.baseURL = srv.URL
	reply, err := c.Chat(context.Background(), "gpt-5.2", []Turn{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-5.2", gotBody["model"])
}

func TestOpenAIUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAI("bad")
	c.baseURL = srv.URL
	_, err := c.Chat(context.Background(), "gpt-5.2", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAnthropicChatLiftsSystemTurn(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "hi "}, {"type": "text", "text": "there"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropic("sk-ant")
	c.baseURL = srv.URL
	reply, err := c.Chat(context.Background(), "claude-sonnet-4-5-20250929", []Turn{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi \nthere", reply)
	assert.Equal(t, "be terse", gotBody["system"])
	msgs := gotBody["messages"].([]any)
	assert.Len(t, msgs, 1, "system turns must not appear in messages")
}

func TestAnthropicRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewAnthropic("sk-ant")
	c.baseURL = srv.URL
	_, err := c.Chat(context.Background(), "claude-sonnet-4-5-20250929", nil)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestNewFactory(t *testing.T) {
	for _, info := range Providers() {
		c, err := New(info.ID, "key")
		require.NoError(t, err, info.ID)
		assert.NotNil(t, c)
	}
	_, err := New("mystery", "key")
	assert.Error(t, err)
}

func TestProvidersRegistryShape(t *testing.T) {
	infos := Providers()
	require.NotEmpty(t, infos)
	assert.Equal(t, "openai", infos[0].ID)
	for _, info := range infos {
		assert.NotEmpty(t, info.DisplayName)
		assert.NotEmpty(t, info.Models)
	}
}
