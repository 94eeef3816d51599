package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "anthropic/claude-sonnet-4",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  {\"prompt\": \"flat\"}  "}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("secret", srv.URL+"/", "", time.Second)
	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			System("json only"),
			User("describe", Image{MIMEType: "image/png", Data: []byte{0x89, 0x50}}),
		},
		Temperature: Float(0.6),
		TopP:        Float(0.9),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"prompt": "flat"}`, resp.Text)
	assert.Equal(t, "anthropic/claude-sonnet-4", resp.Model)

	assert.Equal(t, DefaultOpenAIModel, got["model"])
	assert.InDelta(t, 0.6, got["temperature"], 1e-6)
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	user := messages[1].(map[string]any)
	parts, ok := user["content"].([]any)
	require.True(t, ok, "images are sent as multi-part content")
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,iVA=", image["url"])
}

func TestOpenAIClientEmptyChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "   "}}]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("k", srv.URL, "m", time.Second).Complete(context.Background(), Request{
		Messages: []Message{User("hi")},
	})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAIClientHonoursModelOverride(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "<svg></svg>"}}]}`))
	}))
	defer srv.Close()

	ctx := WithModel(context.Background(), "openai/gpt-4o")
	resp, err := NewOpenAIClient("k", srv.URL, "default", time.Second).Complete(ctx, Request{
		Messages: []Message{User("draw")},
	})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", got["model"])
	assert.Equal(t, "openai/gpt-4o", resp.Model)
}
