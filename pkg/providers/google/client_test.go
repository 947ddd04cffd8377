package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaincheck/pkg/llm"
)

func TestNewDefaults(t *testing.T) {
	client, err := New(context.Background(), llm.ClientConfig{APIKey: "g-key"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", client.GetModelName())

	_, err = New(context.Background(), llm.ClientConfig{ModelName: " "})
	assert.Error(t, err)
}

func TestCompleteGenerateContent(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "#Thermostat launch"}]}, "finishReason": "STOP"}],
			"modelVersion": "gemini-2.5-flash-001"
		}`))
	}))
	defer srv.Close()

	client, err := New(context.Background(), llm.ClientConfig{
		APIKey: "g-key", ModelName: "gemini-2.5-flash", BaseURL: srv.URL + "/", Temperature: 0.2, MaxTokens: 200,
	})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("You are a strategist."),
		llm.NewUserMessage("Write a post"),
	}))
	require.NoError(t, err)

	assert.Equal(t, "#Thermostat launch", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.True(t, strings.HasSuffix(path, "models/gemini-2.5-flash:generateContent"), path)

	contents, ok := body["contents"].([]any)
	require.True(t, ok)
	assert.Len(t, contents, 1)
	_, hasSystem := body["systemInstruction"]
	assert.True(t, hasSystem)
}
