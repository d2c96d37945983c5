package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/indranet/internal/shared/types"
)

func TestOpenAIStream(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"<p>", "hello", "</p>"} {
			fmt.Fprintf(w, `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":%q},"finish_reason":null}]}`+"\n\n", part)
		}
		fmt.Fprint(w, `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("sk-test", srv.URL+"/v1/", 0)
	require.NoError(t, err)

	var chunks []string
	completion, err := client.Stream(context.Background(), Request{
		Model:    "gpt-4o",
		System:   "sys",
		Messages: []types.Message{types.UserMessage("u"), types.AssistantMessage("<!DOCTYPE html>")},
	}, func(s string) { chunks = append(chunks, s) })

	require.NoError(t, err)
	assert.Equal(t, []string{"<p>", "hello", "</p>"}, chunks)
	assert.Equal(t, "<p>hello</p>", completion.Text)
	assert.Equal(t, "gpt-4o", completion.Model)
	assert.Equal(t, "stop", completion.StopReason)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAIRequiresCredential(t *testing.T) {
	_, err := NewOpenAIClient("", "", 0)
	assert.ErrorIs(t, err, ErrNoCredential)
}
