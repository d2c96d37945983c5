package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/indranet/internal/shared/types"
)

// DefaultOllamaURL is the local Ollama daemon
const DefaultOllamaURL = "http://localhost:11434"

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	NumPredict int64 `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaChatChunk struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`

	DoneReason      string `json:"done_reason,omitempty"`
	PromptEvalCount int64  `json:"prompt_eval_count,omitempty"`
	EvalCount       int64  `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

// OllamaClient streams from a local Ollama server over /api/chat
type OllamaClient struct {
	http *resty.Client
}

// NewOllamaClient creates a client for the given server. A positive timeout
// bounds the whole exchange including the streamed body.
func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/x-ndjson")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &OllamaClient{http: client}
}

// Stream implements Client
func (c *OllamaClient) Stream(ctx context.Context, req Request, onText TextHandler) (*Completion, error) {
	body := ollamaChatRequest{
		Model:    req.Model,
		Messages: toOllamaMessages(req.System, req.Messages),
		Stream:   true,
		Options:  &ollamaOptions{NumPredict: maxTokens(req.MaxTokens)},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post("/api/chat")
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(raw, 4096))
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode(), bytes.TrimSpace(detail))
	}

	return readOllamaStream(ctx, raw, onText)
}

// readOllamaStream consumes newline-delimited JSON chunks until done
func readOllamaStream(ctx context.Context, r io.Reader, onText TextHandler) (*Completion, error) {
	var (
		completion Completion
		text       strings.Builder
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Skip malformed lines
			continue
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama stream error: %s", chunk.Error)
		}
		if chunk.Model != "" {
			completion.Model = chunk.Model
		}
		if chunk.Message.Content != "" {
			text.WriteString(chunk.Message.Content)
			onText(chunk.Message.Content)
		}
		if chunk.Done {
			completion.StopReason = chunk.DoneReason
			completion.InputTokens = chunk.PromptEvalCount
			completion.OutputTokens = chunk.EvalCount
			completion.Text = text.String()
			return &completion, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ollama stream: %w", err)
	}
	return nil, fmt.Errorf("ollama stream ended before completion")
}

func toOllamaMessages(system string, msgs []types.Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, ollamaMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		out = append(out, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
