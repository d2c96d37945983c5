package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/GriffinCanCode/indranet/internal/shared/types"
)

// OpenAIClient streams from the Chat Completions API. A custom base URL
// targets any compatible gateway.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a client bound to one API key
func NewOpenAIClient(apiKey, baseURL string, maxRetries int) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrNoCredential
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{client: openai.NewClient(opts...)}, nil
}

// Stream implements Client
func (c *OpenAIClient) Stream(ctx context.Context, req Request, onText TextHandler) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:               req.Model,
		Messages:            toOpenAIMessages(req.System, req.Messages),
		MaxCompletionTokens: openai.Int(maxTokens(req.MaxTokens)),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		acc  openai.ChatCompletionAccumulator
		text strings.Builder
	)
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			text.WriteString(chunk.Choices[0].Delta.Content)
			onText(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}

	completion := &Completion{
		Model:        acc.Model,
		Text:         text.String(),
		InputTokens:  acc.Usage.PromptTokens,
		OutputTokens: acc.Usage.CompletionTokens,
	}
	if len(acc.Choices) > 0 {
		completion.StopReason = string(acc.Choices[0].FinishReason)
	}
	return completion, nil
}

func toOpenAIMessages(system string, msgs []types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range msgs {
		if m.Role == types.RoleAssistant {
			out = append(out, openai.AssistantMessage(m.Content))
		} else {
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
