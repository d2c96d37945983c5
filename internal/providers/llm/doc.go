// Package llm streams page generations from a language model.
//
// Every backend implements Client: it sends a system prompt plus an
// alternating user/assistant history and reports each text chunk through a
// callback as it arrives. Stream returns once the final message is complete.
//
// Providers:
//   - anthropic: Messages API via the official SDK (credential required)
//   - openai: Chat Completions, including compatible gateways (credential required)
//   - ollama: local /api/chat NDJSON stream (no credential)
//
// Clients built by the Factory sit behind a circuit breaker so a dead
// backend fails fast instead of hanging each new page.
//
// Example Usage:
//
//	factory := llm.NewFactory(llm.FactoryConfig{Provider: llm.ProviderAnthropic})
//	client, err := factory.New(apiKey)
//	completion, err := client.Stream(ctx, llm.Request{
//		Model:     "claude-3-opus-20240229",
//		MaxTokens: 4096,
//		System:    system,
//		Messages:  msgs,
//	}, func(chunk string) { fmt.Print(chunk) })
package llm
