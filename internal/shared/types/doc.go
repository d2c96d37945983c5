// Package types provides shared data structures for the backend.
//
// Core Types:
//   - Role, Message: role-tagged conversation turns exchanged between the
//     context builder, the generation pipeline and the LLM providers
//   - WSMessage: websocket envelope used by the event stream
//
// Example Usage:
//
//	msgs := []types.Message{
//	    types.UserMessage("curl -s -L https://example.com"),
//	    types.AssistantMessage("<!DOCTYPE html>"),
//	}
package types
