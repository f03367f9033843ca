// Package llm abstracts the chat-completion provider behind a small client
// interface so the orchestrator and agents can be tested with fakes.
package llm

import (
	"context"
	"encoding/json"

	"github.com/jarbasai/jarbas/pkg/models"
)

// Tool describes a function the model may call. Parameters is a JSON Schema
// document.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Request is one chat-completion call.
type Request struct {
	Model    string
	Messages []models.Message
	Tools    []Tool
}

// Client sends chat-completion requests and returns the assistant's reply,
// which may carry text, tool calls, or both.
type Client interface {
	CreateResponse(ctx context.Context, req Request) (models.Message, error)
}
