package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jarbasai/jarbas/internal/observability"
	"github.com/jarbasai/jarbas/pkg/models"
)

// OpenAIClient implements Client on the OpenAI chat-completions API.
type OpenAIClient struct {
	client  *openai.Client
	metrics *observability.Metrics
}

// NewOpenAIClient creates a client with the given API key. metrics may be nil.
func NewOpenAIClient(apiKey string, metrics *observability.Metrics) *OpenAIClient {
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		metrics: metrics,
	}
}

// CreateResponse sends one chat-completion request and converts the first
// choice back into the domain message shape.
func (c *OpenAIClient) CreateResponse(ctx context.Context, req Request) (models.Message, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
		Tools:    toOpenAITools(req.Tools),
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	c.observe(req.Model, time.Since(start), err)
	if err != nil {
		return models.Message{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Message{}, fmt.Errorf("chat completion returned no choices")
	}

	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func (c *OpenAIClient) observe(model string, elapsed time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.LLMRequests.WithLabelValues(model, status).Inc()
	c.metrics.LLMRequestDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

func toOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(tools []Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Parameters),
			},
		})
	}
	return out
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) models.Message {
	out := models.Message{
		Role:    models.Role(m.Role),
		Content: m.Content,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
