package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jarbasai/jarbas/internal/llm"
	"github.com/jarbasai/jarbas/internal/tools"
	"github.com/jarbasai/jarbas/pkg/models"
)

type scriptedLLM struct {
	responses []models.Message
	err       error
	requests  []llm.Request
}

func (s *scriptedLLM) CreateResponse(_ context.Context, req llm.Request) (models.Message, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return models.Message{}, s.err
	}
	if len(s.responses) == 0 {
		return models.AssistantMessage("ok"), nil
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next, nil
}

type recordingTool struct {
	name  string
	calls int
	err   error
}

func (t *recordingTool) Name() string        { return t.name }
func (t *recordingTool) Description() string { return "test tool" }

func (t *recordingTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"additionalProperties":false}`)
}

func (t *recordingTool) Execute(_ context.Context, _ json.RawMessage) (any, error) {
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	return map[string]string{"answer": "42"}, nil
}

func newTestRuntime(client llm.Client, reg *tools.Registry, maxIters int) *Runtime {
	return NewRuntime(RuntimeOptions{
		Client:            client,
		Registry:          reg,
		DefaultModel:      "test-model",
		MaxToolIterations: maxIters,
		TurnDeadline:      5 * time.Second,
		TimeZone:          time.UTC,
	})
}

func toolCallReply(id, name, args string) models.Message {
	return models.Message{
		Role:      models.RoleAssistant,
		ToolCalls: []models.ToolCall{{ID: id, Name: name, Arguments: args}},
	}
}

func TestExecuteTextReply(t *testing.T) {
	client := &scriptedLLM{responses: []models.Message{models.AssistantMessage("olá!")}}
	rt := newTestRuntime(client, tools.NewRegistry(nil), 6)

	agent := Descriptor{ID: "agent_mentor", Instructions: "Hoje é {CURRENT_DATETIME}."}
	history := []models.Message{models.UserMessage("oi")}

	got := rt.Execute(context.Background(), agent, history)
	if len(got) != 2 {
		t.Fatalf("history length = %d, want 2", len(got))
	}
	if got[1].Content != "olá!" {
		t.Errorf("reply = %q", got[1].Content)
	}
	for _, m := range got {
		if m.Role == models.RoleSystem {
			t.Error("system message leaked into returned history")
		}
	}
}

func TestExecuteInjectsInstructionsWithDatetime(t *testing.T) {
	client := &scriptedLLM{}
	rt := newTestRuntime(client, tools.NewRegistry(nil), 6)
	rt.now = func() time.Time { return time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC) }

	agent := Descriptor{ID: "agent_mentor", Instructions: "Agora: {CURRENT_DATETIME}."}
	rt.Execute(context.Background(), agent, []models.Message{models.UserMessage("oi")})

	if len(client.requests) != 1 {
		t.Fatalf("got %d requests", len(client.requests))
	}
	system := client.requests[0].Messages[0]
	if system.Role != models.RoleSystem {
		t.Fatalf("first message role = %v", system.Role)
	}
	if strings.Contains(system.Content, "{CURRENT_DATETIME}") {
		t.Error("datetime placeholder not replaced")
	}
	if !strings.Contains(system.Content, "2026") {
		t.Errorf("system prompt = %q", system.Content)
	}
}

func TestExecuteToolLoopPairing(t *testing.T) {
	tool := &recordingTool{name: "lookup"}
	reg := tools.NewRegistry(nil)
	reg.MustRegister(tool)

	client := &scriptedLLM{responses: []models.Message{
		toolCallReply("call_1", "lookup", `{"q":"x"}`),
		models.AssistantMessage("achei: 42"),
	}}
	rt := newTestRuntime(client, reg, 6)

	agent := Descriptor{ID: "agent_conteudo", Tools: []string{"lookup"}}
	got := rt.Execute(context.Background(), agent, []models.Message{models.UserMessage("pesquisa x")})

	// user, assistant tool call, tool result, assistant text
	if len(got) != 4 {
		t.Fatalf("history length = %d, want 4", len(got))
	}
	if got[2].Role != models.RoleTool || got[2].ToolCallID != "call_1" {
		t.Errorf("tool result = %+v", got[2])
	}
	if !strings.Contains(got[2].Content, "42") {
		t.Errorf("tool result content = %q", got[2].Content)
	}
	if tool.calls != 1 {
		t.Errorf("tool called %d times", tool.calls)
	}
	if got[3].Content != "achei: 42" {
		t.Errorf("final reply = %q", got[3].Content)
	}
}

func TestExecuteParallelToolCallsAnsweredInOrder(t *testing.T) {
	reg := tools.NewRegistry(nil)
	reg.MustRegister(&recordingTool{name: "a"}, &recordingTool{name: "b"})

	client := &scriptedLLM{responses: []models.Message{
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "call_a", Name: "a", Arguments: `{}`},
				{ID: "call_b", Name: "b", Arguments: `{}`},
			},
		},
		models.AssistantMessage("pronto"),
	}}
	rt := newTestRuntime(client, reg, 6)

	got := rt.Execute(context.Background(), Descriptor{ID: "x", Tools: []string{"a", "b"}},
		[]models.Message{models.UserMessage("vai")})

	if len(got) != 5 {
		t.Fatalf("history length = %d, want 5", len(got))
	}
	if got[2].ToolCallID != "call_a" || got[3].ToolCallID != "call_b" {
		t.Errorf("tool results out of order: %q then %q", got[2].ToolCallID, got[3].ToolCallID)
	}
}

func TestExecuteToolErrorSurfacedToModel(t *testing.T) {
	reg := tools.NewRegistry(nil)
	reg.MustRegister(&recordingTool{name: "flaky", err: errors.New("upstream timeout")})

	client := &scriptedLLM{responses: []models.Message{
		toolCallReply("call_1", "flaky", `{}`),
		models.AssistantMessage("a ferramenta falhou, tente depois"),
	}}
	rt := newTestRuntime(client, reg, 6)

	got := rt.Execute(context.Background(), Descriptor{ID: "x", Tools: []string{"flaky"}},
		[]models.Message{models.UserMessage("vai")})

	if len(got) != 4 {
		t.Fatalf("history length = %d, want 4", len(got))
	}
	if !strings.Contains(got[2].Content, "upstream timeout") {
		t.Errorf("error payload = %q", got[2].Content)
	}
	if got[2].Role != models.RoleTool {
		t.Error("tool failure did not produce a tool result message")
	}
}

func TestExecuteIterationCeilingApology(t *testing.T) {
	reg := tools.NewRegistry(nil)
	tool := &recordingTool{name: "loop"}
	reg.MustRegister(tool)

	// The model keeps asking for tools and never produces text.
	responses := make([]models.Message, 0, 8)
	for i := 0; i < 8; i++ {
		responses = append(responses, toolCallReply("call", "loop", `{}`))
	}
	client := &scriptedLLM{responses: responses}
	rt := newTestRuntime(client, reg, 3)

	got := rt.Execute(context.Background(), Descriptor{ID: "x", Tools: []string{"loop"}},
		[]models.Message{models.UserMessage("vai")})

	if len(client.requests) != 3 {
		t.Errorf("model called %d times, want the ceiling of 3", len(client.requests))
	}
	last := got[len(got)-1]
	if last.Role != models.RoleAssistant || !last.HasText() {
		t.Fatalf("last message = %+v, want apology text", last)
	}
	if last.Content != apologyToolLimit {
		t.Errorf("apology = %q", last.Content)
	}
}

func TestExecuteLLMFailureApology(t *testing.T) {
	client := &scriptedLLM{err: errors.New("rate limited")}
	rt := newTestRuntime(client, tools.NewRegistry(nil), 6)

	got := rt.Execute(context.Background(), Descriptor{ID: "x"},
		[]models.Message{models.UserMessage("oi")})

	last := got[len(got)-1]
	if last.Content != apologyLLMFailure {
		t.Errorf("reply = %q, want LLM failure apology", last.Content)
	}
}

func TestExecuteEmitsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	tool := &recordingTool{name: "lookup"}
	reg := tools.NewRegistry(nil)
	reg.MustRegister(tool)

	client := &scriptedLLM{responses: []models.Message{
		toolCallReply("call_1", "lookup", `{"q":"x"}`),
		models.AssistantMessage("achei"),
	}}
	rt := NewRuntime(RuntimeOptions{
		Client:            client,
		Registry:          reg,
		DefaultModel:      "test-model",
		MaxToolIterations: 6,
		TurnDeadline:      5 * time.Second,
		TimeZone:          time.UTC,
		Tracer:            provider.Tracer("test"),
	})

	rt.Execute(context.Background(), Descriptor{ID: "agent_conteudo", Tools: []string{"lookup"}},
		[]models.Message{models.UserMessage("pesquisa x")})

	names := map[string]int{}
	for _, span := range recorder.Ended() {
		names[span.Name()]++
	}
	if names["agent.execute"] != 1 {
		t.Errorf("agent.execute spans = %d, want 1", names["agent.execute"])
	}
	if names["tool.execute"] != 1 {
		t.Errorf("tool.execute spans = %d, want 1", names["tool.execute"])
	}
}

func TestCatalogWellFormed(t *testing.T) {
	reg, err := NewRegistry(Catalog())
	if err != nil {
		t.Fatalf("catalog rejected: %v", err)
	}
	if _, ok := reg.Get(FallbackAgentID); !ok {
		t.Error("catalog missing fallback agent")
	}
	for _, d := range reg.All() {
		if d.Description == "" || d.Instructions == "" {
			t.Errorf("agent %q missing description or instructions", d.ID)
		}
		if !strings.Contains(d.Instructions, "{CURRENT_DATETIME}") {
			t.Errorf("agent %q instructions missing datetime placeholder", d.ID)
		}
	}
}

func TestRegistryRequiresFallback(t *testing.T) {
	_, err := NewRegistry([]Descriptor{{ID: "agent_outro", Instructions: "x"}})
	if err == nil {
		t.Error("registry without fallback agent accepted")
	}
}
