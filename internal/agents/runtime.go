package agents

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jarbasai/jarbas/internal/llm"
	"github.com/jarbasai/jarbas/internal/tools"
	"github.com/jarbasai/jarbas/pkg/models"
)

// datetimePlaceholder in agent instructions is replaced with the current
// local time at execution.
const datetimePlaceholder = "{CURRENT_DATETIME}"

// Portuguese fallback replies for turns that cannot complete normally.
const (
	apologyLLMFailure = "Desculpe, tive um problema para processar sua mensagem agora. Pode tentar de novo em alguns instantes?"
	apologyToolLimit  = "Desculpe, não consegui concluir essa tarefa agora. Pode reformular ou tentar novamente?"
)

// RuntimeOptions configures the agent runtime.
type RuntimeOptions struct {
	Client   llm.Client
	Registry *tools.Registry

	// DefaultModel is used when a descriptor has no model override.
	DefaultModel string

	// MaxToolIterations bounds the request/tool round trips per turn.
	MaxToolIterations int

	// TurnDeadline bounds a turn's wall-clock time.
	TurnDeadline time.Duration

	// TimeZone is the location rendered into {CURRENT_DATETIME}.
	// Defaults to America/Sao_Paulo.
	TimeZone *time.Location

	Tracer trace.Tracer
	Logger *slog.Logger
}

// Runtime executes agent turns: it prepends the agent's instructions, calls
// the model, executes requested tools, and loops until the model produces a
// text reply or a bound is hit.
type Runtime struct {
	client   llm.Client
	registry *tools.Registry
	model    string
	maxIters int
	deadline time.Duration
	tz       *time.Location
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// NewRuntime creates an agent runtime.
func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.MaxToolIterations <= 0 {
		opts.MaxToolIterations = 6
	}
	if opts.TurnDeadline <= 0 {
		opts.TurnDeadline = 60 * time.Second
	}
	if opts.TimeZone == nil {
		loc, err := time.LoadLocation("America/Sao_Paulo")
		if err != nil {
			loc = time.UTC
		}
		opts.TimeZone = loc
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("jarbas")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		client:   opts.Client,
		registry: opts.Registry,
		model:    opts.DefaultModel,
		maxIters: opts.MaxToolIterations,
		deadline: opts.TurnDeadline,
		tz:       opts.TimeZone,
		tracer:   opts.Tracer,
		logger:   logger.With("component", "agents"),
		now:      time.Now,
	}
}

// Execute runs one turn for the agent and returns the history extended with
// everything the turn produced: assistant messages, paired tool results, and
// the final text reply. Failures never leave the history without a reply; a
// Portuguese apology is appended instead.
//
// The returned history excludes system messages, which are rebuilt fresh on
// every turn and never persisted.
func (r *Runtime) Execute(ctx context.Context, agent Descriptor, history []models.Message) []models.Message {
	ctx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "agent.execute",
		trace.WithAttributes(attribute.String("agent.id", agent.ID)))
	defer span.End()

	transcript := models.StripSystem(history)
	specs := r.registry.Specs(agent.Tools)
	model := agent.Model
	if model == "" {
		model = r.model
	}

	for iter := 0; iter < r.maxIters; iter++ {
		req := llm.Request{
			Model:    model,
			Messages: append([]models.Message{r.systemMessage(agent)}, transcript...),
			Tools:    specs,
		}

		reply, err := r.client.CreateResponse(ctx, req)
		if err != nil {
			r.logger.Error("agent model call failed", "agent_id", agent.ID, "iteration", iter, "error", err)
			return append(transcript, models.AssistantMessage(apologyLLMFailure))
		}
		reply.Role = models.RoleAssistant
		transcript = append(transcript, reply)

		if len(reply.ToolCalls) == 0 {
			return transcript
		}

		// Every requested call gets a result message, in request order;
		// failures become error payloads the model can react to.
		for _, call := range reply.ToolCalls {
			toolCtx, toolSpan := r.tracer.Start(ctx, "tool.execute",
				trace.WithAttributes(attribute.String("tool.name", call.Name)))
			result, err := r.registry.Execute(toolCtx, call.Name, call.Arguments)
			if err != nil {
				toolSpan.RecordError(err)
				r.logger.Warn("tool execution failed", "agent_id", agent.ID, "tool", call.Name, "error", err)
				encoded, _ := json.Marshal(map[string]string{"error": err.Error()})
				result = string(encoded)
			}
			toolSpan.End()
			transcript = append(transcript, models.ToolMessage(call.ID, result))
		}
	}

	r.logger.Warn("tool iteration ceiling reached", "agent_id", agent.ID, "max_iterations", r.maxIters)
	return append(transcript, models.AssistantMessage(apologyToolLimit))
}

func (r *Runtime) systemMessage(agent Descriptor) models.Message {
	now := r.now().In(r.tz).Format("Monday, 02 January 2006, 15:04")
	instructions := strings.ReplaceAll(agent.Instructions, datetimePlaceholder, now)
	return models.SystemMessage(instructions)
}
