// Package orchestrator runs a complete conversation turn: it routes the
// user's utterance to a specialist agent, executes the agent, persists the
// resulting history, and sends the reply back to the chat.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jarbasai/jarbas/internal/agents"
	"github.com/jarbasai/jarbas/internal/chat"
	"github.com/jarbasai/jarbas/internal/contexts"
	"github.com/jarbasai/jarbas/internal/llm"
	"github.com/jarbasai/jarbas/internal/observability"
	"github.com/jarbasai/jarbas/pkg/models"
)

// routeToolName is the single function the router model may call.
const routeToolName = "route_to_agent"

const apologyTurnFailure = "Desculpe, algo deu errado por aqui. Pode mandar sua mensagem de novo?"

// Options configures an Orchestrator.
type Options struct {
	Router   llm.Client
	Runtime  *agents.Runtime
	Agents   *agents.Registry
	Contexts contexts.Store
	Sender   chat.Sender

	// RouterModel is the model used for the routing stage.
	RouterModel string

	// HistoryLimit bounds the context window loaded per turn.
	HistoryLimit int

	Tracer  trace.Tracer
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Orchestrator coordinates the two-stage turn pipeline.
type Orchestrator struct {
	router       llm.Client
	runtime      *agents.Runtime
	agents       *agents.Registry
	contexts     contexts.Store
	sender       chat.Sender
	routerModel  string
	historyLimit int
	tracer       trace.Tracer
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("jarbas")
	}
	return &Orchestrator{
		router:       opts.Router,
		runtime:      opts.Runtime,
		agents:       opts.Agents,
		contexts:     opts.Contexts,
		sender:       opts.Sender,
		routerModel:  opts.RouterModel,
		historyLimit: opts.HistoryLimit,
		tracer:       opts.Tracer,
		metrics:      opts.Metrics,
		logger:       logger.With("component", "orchestrator"),
	}
}

// HandleTurn runs one turn for the user's coalesced utterance. A blank
// utterance ends the turn silently. Everything else produces exactly one
// outbound reply: the agent's answer, a trivial router reply, or an apology.
func (o *Orchestrator) HandleTurn(ctx context.Context, userKey, utterance string) error {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "turn",
		trace.WithAttributes(attribute.String("user_key", userKey)))
	defer span.End()

	start := time.Now()
	status := "ok"
	defer func() {
		if o.metrics != nil {
			o.metrics.TurnsTotal.WithLabelValues(status).Inc()
			o.metrics.TurnDuration.Observe(time.Since(start).Seconds())
		}
	}()

	log := o.logger.With("turn_id", uuid.NewString(), "user_key", userKey)

	history, err := o.contexts.Read(ctx, userKey, o.historyLimit)
	if err != nil {
		// A failed read falls back to a fresh context rather than dropping
		// the user's message.
		log.Error("context read failed", "error", err)
		history = nil
	}
	history = append(history, models.UserMessage(utterance))

	final := o.runStages(ctx, log, history)

	if err := o.contexts.Save(ctx, userKey, final); err != nil {
		log.Error("context save failed", "error", err)
	}

	reply := models.LastAssistantText(final)
	if reply == "" {
		status = "apology"
		reply = apologyTurnFailure
	}
	if err := o.sender.SendText(ctx, userKey, reply); err != nil {
		status = "error"
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// runStages performs routing and agent execution, returning the history to
// persist. The router's own messages never enter the history; the specialist
// sees the conversation exactly as the user left it.
func (o *Orchestrator) runStages(ctx context.Context, log *slog.Logger, history []models.Message) []models.Message {
	decision := o.route(ctx, log, history)

	if decision.trivialReply != "" {
		return append(history, models.AssistantMessage(decision.trivialReply))
	}

	agent, ok := o.agents.Get(decision.agentID)
	if !ok {
		if decision.agentID != "" {
			log.Error("router selected unknown agent", "agent_id", decision.agentID)
		}
		agent = o.agents.Fallback()
	}
	log.Info("turn routed", "agent_id", agent.ID)

	return o.runtime.Execute(ctx, agent, history)
}

type routeDecision struct {
	agentID      string
	trivialReply string
}

// route asks the router model which specialist should handle the turn. The
// model answers through the route_to_agent function; plain text instead of a
// function call is treated as a trivial reply and short-circuits the turn.
// Any failure falls through to the fallback agent.
func (o *Orchestrator) route(ctx context.Context, log *slog.Logger, history []models.Message) routeDecision {
	ctx, span := o.tracer.Start(ctx, "route")
	defer span.End()

	req := llm.Request{
		Model:    o.routerModel,
		Messages: append([]models.Message{models.SystemMessage(o.routerPrompt())}, models.StripSystem(history)...),
		Tools:    []llm.Tool{o.routeTool()},
	}

	reply, err := o.router.CreateResponse(ctx, req)
	if err != nil {
		log.Error("router call failed", "error", err)
		return routeDecision{agentID: agents.FallbackAgentID}
	}

	for _, call := range reply.ToolCalls {
		if call.Name != routeToolName {
			continue
		}
		var args struct {
			AgentID string `json:"agent_id"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			log.Warn("router arguments unreadable", "arguments", call.Arguments, "error", err)
			return routeDecision{agentID: agents.FallbackAgentID}
		}
		return routeDecision{agentID: args.AgentID}
	}

	if reply.HasText() {
		return routeDecision{trivialReply: reply.Content}
	}
	return routeDecision{agentID: agents.FallbackAgentID}
}

func (o *Orchestrator) routerPrompt() string {
	var b strings.Builder
	b.WriteString("Você é o roteador do Jarbas, um assistente de WhatsApp. ")
	b.WriteString("Analise a última mensagem do usuário no contexto da conversa e escolha o agente especialista mais adequado chamando route_to_agent.\n\nAgentes disponíveis:\n")
	for _, d := range o.agents.All() {
		fmt.Fprintf(&b, "- %s: %s\n", d.ID, d.Description)
	}
	b.WriteString("\nApenas para saudações ou agradecimentos triviais que não precisam de especialista, responda diretamente com uma frase curta em português em vez de chamar a função.")
	return b.String()
}

func (o *Orchestrator) routeTool() llm.Tool {
	ids, _ := json.Marshal(o.agents.IDs())
	schema := fmt.Sprintf(`{
		"type": "object",
		"properties": {
			"agent_id": {"type": "string", "enum": %s, "description": "Agente que deve atender o usuário"}
		},
		"required": ["agent_id"],
		"additionalProperties": false
	}`, ids)

	return llm.Tool{
		Name:        routeToolName,
		Description: "Encaminha a conversa para o agente especialista escolhido.",
		Parameters:  json.RawMessage(schema),
	}
}
