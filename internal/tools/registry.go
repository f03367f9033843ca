// Package tools defines the function-calling tools exposed to the specialist
// agents and the registry that validates and dispatches their invocations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jarbasai/jarbas/internal/llm"
	"github.com/jarbasai/jarbas/internal/observability"
)

// Tool is an operation the LLM may invoke during a turn.
type Tool interface {
	// Name is the function name presented to the model.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Schema returns the JSON Schema for the tool's arguments.
	Schema() json.RawMessage

	// Execute runs the tool. The returned value is JSON-encoded into the
	// tool result message.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry holds the registered tools, validates arguments against each
// tool's schema before dispatch, and records execution metrics.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]registeredTool
	metrics *observability.Metrics
}

// NewRegistry creates an empty tool registry. metrics may be nil.
func NewRegistry(metrics *observability.Metrics) *Registry {
	return &Registry{
		tools:   make(map[string]registeredTool),
		metrics: metrics,
	}
}

// Register adds a tool, compiling its argument schema. Registering two tools
// with the same name is a programming error and fails.
func (r *Registry) Register(t Tool) error {
	schema, err := jsonschema.CompileString(t.Name()+".json", string(t.Schema()))
	if err != nil {
		return fmt.Errorf("invalid schema for tool %q: %w", t.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = registeredTool{tool: t, schema: schema}
	return nil
}

// MustRegister registers the tools and panics on failure. Intended for
// wiring at startup where a bad schema is unrecoverable.
func (r *Registry) MustRegister(ts ...Tool) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Specs returns the LLM tool declarations for the named tools, in the given
// order. Unknown names are skipped.
func (r *Registry) Specs(names []string) []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		entry, ok := r.tools[name]
		if !ok {
			continue
		}
		specs = append(specs, llm.Tool{
			Name:        entry.tool.Name(),
			Description: entry.tool.Description(),
			Parameters:  entry.tool.Schema(),
		})
	}
	return specs
}

// Execute validates the raw argument JSON against the tool's schema, runs
// the tool, and returns the JSON-encoded result. Unknown tools, invalid
// arguments, and tool failures are all returned as errors for the agent
// loop to surface back to the model.
func (r *Registry) Execute(ctx context.Context, name, rawArgs string) (string, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	if rawArgs == "" {
		rawArgs = "{}"
	}
	var decoded any
	if err := json.Unmarshal([]byte(rawArgs), &decoded); err != nil {
		return "", fmt.Errorf("tool %q arguments are not valid JSON: %w", name, err)
	}
	if err := entry.schema.Validate(decoded); err != nil {
		return "", fmt.Errorf("tool %q arguments rejected: %w", name, err)
	}

	start := time.Now()
	result, err := entry.tool.Execute(ctx, json.RawMessage(rawArgs))
	r.observe(name, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("tool %q failed: %w", name, err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("tool %q result not encodable: %w", name, err)
	}
	return string(encoded), nil
}

func (r *Registry) observe(name string, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.ToolExecutions.WithLabelValues(name, status).Inc()
	r.metrics.ToolExecutionDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}
