// Package agents defines the specialist agents, their instruction prompts,
// and the runtime that executes a turn's bounded tool-call loop.
package agents

import (
	"fmt"
)

// FallbackAgentID receives every turn the router cannot place.
const FallbackAgentID = "agent_mentor"

// Descriptor declares a specialist agent.
type Descriptor struct {
	// ID is the stable identifier the router selects by.
	ID string

	// Description tells the router what the agent handles.
	Description string

	// Model overrides the default chat model when set.
	Model string

	// Instructions is the agent's system prompt. The literal
	// {CURRENT_DATETIME} is replaced at execution time.
	Instructions string

	// Tools lists the registry tool names available to this agent.
	Tools []string
}

// Registry holds the agent catalog in declaration order.
type Registry struct {
	order []string
	byID  map[string]Descriptor
}

// NewRegistry builds a registry from the descriptors. The fallback agent
// must be present; routing has nowhere to land without it.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("agent descriptor missing ID")
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate agent ID %q", d.ID)
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	if _, ok := r.byID[FallbackAgentID]; !ok {
		return nil, fmt.Errorf("agent catalog missing fallback agent %q", FallbackAgentID)
	}
	return r, nil
}

// Get returns the descriptor for an agent ID.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Fallback returns the fallback agent's descriptor.
func (r *Registry) Fallback() Descriptor {
	return r.byID[FallbackAgentID]
}

// All returns the descriptors in declaration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the agent IDs in declaration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
