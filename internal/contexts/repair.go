package contexts

import "github.com/jarbasai/jarbas/pkg/models"

// RepairOrphanToolMessages drops tool messages whose originating assistant
// tool_calls entry is not present earlier in the window. Truncating a history
// to its last N messages can slice between an assistant tool request and its
// tool results; sending such a window to the LLM provider is a hard API
// error, so the orphans are removed before use.
//
// A tool message is kept only when some earlier assistant message in the
// window carries a tool call with the same ID. Everything else passes through
// untouched and in order.
func RepairOrphanToolMessages(history []models.Message) []models.Message {
	out := make([]models.Message, 0, len(history))
	pending := make(map[string]bool)

	for _, m := range history {
		if m.Role == models.RoleTool {
			if !pending[m.ToolCallID] {
				continue
			}
			out = append(out, m)
			continue
		}
		if m.Role == models.RoleAssistant {
			for _, tc := range m.ToolCalls {
				pending[tc.ID] = true
			}
		}
		out = append(out, m)
	}
	return out
}
