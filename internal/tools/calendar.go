package tools

import (
	"context"
	"encoding/json"

	"github.com/jarbasai/jarbas/internal/calendar"
)

// Calendar tool names as presented to the model.
const (
	ToolGetCalendarEvents   = "get_calendar_events"
	ToolCreateCalendarEvent = "create_calendar_event"
	ToolUpdateCalendarEvent = "update_calendar_event"
	ToolDeleteCalendarEvent = "delete_calendar_event"
)

// CalendarTools builds the four scheduling tools over the given client.
func CalendarTools(client calendar.Client) []Tool {
	return []Tool{
		&getEventsTool{client: client},
		&createEventTool{client: client},
		&updateEventTool{client: client},
		&deleteEventTool{client: client},
	}
}

type getEventsTool struct {
	client calendar.Client
}

func (t *getEventsTool) Name() string { return ToolGetCalendarEvents }

func (t *getEventsTool) Description() string {
	return "Lista os compromissos da agenda entre duas datas. Use datas no formato RFC 3339, ex: 2026-03-01T00:00:00-03:00."
}

func (t *getEventsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"start": {"type": "string", "description": "Início da janela, RFC 3339"},
			"end": {"type": "string", "description": "Fim da janela, RFC 3339"}
		},
		"required": ["start", "end"],
		"additionalProperties": false
	}`)
}

func (t *getEventsTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	events, err := t.client.Events(ctx, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	return map[string]any{"events": events}, nil
}

type createEventTool struct {
	client calendar.Client
}

func (t *createEventTool) Name() string { return ToolCreateCalendarEvent }

func (t *createEventTool) Description() string {
	return "Cria um compromisso na agenda. Horários no formato RFC 3339 no fuso America/Sao_Paulo."
}

func (t *createEventTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {"type": "string", "description": "Título do compromisso"},
			"description": {"type": "string", "description": "Detalhes opcionais"},
			"start": {"type": "string", "description": "Início, RFC 3339"},
			"end": {"type": "string", "description": "Fim, RFC 3339"}
		},
		"required": ["summary", "start", "end"],
		"additionalProperties": false
	}`)
}

func (t *createEventTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Start       string `json:"start"`
		End         string `json:"end"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	created, err := t.client.CreateEvent(ctx, calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start:       calendar.EventTime{DateTime: in.Start},
		End:         calendar.EventTime{DateTime: in.End},
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"event": created}, nil
}

type updateEventTool struct {
	client calendar.Client
}

func (t *updateEventTool) Name() string { return ToolUpdateCalendarEvent }

func (t *updateEventTool) Description() string {
	return "Altera um compromisso existente. Informe apenas os campos que mudam; use o event_id retornado por get_calendar_events."
}

func (t *updateEventTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"event_id": {"type": "string", "description": "ID do compromisso"},
			"summary": {"type": "string"},
			"description": {"type": "string"},
			"start": {"type": "string", "description": "Novo início, RFC 3339"},
			"end": {"type": "string", "description": "Novo fim, RFC 3339"}
		},
		"required": ["event_id"],
		"additionalProperties": false
	}`)
}

func (t *updateEventTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		EventID     string  `json:"event_id"`
		Summary     *string `json:"summary"`
		Description *string `json:"description"`
		Start       *string `json:"start"`
		End         *string `json:"end"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}

	patch := calendar.EventPatch{Summary: in.Summary, Description: in.Description}
	if in.Start != nil {
		patch.Start = &calendar.EventTime{DateTime: *in.Start, TimeZone: calendar.DefaultTimeZone}
	}
	if in.End != nil {
		patch.End = &calendar.EventTime{DateTime: *in.End, TimeZone: calendar.DefaultTimeZone}
	}

	updated, err := t.client.UpdateEvent(ctx, in.EventID, patch)
	if err != nil {
		return nil, err
	}
	return map[string]any{"event": updated}, nil
}

type deleteEventTool struct {
	client calendar.Client
}

func (t *deleteEventTool) Name() string { return ToolDeleteCalendarEvent }

func (t *deleteEventTool) Description() string {
	return "Remove um compromisso da agenda pelo event_id."
}

func (t *deleteEventTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"event_id": {"type": "string", "description": "ID do compromisso"}
		},
		"required": ["event_id"],
		"additionalProperties": false
	}`)
}

func (t *deleteEventTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	if err := t.client.DeleteEvent(ctx, in.EventID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "event_id": in.EventID}, nil
}
