// Package calendar integrates with Google Calendar through its REST API,
// authenticated with a service account.
package calendar

import "context"

// DefaultTimeZone is the timezone events are created and listed in.
const DefaultTimeZone = "America/Sao_Paulo"

// EventTime is a point in time with its IANA timezone, RFC 3339 formatted.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is a calendar event in the subset of fields the assistant works with.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Start       EventTime `json:"start,omitempty"`
	End         EventTime `json:"end,omitempty"`
}

// EventPatch carries the fields of an update; nil fields are left unchanged.
type EventPatch struct {
	Summary     *string    `json:"summary,omitempty"`
	Description *string    `json:"description,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
}

// Client is the calendar operation surface the scheduling tools call.
type Client interface {
	// Events lists events between start and end (RFC 3339), ordered by
	// start time.
	Events(ctx context.Context, start, end string) ([]Event, error)

	// CreateEvent inserts an event and returns it with its assigned ID.
	CreateEvent(ctx context.Context, event Event) (Event, error)

	// UpdateEvent patches an existing event by ID.
	UpdateEvent(ctx context.Context, eventID string, patch EventPatch) (Event, error)

	// DeleteEvent removes an event by ID.
	DeleteEvent(ctx context.Context, eventID string) error
}
