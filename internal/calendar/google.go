package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
)

const (
	calendarScope   = "https://www.googleapis.com/auth/calendar"
	defaultAPIBase  = "https://www.googleapis.com/calendar/v3"
	maxListedEvents = 50
)

// GoogleClient implements Client against the Google Calendar v3 REST API
// using service-account credentials.
type GoogleClient struct {
	calendarID string
	apiBase    string
	http       *http.Client
}

// NewGoogleClient reads the service-account JSON key at credentialsFile and
// builds an authenticated client for the given calendar.
func NewGoogleClient(ctx context.Context, credentialsFile, calendarID string) (*GoogleClient, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, calendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar credentials: %w", err)
	}

	return &GoogleClient{
		calendarID: calendarID,
		apiBase:    defaultAPIBase,
		http:       conf.Client(ctx),
	}, nil
}

type eventList struct {
	Items []Event `json:"items"`
}

// Events lists up to 50 single events in the window, ordered by start time.
func (c *GoogleClient) Events(ctx context.Context, start, end string) ([]Event, error) {
	q := url.Values{}
	q.Set("timeMin", start)
	q.Set("timeMax", end)
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", fmt.Sprintf("%d", maxListedEvents))
	q.Set("timeZone", DefaultTimeZone)

	var parsed eventList
	if err := c.do(ctx, http.MethodGet, c.eventsURL("")+"?"+q.Encode(), nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Items, nil
}

// CreateEvent inserts the event into the calendar.
func (c *GoogleClient) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if event.Start.TimeZone == "" {
		event.Start.TimeZone = DefaultTimeZone
	}
	if event.End.TimeZone == "" {
		event.End.TimeZone = DefaultTimeZone
	}

	var created Event
	if err := c.do(ctx, http.MethodPost, c.eventsURL(""), event, &created); err != nil {
		return Event{}, err
	}
	return created, nil
}

// UpdateEvent applies a partial update to the event.
func (c *GoogleClient) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) (Event, error) {
	var updated Event
	if err := c.do(ctx, http.MethodPatch, c.eventsURL(eventID), patch, &updated); err != nil {
		return Event{}, err
	}
	return updated, nil
}

// DeleteEvent removes the event from the calendar.
func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.do(ctx, http.MethodDelete, c.eventsURL(eventID), nil, nil)
}

func (c *GoogleClient) eventsURL(eventID string) string {
	u := fmt.Sprintf("%s/calendars/%s/events", c.apiBase, url.PathEscape(c.calendarID))
	if eventID != "" {
		u += "/" + url.PathEscape(eventID)
	}
	return u
}

func (c *GoogleClient) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode calendar request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build calendar request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calendar request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode calendar response: %w", err)
		}
	}
	return nil
}
