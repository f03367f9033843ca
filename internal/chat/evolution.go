// Package chat implements the outbound side of the WhatsApp integration via
// the Evolution API: sending text replies and listing group participants.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jarbasai/jarbas/pkg/models"
)

// Sender delivers a text reply to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
}

// EvolutionConfig configures the Evolution API client.
type EvolutionConfig struct {
	// BaseURL is the Evolution server root, e.g. "https://evo.example.com".
	BaseURL string

	// Instance is the connected WhatsApp instance name.
	Instance string

	// APIKey is sent in the "apikey" header on every request.
	APIKey string

	// HTTPClient overrides the default client (10s timeout) when set.
	HTTPClient *http.Client
}

// EvolutionClient talks to an Evolution API server.
type EvolutionClient struct {
	baseURL  string
	instance string
	apiKey   string
	http     *http.Client
}

// NewEvolutionClient creates an Evolution API client.
func NewEvolutionClient(cfg EvolutionConfig) *EvolutionClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &EvolutionClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		instance: cfg.Instance,
		apiKey:   cfg.APIKey,
		http:     httpClient,
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendText delivers a text message to the chat identified by chatID (a user
// or group JID).
func (c *EvolutionClient) SendText(ctx context.Context, chatID, text string) error {
	endpoint := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, url.PathEscape(c.instance))

	body, err := json.Marshal(sendTextRequest{Number: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

type participantsResponse struct {
	Participants []struct {
		ID    string `json:"id"`
		LID   string `json:"lid"`
		Admin string `json:"admin"`
	} `json:"participants"`
}

// GroupParticipants returns the current member list of a group.
func (c *EvolutionClient) GroupParticipants(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	endpoint := fmt.Sprintf("%s/group/participants/%s?groupJid=%s",
		c.baseURL, url.PathEscape(c.instance), url.QueryEscape(groupID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build participants request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("participants request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("participants request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed participantsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode participants response: %w", err)
	}

	members := make([]models.GroupMember, 0, len(parsed.Participants))
	for _, p := range parsed.Participants {
		members = append(members, models.GroupMember{ID: p.ID, LID: p.LID, Admin: p.Admin})
	}
	return members, nil
}

// DownloadMedia fetches an encrypted media payload from its CDN URL.
func (c *EvolutionClient) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
