package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jarbasai/jarbas/internal/debounce"
	"github.com/jarbasai/jarbas/internal/media"
	"github.com/jarbasai/jarbas/internal/observability"
)

type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(ctx context.Context, env media.Envelope) (media.Inbound, error) {
	n := media.NewNormalizer(media.NormalizerOptions{})
	return n.Normalize(ctx, env)
}

type allowAll struct{ allow bool }

func (a allowAll) Permit(context.Context, string) bool { return a.allow }

type captureEnqueuer struct {
	userKeys []string
	texts    []string
	err      error
}

func (e *captureEnqueuer) Enqueue(_ context.Context, userKey, fragment string) error {
	if e.err != nil {
		return e.err
	}
	e.userKeys = append(e.userKeys, userKey)
	e.texts = append(e.texts, fragment)
	return nil
}

func newTestServer(auth bool, enq *captureEnqueuer) *Server {
	reg := prometheus.NewRegistry()
	return New(Options{
		ListenAddr: ":0",
		Normalizer: passthroughNormalizer{},
		Authorizer: allowAll{allow: auth},
		Enqueuer:   enq,
		Gatherer:   reg,
		Metrics:    observability.NewMetrics(reg),
	})
}

func postWebhook(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/evolution", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const textMessage = `{
	"event": "messages.upsert",
	"data": {
		"key": {"remoteJid": "5511999@s.whatsapp.net", "fromMe": false, "id": "M1"},
		"message": {"conversation": "oi jarbas"}
	}
}`

func TestWebhookQueuesTextMessage(t *testing.T) {
	enq := &captureEnqueuer{}
	s := newTestServer(true, enq)

	rec := postWebhook(t, s, textMessage)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "queued" {
		t.Errorf("status = %q", resp["status"])
	}
	if len(enq.texts) != 1 || enq.texts[0] != "oi jarbas" {
		t.Errorf("enqueued = %v", enq.texts)
	}
	if enq.userKeys[0] != "5511999@s.whatsapp.net" {
		t.Errorf("userKey = %q", enq.userKeys[0])
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	s := newTestServer(true, &captureEnqueuer{})

	rec := postWebhook(t, s, `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookIgnoresSelfMessages(t *testing.T) {
	enq := &captureEnqueuer{}
	s := newTestServer(true, enq)

	body := `{
		"data": {
			"key": {"remoteJid": "5511999@s.whatsapp.net", "fromMe": true},
			"message": {"conversation": "eco"}
		}
	}`
	rec := postWebhook(t, s, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "ignored" {
		t.Errorf("status = %q", resp["status"])
	}
	if len(enq.texts) != 0 {
		t.Error("ignored message was enqueued")
	}
}

func TestWebhookDeniesUnauthorizedSender(t *testing.T) {
	enq := &captureEnqueuer{}
	s := newTestServer(false, enq)

	rec := postWebhook(t, s, textMessage)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if len(enq.texts) != 0 {
		t.Error("denied message was enqueued")
	}
}

func TestWebhookShuttingDownAcknowledged(t *testing.T) {
	s := newTestServer(true, &captureEnqueuer{err: debounce.ErrShuttingDown})

	rec := postWebhook(t, s, textMessage)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 during shutdown", rec.Code)
	}
}

func TestWebhookEnqueueFailure(t *testing.T) {
	s := newTestServer(true, &captureEnqueuer{err: context.DeadlineExceeded})

	rec := postWebhook(t, s, textMessage)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(true, &captureEnqueuer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(true, &captureEnqueuer{})
	postWebhook(t, s, textMessage)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "jarbas_inbound_events_total") {
		t.Error("inbound counter missing from /metrics")
	}
}
