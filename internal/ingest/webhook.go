package ingest

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"whale-alerts/internal/domain"
)

var errEmptyBody = errors.New("empty payload")

// MaxWebhookBody caps the request size accepted by the webhook.
const MaxWebhookBody = 8 << 20

// SourceWebhook labels events pushed by the webhook.
const SourceWebhook = "webhook"

// Submitter accepts events for asynchronous processing.
type Submitter interface {
	Submit(source string, ev *domain.RawTransactionEvent) bool
}

// WebhookHandler receives enhanced transactions pushed by the provider.
type WebhookHandler struct {
	submitter Submitter
	authToken string
	logger    logrus.FieldLogger
}

// NewWebhookHandler creates a handler. An empty authToken disables the
// Authorization check.
func NewWebhookHandler(submitter Submitter, authToken string, logger logrus.FieldLogger) *WebhookHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WebhookHandler{
		submitter: submitter,
		authToken: authToken,
		logger:    logger.WithField("component", "webhook"),
	}
}

// Register mounts the webhook and health routes on mux.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook", h.ServeHTTP)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.authToken != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte(h.authToken)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}
	events, err := DecodeEvents(body)
	if err != nil {
		h.logger.WithError(err).Warn("bad webhook payload")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rejected := 0
	for _, ev := range events {
		if !h.submitter.Submit(SourceWebhook, ev) {
			rejected++
		}
	}
	if rejected > 0 {
		h.logger.WithFields(logrus.Fields{"events": len(events), "rejected": rejected}).Warn("ingest queue full")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "queue full", "rejected": rejected})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// DecodeEvents parses a webhook body holding either a JSON array of events or
// a single event object.
func DecodeEvents(body []byte) ([]*domain.RawTransactionEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errEmptyBody
	}
	if trimmed[0] == '[' {
		var decoded []*domain.RawTransactionEvent
		if err := json.Unmarshal(trimmed, &decoded); err != nil {
			return nil, err
		}
		events := decoded[:0]
		for _, ev := range decoded {
			if ev != nil {
				events = append(events, ev)
			}
		}
		if len(events) == 0 {
			return nil, errEmptyBody
		}
		return events, nil
	}
	var ev domain.RawTransactionEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, err
	}
	return []*domain.RawTransactionEvent{&ev}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
