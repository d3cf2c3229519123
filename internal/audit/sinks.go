package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models/events"
)

// HTTPSink posts events to the audit service.
type HTTPSink struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPSink targets {baseURL}/audit. Timeouts come from the emitter's
// per-delivery context.
func NewHTTPSink(baseURL string) *HTTPSink {
	return &HTTPSink{
		endpoint:   strings.TrimRight(baseURL, "/") + "/audit",
		httpClient: &http.Client{},
	}
}

func (s *HTTPSink) Name() string { return "audit-service" }

func (s *HTTPSink) Deliver(ctx context.Context, event events.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("audit service returned %d", resp.StatusCode)
	}
	return nil
}

// KafkaSink mirrors events to the event stream as TransactionEvents keyed
// by transaction id.
type KafkaSink struct {
	publisher interfaces.EventPublisher
}

func NewKafkaSink(publisher interfaces.EventPublisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, event events.AuditEvent) error {
	payload := events.NewTransactionEvent(event)
	return s.publisher.Publish(ctx, payload.TransactionID, payload)
}
