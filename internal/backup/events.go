package backup

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"dirvault/internal/logging"
)

// EventOptions configures where audit events go beyond the structured log.
type EventOptions struct {
	Enabled bool                `yaml:"enabled"`
	File    *FileSinkOptions    `yaml:"file,omitempty"`
	Webhook *WebhookSinkOptions `yaml:"webhook,omitempty"`
}

// FileSinkOptions appends every event as one JSON line to a file.
type FileSinkOptions struct {
	Path string `yaml:"path"`
}

// WebhookSinkOptions posts fatal-outcome events to an HTTP endpoint so the
// host application's alerting can pick them up.
type WebhookSinkOptions struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SetDefaults fills unset event options.
func (eo *EventOptions) SetDefaults() {
	if eo.Webhook != nil && eo.Webhook.TimeoutSeconds == 0 {
		eo.Webhook.TimeoutSeconds = 10
	}
}

// Event is one structured audit record for a backup or restore operation.
type Event struct {
	ID        string        `json:"id"`
	Operation string        `json:"operation"`
	Path      string        `json:"path,omitempty"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Fatal     bool          `json:"fatal,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// EventRecorder emits completion and failure events for every backup and
// restore operation. Recording is best-effort: a failing sink never fails the
// operation it describes, it is only logged.
type EventRecorder struct {
	opts   EventOptions
	logger *logging.Logger
	client *http.Client
	mu     sync.Mutex
}

// NewEventRecorder creates an event recorder.
func NewEventRecorder(opts EventOptions, logger *logging.Logger) *EventRecorder {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	er := &EventRecorder{
		opts:   opts,
		logger: logger,
	}
	if opts.Webhook != nil {
		er.client = &http.Client{Timeout: time.Duration(opts.Webhook.TimeoutSeconds) * time.Second}
	}
	return er
}

// Record emits one event. The structured log line always happens; the file and
// webhook sinks engage when configured.
func (er *EventRecorder) Record(operation, path, outcome string, opErr error, duration time.Duration) Event {
	event := Event{
		ID:        uuid.NewString(),
		Operation: operation,
		Path:      path,
		Outcome:   outcome,
		Timestamp: time.Now(),
		Duration:  duration,
	}
	if opErr != nil {
		event.Error = opErr.Error()
		event.Fatal = IsKind(opErr, KindFatalInconsistent)
	}

	er.logger.LogBackupEvent(event.ID, operation, path, outcome, duration, opErr)

	if !er.opts.Enabled {
		return event
	}
	if er.opts.File != nil && er.opts.File.Path != "" {
		if err := er.appendToFile(event); err != nil {
			er.logger.Warnf("Failed to append audit event to %s: %v", er.opts.File.Path, err)
		}
	}
	if event.Fatal && er.opts.Webhook != nil && er.opts.Webhook.URL != "" {
		if err := er.postWebhook(event); err != nil {
			er.logger.Warnf("Failed to deliver fatal-outcome webhook: %v", err)
		}
	}
	return event
}

func (er *EventRecorder) appendToFile(event Event) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	if dir := filepath.Dir(er.opts.File.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(er.opts.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = file.Write(line)
	return err
}

func (er *EventRecorder) postWebhook(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	resp, err := er.client.Post(er.opts.Webhook.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return NewIOError("webhook returned status "+resp.Status, nil)
	}
	return nil
}
