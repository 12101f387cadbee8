package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	ProjectCreated = "project.created"
	FileCreated    = "file.created"
	FileUpdated    = "file.updated"
	FileRenamed    = "file.renamed"
	FileDeleted    = "file.deleted"
	FilesReplaced  = "files.replaced"
)

// Event is the envelope published after a mutation commits.
type Event struct {
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id,omitempty"`
	FileID     string         `json:"file_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher delivers an encoded event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

const defaultPublishTimeout = 5 * time.Second

// Emitter encodes events and hands them to a Publisher. Delivery is best
// effort: failures are logged and counted, never returned. A publish may not
// outlive timeout, even when the request that caused it is gone.
type Emitter struct {
	pub     Publisher
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewEmitter(pub Publisher, log zerolog.Logger, timeout time.Duration) *Emitter {
	if pub == nil {
		pub = NewNoopPublisher()
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Emitter{pub: pub, log: log, timeout: timeout, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		e.log.Error().Err(err).Str("type", ev.Type).Msg("encode event")
		metrics.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()
	err = e.pub.Publish(pctx, ev.Type, body)
	metrics.EventsPublished.WithLabelValues(ev.Type, metrics.Outcome(err)).Inc()
	if err != nil {
		e.log.Warn().Err(err).Str("type", ev.Type).Str("project_id", ev.ProjectID).Msg("publish event")
	}
}

func (e *Emitter) Close() error {
	return e.pub.Close()
}

// NoopPublisher discards events when no broker is configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return nil
}

func (p *NoopPublisher) Close() error { return nil }

var _ Publisher = (*NoopPublisher)(nil)
