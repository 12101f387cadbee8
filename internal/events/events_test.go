package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.keys = append(p.keys, routingKey)
	p.bodies = append(p.bodies, body)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestEmitter_EncodesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	em := NewEmitter(pub, zerolog.Nop(), 0)
	em.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	em.Emit(context.Background(), Event{
		Type:      FilesReplaced,
		ProjectID: "p1",
		Payload:   map[string]any{"count": 2},
	})

	require.Equal(t, []string{FilesReplaced}, pub.keys)
	var got map[string]any
	require.NoError(t, json.Unmarshal(pub.bodies[0], &got))
	require.Equal(t, "files.replaced", got["type"])
	require.Equal(t, "p1", got["project_id"])
	require.Equal(t, "2025-01-02T03:04:05Z", got["occurred_at"])
	require.Equal(t, float64(2), got["payload"].(map[string]any)["count"])
}

func TestEmitter_SwallowsPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	em := NewEmitter(pub, zerolog.Nop(), 0)

	require.NotPanics(t, func() {
		em.Emit(context.Background(), Event{Type: FileDeleted, FileID: "f1"})
	})
	require.Len(t, pub.keys, 1)
}

func TestEmitter_DefaultsToNoop(t *testing.T) {
	em := NewEmitter(nil, zerolog.Nop(), 0)
	em.Emit(context.Background(), Event{Type: ProjectCreated})
	require.NoError(t, em.Close())
}

// stuckPublisher never completes on its own, like a broker that stopped
// answering.
type stuckPublisher struct {
	deadlineSet bool
}

func (p *stuckPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	_, p.deadlineSet = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func (p *stuckPublisher) Close() error { return nil }

func TestEmitter_PublishIsBounded(t *testing.T) {
	pub := &stuckPublisher{}
	em := NewEmitter(pub, zerolog.Nop(), 50*time.Millisecond)

	// the caller's context is already gone; the publish still gets its own deadline
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	em.Emit(ctx, Event{Type: FileUpdated, FileID: "f1"})
	require.Less(t, time.Since(start), 2*time.Second)
	require.True(t, pub.deadlineSet)
}
