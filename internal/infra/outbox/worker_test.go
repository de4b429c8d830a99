package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rentme-app/internal/app/outbox"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func record(id, name string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"request_id":"sw-1","to":"accepted"}`),
		OccurredAt: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
		Aggregate:  "sw-1",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func TestWorkerPublishesCloudEvents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Add(ctx, record("ev-1", "swap.requested")))
	require.NoError(t, store.Add(ctx, record("ev-2", "swap.accepted")))
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer, TopicPrefix: "dev.", ID: "worker-1"}

	sent, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Zero(t, store.Pending())

	require.Len(t, producer.msgs, 2)
	msg := producer.msgs[1]
	assert.Equal(t, "dev.swap.events.v1", msg.topic)
	assert.Equal(t, "sw-1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "00-abc-def-01", msg.headers["traceparent"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "ev-2", evt["id"])
	assert.Equal(t, "swap.accepted.v1", evt["type"])
	assert.Equal(t, "app://rentme-client", evt["source"])
	assert.Equal(t, map[string]any{"request_id": "sw-1", "to": "accepted"}, evt["data"])

	sent, err = w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestWorkerMarksFailedAndRetries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Add(ctx, record("ev-1", "swap.declined")))
	producer := &fakeProducer{err: errors.New("broker down")}
	w := &Worker{Store: store, Producer: producer, Backoff: []time.Duration{20 * time.Millisecond}}

	sent, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, stateFailed, entries[0].State)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.Equal(t, "broker down", entries[0].LastError)

	producer.mu.Lock()
	producer.err = nil
	producer.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	sent, err = w.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, stateSent, store.Entries()[0].State)
}

func TestWorkerRejectsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	rec := record("ev-1", "swap.cancelled")
	rec.Payload = []byte("not json")
	require.NoError(t, store.Add(ctx, rec))
	w := &Worker{Store: store, Producer: &fakeProducer{}, Backoff: []time.Duration{time.Hour}}

	sent, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, stateFailed, store.Entries()[0].State)

	doc, err := store.Claim(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, doc, "failed entry is not due before its backoff")
}

func TestWorkerRunRequiresDependencies(t *testing.T) {
	w := &Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), ErrWorkerNotConfigured)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore(0)
	producer := &fakeProducer{}
	require.NoError(t, store.Add(ctx, record("ev-1", "swap.completed")))
	w := &Worker{Store: store, Producer: producer, Interval: 10 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return store.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestTopicFor(t *testing.T) {
	w := &Worker{}
	assert.Equal(t, "swap.events.v1", w.topicFor("swap.requested"))
	assert.Equal(t, "misc.events.v1", w.topicFor("misc"))
}

func TestMemoryStoreLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	for _, id := range []string{"ev-1", "ev-2", "ev-3"} {
		require.NoError(t, store.Add(ctx, record(id, "swap.requested")))
	}
	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "ev-2", entries[0].ID)
	assert.Equal(t, "ev-3", entries[1].ID)
	assert.ErrorIs(t, store.MarkSent(ctx, "ev-1"), ErrUnknownEvent)
}
