package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestDispatcherLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := &recordingNotifier{err: errors.New("smtp down")}
	d := NewDispatcher(n, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, Message{Kind: KindWelcome, Recipient: "user:1"})
	cancel()
	d.Wait()

	require.Len(t, n.msgs, 1)
	assert.Equal(t, KindWelcome, n.msgs[0].Kind)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "notification failed", logs.All()[0].Message)
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(context.Background(), Message{Kind: KindPromotional})
	d.Wait()
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaNotifierEnvelope(t *testing.T) {
	w := &fakeWriter{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := &KafkaNotifier{writer: w, now: func() time.Time { return fixed }}

	err := n.Send(context.Background(), Message{
		Kind:      KindOrderConfirmation,
		Recipient: "user:7",
		Payload:   map[string]any{"orderId": 12},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user:7", string(w.msgs[0].Key))

	var got event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, KindOrderConfirmation, got.EventType)
	assert.NotEmpty(t, got.EventID)
	assert.True(t, got.Timestamp.Equal(fixed))
	assert.Equal(t, float64(12), got.Payload.Payload["orderId"])
}
