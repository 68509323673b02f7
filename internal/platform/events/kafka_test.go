package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	block    chan struct{}
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

type countingDrops struct {
	mu sync.Mutex
	n  int
}

func (c *countingDrops) EventDropped() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func TestKafkaPublisherFlushesOnClose(t *testing.T) {
	writer := &recordingWriter{}
	p := newKafkaPublisher(writer, zaptest.NewLogger(t), nil, 10)

	p.Publish(context.Background(), NewEvent(EmployeeCreated, "emp-1", "user-1", map[string]string{"email": "a@example.com"}))
	p.Publish(context.Background(), NewEvent(EmployeeTerminated, "emp-1", "user-1", nil))
	require.NoError(t, p.Close())

	require.True(t, writer.closed)
	require.Len(t, writer.messages, 2)
	assert.Equal(t, "emp-1", string(writer.messages[0].Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, EmployeeCreated, decoded.Type)
	assert.Equal(t, "user-1", decoded.ActorID)
	assert.NotEmpty(t, decoded.ID)
}

func TestKafkaPublisherDropsWhenQueueFull(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	writer := &recordingWriter{block: make(chan struct{})}
	drops := &countingDrops{}
	p := newKafkaPublisher(writer, zap.New(core), drops, 1)

	// the first event is taken by the loop and blocks in the writer, the
	// second fills the queue, the rest are dropped
	for i := 0; i < 5; i++ {
		p.Publish(context.Background(), NewEvent(LeaveApproved, "req", "", nil))
	}
	close(writer.block)
	require.NoError(t, p.Close())

	drops.mu.Lock()
	dropped := drops.n
	drops.mu.Unlock()
	assert.GreaterOrEqual(t, dropped, 3)
	assert.Equal(t, dropped, recorded.FilterMessage("event queue full, dropping event").Len())
	assert.Equal(t, 5-dropped, len(writer.messages))
}
