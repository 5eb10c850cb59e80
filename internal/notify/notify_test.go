package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"inventory-transfer/internal/core"
)

func sampleEvent() core.LowStockDetected {
	return core.LowStockDetected{
		StockID:           7,
		ItemID:            3,
		WarehouseID:       2,
		AvailableQuantity: 5,
		MinStockLevel:     10,
		SKU:               "WID-001",
		ItemName:          "Widget",
		WarehouseName:     "Central",
		DetectedAt:        time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []core.LowStockDetected
	err    error
	block  chan struct{}
}

func (r *recordingNotifier) Notify(_ context.Context, evt core.LowStockDetected) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *countingRecorder) LowStockEvent(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[outcome]++
}

func (c *countingRecorder) get(outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes[outcome]
}

// ── Log notifier ─────────────────────────────────────────────────────────────

func TestLogNotifier_WritesWarning(t *testing.T) {
	observed, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(observed))

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))

	entries := logs.FilterMessage("Low stock detected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "WID-001", fields["sku"])
	assert.Equal(t, "Central", fields["warehouse"])
	assert.EqualValues(t, 5, fields["current_quantity"])
	assert.EqualValues(t, 10, fields["min_stock_level"])
}

// ── Dispatcher ───────────────────────────────────────────────────────────────

func TestDispatcher_DeliversQueuedEvents(t *testing.T) {
	target := &recordingNotifier{}
	rec := &countingRecorder{}
	d := NewDispatcher(target, zap.NewNop(), 3, 16).WithRecorder(rec)
	d.Start(context.Background())

	for i := 0; i < 10; i++ {
		d.Emit(sampleEvent())
	}
	d.Close()

	assert.Equal(t, 10, target.count())
	assert.Equal(t, 10, rec.get(OutcomeDelivered))
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	target := &recordingNotifier{}
	rec := &countingRecorder{}
	d := NewDispatcher(target, zap.NewNop(), 1, 2).WithRecorder(rec).WithEnqueueTimeout(10 * time.Millisecond)

	// Not started yet, so nothing drains the queue.
	for i := 0; i < 5; i++ {
		d.Emit(sampleEvent())
	}
	assert.Equal(t, 3, rec.get(OutcomeDropped))

	d.Start(context.Background())
	d.Close()
	assert.Equal(t, 2, target.count())
}

func TestDispatcher_WaitsForRoomBeforeDropping(t *testing.T) {
	target := &recordingNotifier{}
	rec := &countingRecorder{}
	d := NewDispatcher(target, zap.NewNop(), 1, 1).WithRecorder(rec).WithEnqueueTimeout(5 * time.Second)

	d.Emit(sampleEvent())
	go func() {
		time.Sleep(20 * time.Millisecond)
		d.Start(context.Background())
	}()
	// The queue is full until the worker starts draining it.
	d.Emit(sampleEvent())
	d.Close()

	assert.Equal(t, 0, rec.get(OutcomeDropped))
	assert.Equal(t, 2, rec.get(OutcomeDelivered))
	assert.Equal(t, 2, target.count())
}

func TestDispatcher_ZeroEnqueueTimeoutDropsImmediately(t *testing.T) {
	rec := &countingRecorder{}
	d := NewDispatcher(&recordingNotifier{}, zap.NewNop(), 1, 1).WithRecorder(rec).WithEnqueueTimeout(0)

	start := time.Now()
	d.Emit(sampleEvent())
	d.Emit(sampleEvent())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, rec.get(OutcomeDropped))

	d.Start(context.Background())
	d.Close()
}

func TestDispatcher_CountsFailuresAndRejectsAfterClose(t *testing.T) {
	target := &recordingNotifier{err: errors.New("smtp down")}
	rec := &countingRecorder{}
	d := NewDispatcher(target, zap.NewNop(), 1, 4).WithRecorder(rec)
	d.Start(context.Background())

	d.Emit(sampleEvent())
	d.Close()
	d.Close()
	d.Emit(sampleEvent())

	assert.Equal(t, 1, rec.get(OutcomeFailed))
	assert.Equal(t, 1, rec.get(OutcomeDropped))
}

func TestDispatcher_EmitDoesNotWaitForDelivery(t *testing.T) {
	target := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(target, zap.NewNop(), 1, 4)
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		d.Emit(sampleEvent())
		d.Emit(sampleEvent())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a slow notifier")
	}

	close(target.block)
	d.Close()
	assert.Equal(t, 2, target.count())
}

// ── Kafka ────────────────────────────────────────────────────────────────────

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	return cfg
}

func TestKafkaNotifier_PublishesJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var evt core.LowStockDetected
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.SKU != "WID-001" || evt.AvailableQuantity != 5 {
			return errors.New("unexpected payload")
		}
		return nil
	})

	n := newKafkaNotifier(producer, "inventory.low-stock", 3, zap.NewNop())
	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	require.NoError(t, n.Close())
}

func TestKafkaNotifier_RetriesThenFails(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig())
	boom := errors.New("broker unavailable")
	producer.ExpectSendMessageAndFail(boom)
	producer.ExpectSendMessageAndFail(boom)

	n := newKafkaNotifier(producer, "inventory.low-stock", 2, zap.NewNop())
	n.baseDelay = time.Millisecond

	err := n.Notify(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
	require.NoError(t, n.Close())
}

func TestKafkaNotifier_RecoversOnRetry(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig())
	producer.ExpectSendMessageAndFail(errors.New("leader not available"))
	producer.ExpectSendMessageAndSucceed()

	n := newKafkaNotifier(producer, "inventory.low-stock", 3, zap.NewNop())
	n.baseDelay = time.Millisecond

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	require.NoError(t, n.Close())
}

func TestKafkaNotifier_MessageShape(t *testing.T) {
	n := newKafkaNotifier(nil, "inventory.low-stock", 1, zap.NewNop())
	msg, err := n.message(sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "inventory.low-stock", msg.Topic)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "7", string(key))

	headers := make([]*sarama.RecordHeader, 0, len(msg.Headers))
	for i := range msg.Headers {
		headers = append(headers, &msg.Headers[i])
	}
	assert.Equal(t, EventTypeLowStock, eventType(headers))
}

// ── Consumer ─────────────────────────────────────────────────────────────────

func TestLowStockHandler_DecodesAndForwards(t *testing.T) {
	target := &recordingNotifier{}
	h := &lowStockHandler{target: target, logger: zap.NewNop()}

	payload, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	msg := &sarama.ConsumerMessage{
		Value:   payload,
		Headers: []*sarama.RecordHeader{{Key: []byte("event-type"), Value: []byte(EventTypeLowStock)}},
	}
	require.NoError(t, h.handle(context.Background(), msg))
	require.Equal(t, 1, target.count())
	assert.Equal(t, sampleEvent(), target.events[0])

	other := &sarama.ConsumerMessage{
		Value:   []byte(`{}`),
		Headers: []*sarama.RecordHeader{{Key: []byte("event-type"), Value: []byte("StockAdjusted")}},
	}
	require.NoError(t, h.handle(context.Background(), other))
	assert.Equal(t, 1, target.count())

	bad := &sarama.ConsumerMessage{Value: []byte(`{`), Headers: msg.Headers}
	assert.Error(t, h.handle(context.Background(), bad))
}
