package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"inventory-transfer/internal/core"
)

// Outcome labels reported to a Recorder.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)

// Recorder observes dispatch outcomes, typically for metrics.
type Recorder interface {
	LowStockEvent(outcome string)
}

// DefaultEnqueueTimeout bounds how long Emit waits for room in a full queue.
const DefaultEnqueueTimeout = 50 * time.Millisecond

// Dispatcher is a core.Emitter backed by a bounded queue drained by worker goroutines.
// Emit waits at most the enqueue timeout for room in a full queue, then drops the
// event and logs it. It never waits for delivery.
type Dispatcher struct {
	notifier       Notifier
	logger         *zap.Logger
	recorder       Recorder
	queue          chan core.LowStockDetected
	workers        int
	timeout        time.Duration
	enqueueTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ core.Emitter = (*Dispatcher)(nil)

func NewDispatcher(notifier Notifier, logger *zap.Logger, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		notifier:       notifier,
		logger:         logger,
		queue:          make(chan core.LowStockDetected, queueSize),
		workers:        workers,
		timeout:        10 * time.Second,
		enqueueTimeout: DefaultEnqueueTimeout,
	}
}

// WithRecorder attaches r and returns d.
func (d *Dispatcher) WithRecorder(r Recorder) *Dispatcher {
	d.recorder = r
	return d
}

// WithEnqueueTimeout sets how long Emit waits on a full queue and returns d.
// Zero or less drops immediately.
func (d *Dispatcher) WithEnqueueTimeout(timeout time.Duration) *Dispatcher {
	d.enqueueTimeout = timeout
	return d
}

// Start launches the workers. They exit when the queue is closed and drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for evt := range d.queue {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		err := d.notifier.Notify(callCtx, evt)
		cancel()
		if err != nil {
			d.logger.Error("Failed to deliver low-stock notification",
				zap.Int64("stock_id", evt.StockID),
				zap.String("sku", evt.SKU),
				zap.Error(err),
			)
			d.record(OutcomeFailed)
			continue
		}
		d.record(OutcomeDelivered)
	}
}

func (d *Dispatcher) Emit(evt core.LowStockDetected) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("Dispatcher closed, dropping low-stock event", zap.Int64("stock_id", evt.StockID))
		d.record(OutcomeDropped)
		return
	}
	if d.enqueue(evt) {
		return
	}
	d.logger.Warn("Notification queue full, dropping low-stock event",
		zap.Int64("stock_id", evt.StockID),
		zap.String("sku", evt.SKU),
		zap.Int("queue_size", cap(d.queue)),
		zap.Duration("waited", d.enqueueTimeout),
	)
	d.record(OutcomeDropped)
}

// enqueue must be called with d.mu held for reading, so Close cannot close the
// queue underneath the send.
func (d *Dispatcher) enqueue(evt core.LowStockDetected) bool {
	select {
	case d.queue <- evt:
		return true
	default:
	}
	if d.enqueueTimeout <= 0 {
		return false
	}
	timer := time.NewTimer(d.enqueueTimeout)
	defer timer.Stop()
	select {
	case d.queue <- evt:
		return true
	case <-timer.C:
		return false
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) record(outcome string) {
	if d.recorder != nil {
		d.recorder.LowStockEvent(outcome)
	}
}
