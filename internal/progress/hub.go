package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering and batching for the Hub.
type Config struct {
	// BufferSize is the capacity of the internal event channel.
	BufferSize int
	// MaxBatchEvents flushes a batch once it reaches this many events.
	MaxBatchEvents int
	// MaxBatchWait flushes a non-empty batch after this duration.
	MaxBatchWait time.Duration
	// SinkTimeout bounds each sink call during a flush.
	SinkTimeout time.Duration
	// BaseContext is the parent context for sink calls.
	BaseContext context.Context
	// Logger receives drop and sink-failure warnings.
	Logger *zap.Logger
}

const (
	defaultBufferSize     = 4096
	defaultMaxBatchEvents = 1000
	defaultMaxBatchWait   = 500 * time.Millisecond
	defaultSinkTimeout    = 10 * time.Second
	dropLogInterval       = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.MaxBatchEvents <= 0 {
		c.MaxBatchEvents = defaultMaxBatchEvents
	}
	if c.MaxBatchWait <= 0 {
		c.MaxBatchWait = defaultMaxBatchWait
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = defaultSinkTimeout
	}
	if c.BaseContext == nil {
		c.BaseContext = context.Background()
	}
	return c
}

// Hub collects pipeline events and fans them out to sinks in batches.
// Emit never blocks the crawl path; a full buffer drops events.
type Hub struct {
	cfg    Config
	sinks  []Sink
	events chan Event
	logger *zap.Logger

	stop chan struct{}
	done chan struct{}

	closed      atomic.Bool
	dropped     atomic.Int64
	lastDropLog atomic.Int64

	closeOnce sync.Once
	closeCtx  context.Context
}

// NewHub starts the batching goroutine over the given sinks. The Hub
// accepts events immediately.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		events: make(chan Event, cfg.BufferSize),
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go h.run()
	return h
}

// Emit enqueues an Event without blocking. Invalid events are discarded;
// a full buffer drops the event and logs a rate-limited warning.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	select {
	case h.events <- evt:
	default:
		h.noteDrop()
	}
}

func (h *Hub) noteDrop() {
	h.dropped.Add(1)
	now := time.Now().UnixNano()
	last := h.lastDropLog.Load()
	if now-last < dropLogInterval.Nanoseconds() {
		return
	}
	if h.lastDropLog.CompareAndSwap(last, now) {
		h.logger.Warn("progress events dropped due to backpressure",
			zap.Int64("dropped", h.dropped.Swap(0)))
	}
}

// Close drains buffered events, flushes and closes the sinks, and waits
// for the background goroutine. Safe to call more than once.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stop)
	})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.done)

	var (
		batch  []Event
		timer  *time.Timer
		flushC <-chan time.Time
	)
	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		flushC = nil
	}

	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatchEvents {
				h.flush(batch)
				batch = nil
				disarm()
				continue
			}
			// Arm the wait timer on the first event of a batch.
			if flushC == nil {
				timer = time.NewTimer(h.cfg.MaxBatchWait)
				flushC = timer.C
			}
		case <-flushC:
			timer = nil
			flushC = nil
			h.flush(batch)
			batch = nil
		case <-h.stop:
			disarm()
			h.drain(batch)
			return
		}
	}
}

// drain empties whatever is still buffered, flushes it, and closes the
// sinks.
func (h *Hub) drain(batch []Event) {
	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatchEvents {
				h.flush(batch)
				batch = nil
			}
		default:
			h.flush(batch)
			h.closeSinks()
			return
		}
	}
}

func (h *Hub) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}
	snapshot := append([]Event(nil), batch...)
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := h.sinkContext()
		if err := sink.Consume(ctx, snapshot); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
}

func (h *Hub) sinkContext() (context.Context, context.CancelFunc) {
	base := h.cfg.BaseContext
	if base == nil {
		base = context.Background()
	}
	if h.cfg.SinkTimeout <= 0 {
		return base, func() {}
	}
	return context.WithTimeout(base, h.cfg.SinkTimeout)
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
}
