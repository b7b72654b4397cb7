package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCapacity is the number of records held between flushes
const DefaultCapacity = 1024

// Flusher writes out buffered log records
type Flusher interface {
	Flush(ctx context.Context) error
}

type entry struct {
	handler slog.Handler
	record  slog.Record
}

type buffer struct {
	ch      chan entry
	dropped atomic.Int64
	mu      sync.Mutex // serializes flushes
}

// BufferedHandler queues records and hands them to the sink only on Flush.
// When the queue is full the oldest record is dropped and counted.
type BufferedHandler struct {
	sink   slog.Handler // root sink, used for the drop report
	target slog.Handler // sink with this handler's attrs and groups
	buf    *buffer
}

// NewBufferedHandler creates a handler holding up to capacity records
func NewBufferedHandler(sink slog.Handler, capacity int) *BufferedHandler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &BufferedHandler{
		sink:   sink,
		target: sink,
		buf:    &buffer{ch: make(chan entry, capacity)},
	}
}

func (h *BufferedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.target.Enabled(ctx, level)
}

func (h *BufferedHandler) Handle(_ context.Context, r slog.Record) error {
	e := entry{handler: h.target, record: r.Clone()}
	for {
		select {
		case h.buf.ch <- e:
			return nil
		default:
		}
		select {
		case <-h.buf.ch:
			h.buf.dropped.Add(1)
		default:
		}
	}
}

func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferedHandler{sink: h.sink, target: h.target.WithAttrs(attrs), buf: h.buf}
}

func (h *BufferedHandler) WithGroup(name string) slog.Handler {
	return &BufferedHandler{sink: h.sink, target: h.target.WithGroup(name), buf: h.buf}
}

// Flush writes every queued record to the sink, in order
func (h *BufferedHandler) Flush(ctx context.Context) error {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()

	var firstErr error
	for {
		select {
		case e := <-h.buf.ch:
			if err := e.handler.Handle(ctx, e.record); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			if n := h.buf.dropped.Swap(0); n > 0 {
				r := slog.NewRecord(time.Now(), slog.LevelWarn, "log records dropped", 0)
				r.AddAttrs(slog.Int64("count", n))
				if err := h.sink.Handle(ctx, r); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		}
	}
}

// Pending returns the number of queued records
func (h *BufferedHandler) Pending() int {
	return len(h.buf.ch)
}

// Dropped returns the number of records dropped since the last flush
func (h *BufferedHandler) Dropped() int64 {
	return h.buf.dropped.Load()
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds a text logger writing to w through a buffered handler
func New(w io.Writer, level slog.Level) (*slog.Logger, *BufferedHandler) {
	sink := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	h := NewBufferedHandler(sink, DefaultCapacity)
	return slog.New(h), h
}

// Component returns a logger tagged with the subsystem name
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}

// Nop flushes nothing
type Nop struct{}

func (Nop) Flush(context.Context) error { return nil }
