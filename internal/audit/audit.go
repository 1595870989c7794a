package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/MrEthical07/goIAM/store"
)

// Event is the canonical audit event model used by internal dispatching and root APIs.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Actor     string            `json:"actor,omitempty"`
	Target    string            `json:"target,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Before    map[string]any    `json:"before,omitempty"`
	After     map[string]any    `json:"after,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Stamp fills ID and Timestamp when unset. IDs are KSUIDs so they sort by
// creation time.
func (e *Event) Stamp(now time.Time) {
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
	if e.ID == "" {
		id, err := ksuid.NewRandomWithTime(e.Timestamp)
		if err != nil {
			id = ksuid.New()
		}
		e.ID = id.String()
	}
}

// Entry converts e to its persisted form.
func (e Event) Entry() *store.AuditEntry {
	return &store.AuditEntry{
		ID:        e.ID,
		Action:    e.Action,
		Actor:     e.Actor,
		Target:    e.Target,
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Success:   e.Success,
		Error:     e.Error,
		Before:    e.Before,
		After:     e.After,
		Metadata:  e.Metadata,
		CreatedAt: e.Timestamp,
	}
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// Inserter is the write side of the audit store.
type Inserter interface {
	InsertAudit(ctx context.Context, entry *store.AuditEntry) error
}

// StoreSink persists events. Insert failures are reported to OnError and
// otherwise dropped; audit never fails the operation it records.
type StoreSink struct {
	store   Inserter
	timeout time.Duration
	onError func(Event, error)
}

// NewStoreSink returns a sink writing to s with a per-insert timeout.
func NewStoreSink(s Inserter, timeout time.Duration, onError func(Event, error)) *StoreSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StoreSink{store: s, timeout: timeout, onError: onError}
}

func (s *StoreSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	event.Stamp(time.Now())
	if err := s.store.InsertAudit(ctx, event.Entry()); err != nil && s.onError != nil {
		s.onError(event, err)
	}
}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}
