package goIAM

import (
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goIAM/internal/audit"
)

// AuditEvent is the audit record emitted by engine operations.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// NewChannelSink returns a sink writing into a buffered channel.
func NewChannelSink(buffer int) *internalaudit.ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *internalaudit.JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewStoreSink persists events through s with a per-insert timeout.
// onError may be nil.
func NewStoreSink(s internalaudit.Inserter, timeout time.Duration, onError func(AuditEvent, error)) *internalaudit.StoreSink {
	return internalaudit.NewStoreSink(s, timeout, onError)
}

// MultiSink fans an event out to every sink.
type MultiSink = internalaudit.MultiSink
