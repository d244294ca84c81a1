package goCredSync

import (
	"io"

	"github.com/MrEthical07/goCredSync/internal/audit"
)

// AuditEvent defines a public type used by goCredSync APIs.
type AuditEvent = audit.Event

// AuditSink defines a public type used by goCredSync APIs.
type AuditSink = audit.Sink

// NoOpSink defines a public type used by goCredSync APIs.
type NoOpSink = audit.NoOpSink

// ChannelSink defines a public type used by goCredSync APIs.
type ChannelSink = audit.ChannelSink

// JSONWriterSink defines a public type used by goCredSync APIs.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *audit.Dispatcher {
	return audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}

// Audit event types emitted by the sync engine.
const (
	// AuditEventStore is an exported constant or variable used by the sync engine.
	AuditEventStore = "session.store"
	// AuditEventLoad is an exported constant or variable used by the sync engine.
	AuditEventLoad = "session.load"
	// AuditEventDelete is an exported constant or variable used by the sync engine.
	AuditEventDelete = "session.delete"
	// AuditEventReplayDetected is an exported constant or variable used by the sync engine.
	AuditEventReplayDetected = "session.replay_detected"
	// AuditEventTamperDetected is an exported constant or variable used by the sync engine.
	AuditEventTamperDetected = "session.tamper_detected"
	// AuditEventExpired is an exported constant or variable used by the sync engine.
	AuditEventExpired = "session.expired"
	// AuditEventClientRefreshed is an exported constant or variable used by the sync engine.
	AuditEventClientRefreshed = "client.refreshed"
	// AuditEventRateLimited is an exported constant or variable used by the sync engine.
	AuditEventRateLimited = "remote.rate_limited"
)
