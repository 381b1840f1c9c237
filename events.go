package paneflow

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registered event types. The taxonomy is closed: the dispatcher rejects any
// type not listed here so downstream consumers never see surprise events.
const (
	// EventConnectedAccountConnected is an exported constant or variable used by the flow engine.
	EventConnectedAccountConnected = "connected_account.connected"
	// EventConnectedAccountCreated is an exported constant or variable used by the flow engine.
	EventConnectedAccountCreated = "connected_account.created"
	// EventConnectedAccountSuccessfulLogin is an exported constant or variable used by the flow engine.
	EventConnectedAccountSuccessfulLogin = "connected_account.successful_login"
	// EventConnectedAccountCompletedFirstSync is an exported constant or variable used by the flow engine.
	EventConnectedAccountCompletedFirstSync = "connected_account.completed_first_sync"
	// EventConnectedAccountDisconnected is an exported constant or variable used by the flow engine.
	EventConnectedAccountDisconnected = "connected_account.disconnected"
	// EventConnectWebviewLoginSucceeded is an exported constant or variable used by the flow engine.
	EventConnectWebviewLoginSucceeded = "connect_webview.login_succeeded"
	// EventConnectWebviewLoginFailed is an exported constant or variable used by the flow engine.
	EventConnectWebviewLoginFailed = "connect_webview.login_failed"
)

// Integration event types. The engine never emits these itself; they are
// registered so hosts can route their own device and access-code events
// through the same dispatcher and sinks.
const (
	// EventDeviceConnected is an exported constant or variable used by the flow engine.
	EventDeviceConnected = "device.connected"
	// EventDeviceDisconnected is an exported constant or variable used by the flow engine.
	EventDeviceDisconnected = "device.disconnected"
	// EventAccessCodeCreated is an exported constant or variable used by the flow engine.
	EventAccessCodeCreated = "access_code.created"
	// EventAccessCodeDeleted is an exported constant or variable used by the flow engine.
	EventAccessCodeDeleted = "access_code.deleted"
	// EventClientSessionDeleted is an exported constant or variable used by the flow engine.
	EventClientSessionDeleted = "client_session.deleted"
)

var registeredEventTypes = map[string]struct{}{
	EventConnectedAccountConnected:          {},
	EventConnectedAccountCreated:            {},
	EventConnectedAccountSuccessfulLogin:    {},
	EventConnectedAccountCompletedFirstSync: {},
	EventConnectedAccountDisconnected:       {},
	EventConnectWebviewLoginSucceeded:       {},
	EventConnectWebviewLoginFailed:          {},
	EventDeviceConnected:                    {},
	EventDeviceDisconnected:                 {},
	EventAccessCodeCreated:                  {},
	EventAccessCodeDeleted:                  {},
	EventClientSessionDeleted:               {},
}

// EventTypeRegistered reports whether an event type belongs to the closed
// taxonomy the dispatcher will deliver.
func EventTypeRegistered(eventType string) bool {
	_, ok := registeredEventTypes[eventType]
	return ok
}

// Event is the envelope delivered to sinks. OccurredAt is when the
// transition committed; CreatedAt is when the envelope was built.
type Event struct {
	EventID            string         `json:"event_id"`
	EventType          string         `json:"event_type"`
	WorkspaceID        string         `json:"workspace_id"`
	ConnectWebviewID   string         `json:"connect_webview_id,omitempty"`
	ConnectedAccountID string         `json:"connected_account_id,omitempty"`
	DeviceID           string         `json:"device_id,omitempty"`
	ErrorCode          string         `json:"error_code,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	OccurredAt         time.Time      `json:"occurred_at"`
}

func newEvent(eventType, workspaceID, connectWebviewID string, occurred time.Time) Event {
	now := time.Now().UTC()
	return Event{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		WorkspaceID:      workspaceID,
		ConnectWebviewID: connectWebviewID,
		CreatedAt:        now,
		OccurredAt:       occurred.UTC(),
	}
}

// EventSink receives committed domain events. Implementations must be safe
// for concurrent use; delivery happens on the dispatcher goroutine.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit describes the emit operation and its observable behavior.
func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink buffers events on a channel for in-process consumers.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

// Emit describes the emit operation and its observable behavior.
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events describes the events operation and its observable behavior.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line to the given writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit describes the emit operation and its observable behavior.
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
