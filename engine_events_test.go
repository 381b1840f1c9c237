package paneflow

import (
	"context"
	"testing"

	"github.com/connectkit/paneflow/pane"
)

func connectOnLoginProvider() *scriptProvider {
	return &scriptProvider{
		authenticate: func(_ context.Context, req AuthenticateRequest) (Outcome, error) {
			if req.Credential != "correct-horse" {
				return BadCredentials{}, nil
			}
			return Connected{
				ConnectedAccountID: "acct-1",
				AccountCreated:     true,
			}, nil
		},
	}
}

func TestEventsEmittedAtMostOncePerFlow(t *testing.T) {
	engine, sink, _, done := newFlowEngine(t, DefaultConfig(), connectOnLoginProvider())
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{
		"user_identifier": "alice@example.com",
		"password":        "correct-horse",
	})
	if err != nil {
		t.Fatalf("login advance failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("expected finished flow, got %+v", result)
	}

	// Re-entering a finished, finalized flow is a pure re-render.
	again, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{})
	if err != nil {
		t.Fatalf("terminal advance failed: %v", err)
	}
	if again.Pane.Name != pane.Finished || !again.Done {
		t.Fatalf("expected terminal re-render, got %+v", again)
	}

	counts := countEventTypes(drainedEvents(engine, sink))
	for _, eventType := range []string{
		EventConnectedAccountSuccessfulLogin,
		EventConnectWebviewLoginSucceeded,
		EventConnectedAccountCreated,
		EventConnectedAccountConnected,
		EventConnectedAccountCompletedFirstSync,
	} {
		if counts[eventType] != 1 {
			t.Fatalf("expected exactly one %s event, got %d (%v)", eventType, counts[eventType], counts)
		}
	}
	if counts[EventConnectWebviewLoginFailed] != 0 {
		t.Fatalf("expected no login_failed events, got %v", counts)
	}

	if got := engine.Metrics().Value(MetricEventEmitted); got != 5 {
		t.Fatalf("expected five emitted events, got %d", got)
	}
	if got := engine.EventsDropped(); got != 0 {
		t.Fatalf("expected no dropped events, got %d", got)
	}
}

func TestReconnectDoesNotEmitCreated(t *testing.T) {
	provider := connectOnLoginProvider()
	provider.authenticate = func(_ context.Context, req AuthenticateRequest) (Outcome, error) {
		return Connected{ConnectedAccountID: "acct-1", AccountCreated: false}, nil
	}
	engine, sink, _, done := newFlowEngine(t, DefaultConfig(), provider)
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{
		"user_identifier": "alice@example.com",
		"password":        "anything",
	}); err != nil {
		t.Fatalf("login advance failed: %v", err)
	}

	counts := countEventTypes(drainedEvents(engine, sink))
	if counts[EventConnectedAccountCreated] != 0 {
		t.Fatalf("expected no created event for a reconnect, got %v", counts)
	}
	if counts[EventConnectedAccountConnected] != 1 {
		t.Fatalf("expected one connected event, got %v", counts)
	}
}

func TestFinalizeFailureDegradesToRetryableFinishedPane(t *testing.T) {
	attempts := 0
	provider := connectOnLoginProvider()
	provider.finalize = func(context.Context, FinalizeRequest) (Outcome, error) {
		attempts++
		if attempts == 1 {
			return FinalizeFailed{Message: "sync backend busy"}, nil
		}
		return Finalized{Summary: map[string]any{"first_sync": "complete"}}, nil
	}

	engine, sink, _, done := newFlowEngine(t, DefaultConfig(), provider)
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{
		"user_identifier": "alice@example.com",
		"password":        "correct-horse",
	})
	if err != nil {
		t.Fatalf("login advance failed: %v", err)
	}
	if result.Pane.Name != pane.Finished {
		t.Fatalf("expected finished pane, got %q", result.Pane.Name)
	}
	if result.Done {
		t.Fatal("expected flow to not be done while finalization is failing")
	}
	if result.Pane.ErrorCode != pane.CodeError {
		t.Fatalf("expected ERROR code on retryable finished pane, got %q", result.Pane.ErrorCode)
	}

	// An empty submission on the failed pane is a pure re-render; only an
	// explicit finalize flag retries the side effect.
	result, err = engine.Advance(ctx, "ws-1", started.FlowID, Submission{})
	if err != nil {
		t.Fatalf("re-render advance failed: %v", err)
	}
	if result.Done {
		t.Fatalf("expected empty submission to not retry finalization, got %+v", result)
	}
	if attempts != 1 {
		t.Fatalf("expected no finalize call without the flag, got %d", attempts)
	}

	result, err = engine.Advance(ctx, "ws-1", started.FlowID, Submission{"finalize": true})
	if err != nil {
		t.Fatalf("finalize retry failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("expected flow done after retry, got %+v", result)
	}
	if result.Pane.ErrorCode != "" {
		t.Fatalf("expected clean finished pane, got %q", result.Pane.ErrorCode)
	}

	counts := countEventTypes(drainedEvents(engine, sink))
	if counts[EventConnectedAccountConnected] != 1 {
		t.Fatalf("expected one connected event, got %v", counts)
	}
	if counts[EventConnectedAccountCompletedFirstSync] != 1 {
		t.Fatalf("expected one completed_first_sync event, got %v", counts)
	}
	if got := engine.Metrics().Value(MetricFinalizeFailure); got != 1 {
		t.Fatalf("expected one finalize failure metric, got %d", got)
	}
}

func TestFinalizeTransportErrorKeepsAccountConnected(t *testing.T) {
	calls := 0
	provider := connectOnLoginProvider()
	provider.finalize = func(context.Context, FinalizeRequest) (Outcome, error) {
		calls++
		if calls == 1 {
			return nil, context.DeadlineExceeded
		}
		return Finalized{}, nil
	}

	engine, _, _, done := newFlowEngine(t, DefaultConfig(), provider)
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{
		"user_identifier": "alice@example.com",
		"password":        "correct-horse",
	})
	if err != nil {
		t.Fatalf("login advance must not fail on finalize transport error, got %v", err)
	}
	if result.Pane.Name != pane.Finished || result.Done {
		t.Fatalf("expected retryable finished pane, got %+v", result)
	}

	result, err = engine.Advance(ctx, "ws-1", started.FlowID, Submission{"finalize": true})
	if err != nil {
		t.Fatalf("finalize retry failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("expected flow done after retry, got %+v", result)
	}
}

func TestEventsCarryRequestMetadata(t *testing.T) {
	engine, sink, _, done := newFlowEngine(t, DefaultConfig(), connectOnLoginProvider())
	defer done()

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	ctx = WithUserAgent(ctx, "connect-webview/1.0")

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{
		"user_identifier": "alice@example.com",
		"password":        "correct-horse",
	}); err != nil {
		t.Fatalf("login advance failed: %v", err)
	}

	events := drainedEvents(engine, sink)
	if len(events) == 0 {
		t.Fatal("expected events")
	}
	for _, event := range events {
		if event.Metadata["client_ip"] != "203.0.113.7" {
			t.Fatalf("expected client_ip metadata, got %v", event.Metadata)
		}
		if event.Metadata["user_agent"] != "connect-webview/1.0" {
			t.Fatalf("expected user_agent metadata, got %v", event.Metadata)
		}
		if event.WorkspaceID != "ws-1" || event.ConnectWebviewID != "cw-1" {
			t.Fatalf("expected workspace and webview ids on event, got %+v", event)
		}
		if event.EventID == "" {
			t.Fatal("expected event id")
		}
	}
}
