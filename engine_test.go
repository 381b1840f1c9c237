package paneflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/connectkit/paneflow/pane"
)

var testProviderMeta = pane.ProviderMetadata{
	DisplayName: "Demo Lock Co",
	ImageURL:    "https://example.com/demo.png",
}

// scriptProvider lets each test script exactly the provider behavior it
// needs; unscripted calls fall back to a benign default.
type scriptProvider struct {
	describe     func(context.Context, DescribeRequest) (Outcome, error)
	authenticate func(context.Context, AuthenticateRequest) (Outcome, error)
	initiate     func(context.Context, InitiateTwoFactorRequest) (Outcome, error)
	verify       func(context.Context, VerifyTwoFactorRequest) (Outcome, error)
	selection    func(context.Context, SelectRequest) (Outcome, error)
	fields       func(context.Context, SubmitFieldsRequest) (Outcome, error)
	callback     func(context.Context, CallbackRequest) (Outcome, error)
	finalize     func(context.Context, FinalizeRequest) (Outcome, error)
}

func (p *scriptProvider) Describe(ctx context.Context, req DescribeRequest) (Outcome, error) {
	if p.describe != nil {
		return p.describe(ctx, req)
	}
	return LoginRequired{
		Provider:            testProviderMeta,
		AcceptedIdentifiers: []pane.IdentifierKind{pane.IdentifierEmail},
		CredentialKind:      pane.CredentialPassword,
	}, nil
}

func (p *scriptProvider) Authenticate(ctx context.Context, req AuthenticateRequest) (Outcome, error) {
	if p.authenticate != nil {
		return p.authenticate(ctx, req)
	}
	return BadCredentials{}, nil
}

func (p *scriptProvider) InitiateTwoFactor(ctx context.Context, req InitiateTwoFactorRequest) (Outcome, error) {
	if p.initiate != nil {
		return p.initiate(ctx, req)
	}
	return TwoFactorSent{}, nil
}

func (p *scriptProvider) VerifyTwoFactorCode(ctx context.Context, req VerifyTwoFactorRequest) (Outcome, error) {
	if p.verify != nil {
		return p.verify(ctx, req)
	}
	return TwoFactorBadCode{}, nil
}

func (p *scriptProvider) Select(ctx context.Context, req SelectRequest) (Outcome, error) {
	if p.selection != nil {
		return p.selection(ctx, req)
	}
	return Failed{}, nil
}

func (p *scriptProvider) SubmitFields(ctx context.Context, req SubmitFieldsRequest) (Outcome, error) {
	if p.fields != nil {
		return p.fields(ctx, req)
	}
	return Failed{}, nil
}

func (p *scriptProvider) HandleCallback(ctx context.Context, req CallbackRequest) (Outcome, error) {
	if p.callback != nil {
		return p.callback(ctx, req)
	}
	return Failed{}, nil
}

func (p *scriptProvider) Finalize(ctx context.Context, req FinalizeRequest) (Outcome, error) {
	if p.finalize != nil {
		return p.finalize(ctx, req)
	}
	return Finalized{}, nil
}

func newFlowEngine(t *testing.T, cfg Config, p Provider) (*Engine, *ChannelSink, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	sink := NewChannelSink(64)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithProvider(p).
		WithEventSink(sink).
		Build()
	if err != nil {
		t.Fatalf("engine build: %v", err)
	}

	return engine, sink, mr, func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	}
}

// drainedEvents closes the engine (draining the dispatcher) and collects
// everything the sink received.
func drainedEvents(engine *Engine, sink *ChannelSink) []Event {
	engine.Close()

	var out []Event
	for {
		select {
		case event := <-sink.Events():
			out = append(out, event)
		default:
			return out
		}
	}
}

func countEventTypes(events []Event) map[string]int {
	counts := make(map[string]int, len(events))
	for _, event := range events {
		counts[event.EventType]++
	}
	return counts
}

func TestStartRendersFirstPane(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), &scriptProvider{})
	defer done()
	ctx := context.Background()

	result, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if result.FlowID == "" {
		t.Fatal("expected a flow id")
	}
	if result.Pane.Name != pane.Login {
		t.Fatalf("expected login pane, got %q", result.Pane.Name)
	}
	if result.Done {
		t.Fatal("expected flow to not be done")
	}

	render, ok := result.Pane.Render.(pane.LoginRender)
	if !ok {
		t.Fatalf("expected LoginRender, got %T", result.Pane.Render)
	}
	if render.Provider.DisplayName != testProviderMeta.DisplayName {
		t.Fatalf("expected provider metadata on login pane, got %+v", render.Provider)
	}

	current, err := engine.Current(ctx, "ws-1", result.FlowID)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.Pane.Name != pane.Login {
		t.Fatalf("expected login pane from Current, got %q", current.Pane.Name)
	}

	if got := engine.Metrics().Value(MetricFlowStarted); got != 1 {
		t.Fatalf("expected one started flow, got %d", got)
	}
}

func TestStartRequiresIdentifiers(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), &scriptProvider{})
	defer done()

	if _, err := engine.Start(context.Background(), "ws-1", ""); err == nil {
		t.Fatal("expected error for missing webview id")
	}
	if _, err := engine.Start(context.Background(), "", "cw-1"); err == nil {
		t.Fatal("expected error for missing workspace id")
	}
}

func TestStartReadsWorkspaceFromContext(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), &scriptProvider{})
	defer done()

	ctx := WithWorkspaceID(context.Background(), "ws-ctx")
	result, err := engine.Start(ctx, "", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := engine.Current(ctx, "", result.FlowID); err != nil {
		t.Fatalf("Current with context workspace failed: %v", err)
	}
	if _, err := engine.Current(context.Background(), "ws-other", result.FlowID); !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("expected ErrFlowNotFound for wrong workspace, got %v", err)
	}
}

func TestAdvanceUnknownFlow(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), &scriptProvider{})
	defer done()

	_, err := engine.Advance(context.Background(), "ws-1", "missing", Submission{})
	if !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("expected ErrFlowNotFound, got %v", err)
	}
}

func TestAdvanceLoginMissingKeysIsRecoverable(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), &scriptProvider{})
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{"user_identifier": "alice@example.com"})
	if err != nil {
		t.Fatalf("expected missing password to be recoverable, got %v", err)
	}
	if result.Pane.Name != pane.Login {
		t.Fatalf("expected flow to stay on login pane, got %q", result.Pane.Name)
	}
	if result.Pane.ErrorCode != pane.CodeError {
		t.Fatalf("expected ERROR code, got %q", result.Pane.ErrorCode)
	}
	if result.Pane.Submit["user_identifier"] != "alice@example.com" {
		t.Fatalf("expected submission echo, got %v", result.Pane.Submit)
	}

	if got := engine.Metrics().Value(MetricAdvanceValidationError); got != 1 {
		t.Fatalf("expected one validation error, got %d", got)
	}
}

func TestRejectedSubmissionNeverEchoesPassword(t *testing.T) {
	engine, _, mr, done := newFlowEngine(t, DefaultConfig(), &scriptProvider{})
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{
		"password": "super-secret-password",
	})
	if err != nil {
		t.Fatalf("expected missing identifier to be recoverable, got %v", err)
	}
	if _, ok := result.Pane.Submit["password"]; ok {
		t.Fatalf("password must not be echoed to the client, got %v", result.Pane.Submit)
	}

	stored, err := mr.Get("pf:ws-1:" + started.FlowID)
	if err != nil {
		t.Fatalf("read flow record: %v", err)
	}
	if strings.Contains(stored, "super-secret-password") {
		t.Fatal("plaintext password must not be persisted in the flow record")
	}
}

func TestAdvanceLoginWrongTypeIsSchemaMismatch(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), &scriptProvider{})
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err = engine.Advance(ctx, "ws-1", started.FlowID, Submission{"user_identifier": 42})
	var terr *TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransitionError, got %v", err)
	}
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if terr.Pane != pane.Login {
		t.Fatalf("expected mismatch reported on login pane, got %q", terr.Pane)
	}

	// The flow did not advance and carries no error channel: nothing committed.
	current, err := engine.Current(ctx, "ws-1", started.FlowID)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.Pane.Name != pane.Login || current.Pane.ErrorCode != "" {
		t.Fatalf("expected untouched login pane, got %+v", current.Pane)
	}

	if got := engine.Metrics().Value(MetricSchemaMismatch); got != 1 {
		t.Fatalf("expected one schema mismatch, got %d", got)
	}
}

func TestAdvanceBadCredentials(t *testing.T) {
	engine, sink, _, done := newFlowEngine(t, DefaultConfig(), &scriptProvider{})
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{
		"user_identifier": "alice@example.com",
		"password":        "wrong",
	})
	if err != nil {
		t.Fatalf("expected bad credentials to be recoverable, got %v", err)
	}
	if result.Pane.Name != pane.Login {
		t.Fatalf("expected flow to stay on login pane, got %q", result.Pane.Name)
	}
	if result.Pane.ErrorCode != pane.CodeBadCredentials {
		t.Fatalf("expected BAD_CREDENTIALS, got %q", result.Pane.ErrorCode)
	}

	events := drainedEvents(engine, sink)
	counts := countEventTypes(events)
	if counts[EventConnectWebviewLoginFailed] != 1 {
		t.Fatalf("expected one login_failed event, got %v", counts)
	}
	for _, event := range events {
		if event.EventType == EventConnectWebviewLoginFailed && event.ErrorCode != string(pane.CodeBadCredentials) {
			t.Fatalf("expected BAD_CREDENTIALS on event, got %q", event.ErrorCode)
		}
	}

	if got := engine.Metrics().Value(MetricBadCredentials); got != 1 {
		t.Fatalf("expected one bad credentials metric, got %d", got)
	}
}

func TestResolveInjectsPendingOutcome(t *testing.T) {
	provider := &scriptProvider{
		describe: func(context.Context, DescribeRequest) (Outcome, error) {
			return Pending{}, nil
		},
	}
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), provider)
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Pane.Name != pane.Loading {
		t.Fatalf("expected loading pane, got %q", started.Pane.Name)
	}

	// Advancing a loading pane is a no-op re-render.
	rerender, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{})
	if err != nil {
		t.Fatalf("Advance on loading pane failed: %v", err)
	}
	if rerender.Pane.Name != pane.Loading {
		t.Fatalf("expected loading pane, got %q", rerender.Pane.Name)
	}

	resolved, err := engine.Resolve(ctx, "ws-1", started.FlowID, LoginRequired{
		Provider:            testProviderMeta,
		AcceptedIdentifiers: []pane.IdentifierKind{pane.IdentifierEmail},
		CredentialKind:      pane.CredentialPassword,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Pane.Name != pane.Login {
		t.Fatalf("expected login pane after resolve, got %q", resolved.Pane.Name)
	}

	if _, err := engine.Resolve(ctx, "ws-1", started.FlowID, LoginRequired{}); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending on second resolve, got %v", err)
	}
}

func TestAdvanceRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Security.MaxSubmitAttempts = 2
	engine, _, _, done := newFlowEngine(t, cfg, &scriptProvider{})
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{}); err != nil {
			t.Fatalf("advance %d failed: %v", i+1, err)
		}
	}

	if _, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{}); !errors.Is(err, ErrSubmitRateLimited) {
		t.Fatalf("expected ErrSubmitRateLimited, got %v", err)
	}
	if got := engine.Metrics().Value(MetricAdvanceRateLimited); got != 1 {
		t.Fatalf("expected one rate limited metric, got %d", got)
	}
}

func TestProviderErrorIsNotATransitionError(t *testing.T) {
	provider := &scriptProvider{
		authenticate: func(context.Context, AuthenticateRequest) (Outcome, error) {
			return nil, errors.New("upstream timeout")
		},
	}
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), provider)
	defer done()
	ctx := context.Background()

	started, err := engine.Start(ctx, "ws-1", "cw-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err = engine.Advance(ctx, "ws-1", started.FlowID, Submission{
		"user_identifier": "alice@example.com",
		"password":        "secret",
	})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	var terr *TransitionError
	if errors.As(err, &terr) {
		t.Fatalf("provider failure must not be a TransitionError, got %v", err)
	}
}

func TestEngineNotReady(t *testing.T) {
	var engine *Engine
	if _, err := engine.Start(context.Background(), "ws-1", "cw-1"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.Advance(context.Background(), "ws-1", "f", Submission{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
