package paneflow

import (
	"context"
	"errors"
	"time"

	"github.com/connectkit/paneflow/callback"
	"github.com/connectkit/paneflow/internal/schema"
	"github.com/connectkit/paneflow/pane"
	"github.com/connectkit/paneflow/session"
)

// Engine drives connect-webview flows through the closed pane set. Build one
// with [New]; an Engine is safe for concurrent use once built.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config   Config
	provider Provider

	schemas   *schema.Registry
	flowStore *session.Store

	challengeStore  *twoFactorChallengeStore
	submitLimiter   *submitLimiter
	callbackManager *callback.Manager

	events  *eventDispatcher
	metrics *Metrics
}

// Start creates a new flow for a connect webview, asks the provider for the
// first step, and returns the pane to render.
//
// Start may return an error when input validation, dependency calls, or security checks fail.
// Start does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Start(ctx context.Context, workspaceID, connectWebviewID string) (Result, error) {
	if e == nil || e.provider == nil {
		return Result{}, ErrEngineNotReady
	}
	if workspaceID == "" {
		workspaceID = workspaceIDFromContext(ctx)
	}
	if connectWebviewID == "" {
		connectWebviewID = connectWebviewIDFromContext(ctx)
	}
	if workspaceID == "" || connectWebviewID == "" {
		return Result{}, errors.New("workspace and connect webview ids required")
	}

	now := time.Now().UTC()
	f := &session.Flow{
		FlowID:           session.NewFlowID(),
		WorkspaceID:      workspaceID,
		ConnectWebviewID: connectWebviewID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	outcome, err := e.provider.Describe(ctx, DescribeRequest{Ref: e.ref(f)})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}

	result, err := e.applyAndCommit(ctx, f, outcome, now)
	if err != nil {
		return Result{}, err
	}

	e.metricInc(MetricFlowStarted)
	return result, nil
}

// Current re-renders the pane the flow is sitting on without advancing it.
func (e *Engine) Current(ctx context.Context, workspaceID, flowID string) (Result, error) {
	if e == nil || e.flowStore == nil {
		return Result{}, ErrEngineNotReady
	}

	f, err := e.loadFlow(ctx, workspaceID, flowID)
	if err != nil {
		return Result{}, err
	}
	return e.result(f), nil
}

// Resolve injects the outcome of an asynchronous provider call into a flow
// that is showing a loading pane. Hosts call it when their own provider
// machinery completes out of band.
//
// Resolve may return an error when input validation, dependency calls, or security checks fail.
// Resolve does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Resolve(ctx context.Context, workspaceID, flowID string, outcome Outcome) (Result, error) {
	if e == nil || e.provider == nil {
		return Result{}, ErrEngineNotReady
	}
	if outcome == nil {
		return Result{}, errors.New("outcome required")
	}

	f, err := e.loadFlow(ctx, workspaceID, flowID)
	if err != nil {
		return Result{}, err
	}
	if f.CurrentPane.Name == pane.Finished && f.Context.Finalized {
		return Result{}, ErrFlowTerminal
	}
	if !f.Context.LoginPending {
		return Result{}, ErrNothingPending
	}
	f.Context.LoginPending = false

	return e.applyAndCommit(ctx, f, outcome, time.Now().UTC())
}

// HandleCallback completes a redirect leg: it verifies the signed state
// token against the flow it names, hands the callback parameters to the
// provider, and applies the resulting outcome.
//
// HandleCallback may return an error when input validation, dependency calls, or security checks fail.
// HandleCallback does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) HandleCallback(ctx context.Context, stateToken string, params map[string]string) (Result, error) {
	if e == nil || e.provider == nil {
		return Result{}, ErrEngineNotReady
	}
	if e.callbackManager == nil {
		return Result{}, errors.New("redirect support not configured")
	}

	claims, err := e.callbackManager.Parse(stateToken)
	if err != nil {
		return Result{}, err
	}

	f, err := e.loadFlow(ctx, claims.WorkspaceID, claims.FlowID)
	if err != nil {
		return Result{}, err
	}
	if f.ConnectWebviewID != claims.ConnectWebviewID ||
		f.Context.RedirectNonce == "" ||
		f.Context.RedirectNonce != claims.Nonce {
		return Result{}, ErrCallbackMismatch
	}
	if f.CurrentPane.Name != pane.Redirect {
		return Result{}, ErrCallbackMismatch
	}

	// The nonce is single use; burn it before the provider call so a
	// replayed callback cannot race a slow provider.
	f.Context.RedirectNonce = ""

	outcome, err := e.provider.HandleCallback(ctx, CallbackRequest{
		Ref:    e.ref(f),
		Params: params,
	})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}

	return e.applyAndCommit(ctx, f, outcome, time.Now().UTC())
}

// Close drains the event dispatcher. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.events.Close()
}

// Metrics returns the engine's metrics registry, which may be disabled.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// EventsDropped reports how many events were discarded because the
// dispatcher buffer was full.
func (e *Engine) EventsDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.events.Dropped()
}

// EventsRejected reports how many events were discarded because their type
// is not in the registered taxonomy.
func (e *Engine) EventsRejected() uint64 {
	if e == nil {
		return 0
	}
	return e.events.Rejected()
}

func (e *Engine) ref(f *session.Flow) FlowRef {
	return FlowRef{
		FlowID:           f.FlowID,
		WorkspaceID:      f.WorkspaceID,
		ConnectWebviewID: f.ConnectWebviewID,
	}
}

func (e *Engine) result(f *session.Flow) Result {
	return Result{
		FlowID: f.FlowID,
		Pane:   f.CurrentPane,
		Done:   f.CurrentPane.Name == pane.Finished && f.Context.Finalized,
	}
}

func (e *Engine) loadFlow(ctx context.Context, workspaceID, flowID string) (*session.Flow, error) {
	if workspaceID == "" {
		workspaceID = workspaceIDFromContext(ctx)
	}
	f, err := e.flowStore.Get(ctx, workspaceID, flowID, e.config.Flow.TTL)
	if err != nil {
		if errors.Is(err, session.ErrFlowNotFound) {
			return nil, ErrFlowNotFound
		}
		return nil, err
	}
	return f, nil
}

// applyAndCommit maps an outcome onto the flow, persists the superseding
// pane, and only then releases the events the transition implied. A failed
// save emits nothing.
func (e *Engine) applyAndCommit(ctx context.Context, f *session.Flow, outcome Outcome, now time.Time) (Result, error) {
	events, err := e.applyOutcome(ctx, f, outcome, now)
	if err != nil {
		return Result{}, err
	}

	f.UpdatedAt = now
	if err := e.flowStore.Save(ctx, f, e.config.Flow.TTL); err != nil {
		return Result{}, err
	}

	e.emitEvents(ctx, events)

	return e.result(f), nil
}

func (e *Engine) emitEvents(ctx context.Context, events []Event) {
	for _, event := range events {
		if !EventTypeRegistered(event.EventType) {
			e.metricInc(MetricEventRejected)
		} else {
			e.metricInc(MetricEventEmitted)
		}
		e.events.Emit(ctx, event)
	}
}

func (e *Engine) event(ctx context.Context, eventType string, f *session.Flow, now time.Time) Event {
	event := newEvent(eventType, f.WorkspaceID, f.ConnectWebviewID, now)
	if f.Context.ConnectedAccountID != "" {
		event.ConnectedAccountID = f.Context.ConnectedAccountID
	}
	metadata := map[string]any{}
	if ip := clientIPFromContext(ctx); ip != "" {
		metadata["client_ip"] = ip
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		metadata["user_agent"] = ua
	}
	if len(metadata) > 0 {
		event.Metadata = metadata
	}
	return event
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	e.metrics.Observe(id, d)
}
