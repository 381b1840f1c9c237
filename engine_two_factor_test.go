package paneflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/connectkit/paneflow/pane"
	"github.com/connectkit/paneflow/twofactor"
)

func twoFactorProvider() *scriptProvider {
	return &scriptProvider{
		authenticate: func(_ context.Context, req AuthenticateRequest) (Outcome, error) {
			if req.Credential != "correct-horse" {
				return BadCredentials{}, nil
			}
			return TwoFactorRequired{
				Options: []twofactor.Option{
					{Method: twofactor.MethodSMS, CodeLength: 6, PhoneNumber: "+1••••1234"},
				},
			}, nil
		},
		initiate: func(context.Context, InitiateTwoFactorRequest) (Outcome, error) {
			return TwoFactorSent{CodeLength: 6}, nil
		},
		verify: func(_ context.Context, req VerifyTwoFactorRequest) (Outcome, error) {
			if req.Code != "123456" {
				return TwoFactorBadCode{}, nil
			}
			return Connected{
				ConnectedAccountID: "acct-1",
				AccountCreated:     true,
				Summary:            map[string]any{"devices_found": 2},
			}, nil
		},
	}
}

// startTwoFactorFlow walks a flow up to the two_factor pane and returns its id.
func startTwoFactorFlow(t *testing.T, engine *Engine) string {
	t.Helper()
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
	if result.Pane.Name != pane.InitiateTwoFactor {
		t.Fatalf("expected initiate_two_factor pane, got %q", result.Pane.Name)
	}

	render, ok := result.Pane.Render.(pane.InitiateTwoFactorRender)
	if !ok {
		t.Fatalf("expected InitiateTwoFactorRender, got %T", result.Pane.Render)
	}
	if len(render.Options) != 1 || render.Options[0].ID == "" {
		t.Fatalf("expected one option with a generated id, got %+v", render.Options)
	}

	result, err = engine.Advance(ctx, "ws-1", started.FlowID, Submission{"id": render.Options[0].ID})
	if err != nil {
		t.Fatalf("initiate advance failed: %v", err)
	}
	if result.Pane.Name != pane.TwoFactor {
		t.Fatalf("expected two_factor pane, got %q", result.Pane.Name)
	}
	if tf, ok := result.Pane.Render.(pane.TwoFactorRender); !ok || tf.CodeLength != 6 {
		t.Fatalf("expected code length 6 render, got %+v", result.Pane.Render)
	}

	return started.FlowID
}

func TestTwoFactorHappyPath(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), twoFactorProvider())
	defer done()
	ctx := context.Background()

	flowID := startTwoFactorFlow(t, engine)

	result, err := engine.Advance(ctx, "ws-1", flowID, Submission{"code": "123456"})
	if err != nil {
		t.Fatalf("code advance failed: %v", err)
	}
	if result.Pane.Name != pane.Finished {
		t.Fatalf("expected finished pane, got %q", result.Pane.Name)
	}
	if !result.Done {
		t.Fatal("expected flow to be done after finalization")
	}

	render, ok := result.Pane.Render.(pane.FinishedRender)
	if !ok {
		t.Fatalf("expected FinishedRender, got %T", result.Pane.Render)
	}
	if render.Summary["devices_found"] != 2 {
		t.Fatalf("expected summary to carry devices_found, got %v", render.Summary)
	}

	if got := engine.Metrics().Value(MetricFlowFinished); got != 1 {
		t.Fatalf("expected one finished flow, got %d", got)
	}
	if got := engine.Metrics().Value(MetricTwoFactorInitiated); got != 1 {
		t.Fatalf("expected one two-factor initiation, got %d", got)
	}
}

func TestTwoFactorWrongLengthCodeIsSchemaMismatch(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), twoFactorProvider())
	defer done()
	ctx := context.Background()

	flowID := startTwoFactorFlow(t, engine)

	_, err := engine.Advance(ctx, "ws-1", flowID, Submission{"code": "12345"})
	var terr *TransitionError
	if !errors.As(err, &terr) || !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected TransitionError wrapping ErrSchemaMismatch, got %v", err)
	}

	// The mismatch committed nothing: the same flow still accepts the real code.
	result, err := engine.Advance(ctx, "ws-1", flowID, Submission{"code": "123456"})
	if err != nil {
		t.Fatalf("code advance after mismatch failed: %v", err)
	}
	if result.Pane.Name != pane.Finished || !result.Done {
		t.Fatalf("expected finished flow, got %+v", result)
	}
}

func TestTwoFactorBadCodeThenAttemptsExceeded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TwoFactor.MaxAttempts = 2
	engine, _, _, done := newFlowEngine(t, cfg, twoFactorProvider())
	defer done()
	ctx := context.Background()

	flowID := startTwoFactorFlow(t, engine)

	result, err := engine.Advance(ctx, "ws-1", flowID, Submission{"code": "000000"})
	if err != nil {
		t.Fatalf("first wrong code failed: %v", err)
	}
	if result.Pane.Name != pane.TwoFactor {
		t.Fatalf("expected to stay on two_factor pane, got %q", result.Pane.Name)
	}
	if result.Pane.ErrorCode != pane.CodeTwoFactorBadCode {
		t.Fatalf("expected TWO_FACTOR_BAD_CODE, got %q", result.Pane.ErrorCode)
	}

	result, err = engine.Advance(ctx, "ws-1", flowID, Submission{"code": "000000"})
	if err != nil {
		t.Fatalf("second wrong code failed: %v", err)
	}
	if result.Pane.Name != pane.InitiateTwoFactor {
		t.Fatalf("expected flow back on initiate pane after exceeding attempts, got %q", result.Pane.Name)
	}
	if result.Pane.ErrorCode != pane.CodeError {
		t.Fatalf("expected ERROR code, got %q", result.Pane.ErrorCode)
	}

	if got := engine.Metrics().Value(MetricTwoFactorBadCode); got != 1 {
		t.Fatalf("expected one bad code metric, got %d", got)
	}
}

func TestTwoFactorExpiredChallengeReturnsToInitiatePane(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TwoFactor.ChallengeTTL = time.Minute
	engine, _, mr, done := newFlowEngine(t, cfg, twoFactorProvider())
	defer done()
	ctx := context.Background()

	flowID := startTwoFactorFlow(t, engine)

	mr.FastForward(2 * time.Minute)

	result, err := engine.Advance(ctx, "ws-1", flowID, Submission{"code": "123456"})
	if err != nil {
		t.Fatalf("advance after expiry failed: %v", err)
	}
	if result.Pane.Name != pane.InitiateTwoFactor {
		t.Fatalf("expected initiate pane after challenge expiry, got %q", result.Pane.Name)
	}
	if result.Pane.ErrorCode != pane.CodeError {
		t.Fatalf("expected ERROR code, got %q", result.Pane.ErrorCode)
	}
}

func TestTwoFactorUnknownOptionIsRecoverable(t *testing.T) {
	engine, _, _, done := newFlowEngine(t, DefaultConfig(), twoFactorProvider())
	defer done()
	ctx := context.Background()

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

	result, err := engine.Advance(ctx, "ws-1", started.FlowID, Submission{"id": "not-an-option"})
	if err != nil {
		t.Fatalf("expected unknown option to be recoverable, got %v", err)
	}
	if result.Pane.Name != pane.InitiateTwoFactor || result.Pane.ErrorCode != pane.CodeError {
		t.Fatalf("expected initiate pane with ERROR code, got %+v", result.Pane)
	}
}
