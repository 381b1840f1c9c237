package paneflow

import (
	"context"
	"errors"
	"time"

	"github.com/connectkit/paneflow/field"
	"github.com/connectkit/paneflow/internal/schema"
	"github.com/connectkit/paneflow/pane"
	"github.com/connectkit/paneflow/session"
)

// Advance applies a client submission to the flow's current pane. Recoverable
// problems (missing keys, wrong credentials, bad codes) keep the flow on the
// same pane with an error code from the closed taxonomy; only a structural
// mismatch between the submission and the pane contract fails with a
// [TransitionError].
//
// Advance may return an error when input validation, dependency calls, or security checks fail.
// Advance does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Advance(ctx context.Context, workspaceID, flowID string, submission Submission) (Result, error) {
	if e == nil || e.provider == nil {
		return Result{}, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metricObserve(MetricAdvanceLatency, time.Since(start))
	}()

	f, err := e.loadFlow(ctx, workspaceID, flowID)
	if err != nil {
		return Result{}, err
	}

	// A finalized flow is terminal: re-entry re-renders the finished pane
	// and emits nothing.
	if f.CurrentPane.Name == pane.Finished && f.Context.Finalized {
		return e.result(f), nil
	}

	if e.submitLimiter != nil {
		if err := e.submitLimiter.Check(ctx, f.ConnectWebviewID); err != nil {
			if errors.Is(err, ErrSubmitRateLimited) {
				e.metricInc(MetricAdvanceRateLimited)
			}
			return Result{}, err
		}
		if err := e.submitLimiter.Record(ctx, f.ConnectWebviewID); err != nil && !errors.Is(err, ErrSubmitRateLimited) {
			return Result{}, err
		}
	}

	if err := e.validateSubmission(f, submission); err != nil {
		return Result{}, err
	}

	now := time.Now().UTC()

	var result Result
	switch f.CurrentPane.Name {
	case pane.Login:
		result, err = e.advanceLogin(ctx, f, submission, now)
	case pane.InitiateTwoFactor:
		result, err = e.advanceInitiateTwoFactor(ctx, f, submission, now)
	case pane.TwoFactor:
		result, err = e.advanceTwoFactor(ctx, f, submission, now)
	case pane.SearchAndSelect:
		result, err = e.advanceSearchAndSelect(ctx, f, submission, now)
	case pane.BrandSelect:
		result, err = e.advanceBrandSelect(ctx, f, submission, now)
	case pane.Fields:
		result, err = e.advanceFields(ctx, f, submission, now)
	case pane.Finished:
		result, err = e.advanceFinished(ctx, f, submission, now)
	case pane.Loading, pane.Redirect:
		// Nothing for the client to submit; the transition is driven by
		// Resolve or HandleCallback.
		result, err = e.result(f), nil
	default:
		return Result{}, &TransitionError{Pane: f.CurrentPane.Name, Err: ErrUnknownPane}
	}

	if err != nil {
		return Result{}, err
	}
	e.metricInc(MetricAdvanceSuccess)
	return result, nil
}

// validateSubmission enforces the structural half of the pane contract.
// Missing keys never fail here; present keys with the wrong type or format
// do, as a fatal mismatch.
func (e *Engine) validateSubmission(f *session.Flow, submission Submission) error {
	name := f.CurrentPane.Name
	if !name.Valid() {
		return &TransitionError{Pane: name, Err: ErrUnknownPane}
	}

	var err error
	if name == pane.TwoFactor {
		err = e.schemas.ValidateTwoFactor(f.Context.CodeLength, submission)
	} else {
		err = e.schemas.Validate(name, submission)
	}
	if err != nil {
		if errors.Is(err, schema.ErrMismatch) {
			e.metricInc(MetricSchemaMismatch)
			return schemaMismatch(name, err)
		}
		return err
	}
	return nil
}

// Submission keys that carry secrets. They are never echoed back to the
// client and never written into the flow record.
var secretSubmitKeys = [...]string{"password", "code"}

func redactSubmission(submission Submission) Submission {
	if len(submission) == 0 {
		return submission
	}
	out := make(Submission, len(submission))
	for k, v := range submission {
		out[k] = v
	}
	for _, k := range secretSubmitKeys {
		delete(out, k)
	}
	return out
}

// rejectSubmission keeps the flow on its current pane, attaching a
// recoverable error and echoing the non-secret submission keys so clients
// can re-fill.
func (e *Engine) rejectSubmission(ctx context.Context, f *session.Flow, submission Submission, code pane.ErrorCode, msg string, now time.Time) (Result, error) {
	e.metricInc(MetricAdvanceValidationError)

	p := e.rerenderCurrent(f, now).WithError(code, msg)
	p.Submit = redactSubmission(submission)
	f.CurrentPane = p
	f.UpdatedAt = now
	if err := e.flowStore.Save(ctx, f, e.config.Flow.TTL); err != nil {
		return Result{}, err
	}
	return e.result(f), nil
}

func (e *Engine) advanceLogin(ctx context.Context, f *session.Flow, submission Submission, now time.Time) (Result, error) {
	identifier, _ := submission["user_identifier"].(string)
	password, _ := submission["password"].(string)
	if identifier == "" {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "Enter your user identifier.", now)
	}
	if password == "" {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "Enter your password.", now)
	}

	f.Context.UserIdentifier = identifier

	outcome, err := e.provider.Authenticate(ctx, AuthenticateRequest{
		Ref:            e.ref(f),
		UserIdentifier: identifier,
		Credential:     password,
	})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}
	return e.applyAndCommit(ctx, f, outcome, now)
}

func (e *Engine) advanceInitiateTwoFactor(ctx context.Context, f *session.Flow, submission Submission, now time.Time) (Result, error) {
	optionID, _ := submission["id"].(string)
	if optionID == "" {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "Choose how you'd like to receive your code.", now)
	}
	if _, ok := f.Context.TwoFactorOptions.Resolve(optionID); !ok {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "That option is no longer available.", now)
	}

	f.Context.SelectedTwoFactorID = optionID

	outcome, err := e.provider.InitiateTwoFactor(ctx, InitiateTwoFactorRequest{
		Ref:      e.ref(f),
		OptionID: optionID,
	})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}
	return e.applyAndCommit(ctx, f, outcome, now)
}

func (e *Engine) advanceTwoFactor(ctx context.Context, f *session.Flow, submission Submission, now time.Time) (Result, error) {
	code, _ := submission["code"].(string)
	if code == "" {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "Enter the code you received.", now)
	}

	if _, err := e.challengeStore.Get(ctx, f.FlowID); err != nil {
		if errors.Is(err, ErrChallengeNotFound) || errors.Is(err, ErrChallengeExpired) {
			return e.expireTwoFactor(ctx, f, "Your code expired. Request a new one.", now)
		}
		return Result{}, err
	}

	outcome, err := e.provider.VerifyTwoFactorCode(ctx, VerifyTwoFactorRequest{
		Ref:      e.ref(f),
		OptionID: f.Context.SelectedTwoFactorID,
		Code:     code,
	})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}

	if _, bad := outcome.(TwoFactorBadCode); bad {
		switch recErr := e.challengeStore.RecordFailure(ctx, f.FlowID, e.config.TwoFactor.MaxAttempts); {
		case recErr == nil:
			return e.applyAndCommit(ctx, f, outcome, now)
		case errors.Is(recErr, ErrChallengeAttemptsExceeded):
			return e.expireTwoFactor(ctx, f, "Too many incorrect codes. Request a new one.", now)
		case errors.Is(recErr, ErrChallengeNotFound) || errors.Is(recErr, ErrChallengeExpired):
			return e.expireTwoFactor(ctx, f, "Your code expired. Request a new one.", now)
		default:
			return Result{}, recErr
		}
	}

	// Any non-failure verdict consumes the challenge.
	_, _ = e.challengeStore.Delete(ctx, f.FlowID)
	return e.applyAndCommit(ctx, f, outcome, now)
}

// expireTwoFactor sends the flow back to the initiate pane so the user can
// request a fresh code.
func (e *Engine) expireTwoFactor(ctx context.Context, f *session.Flow, msg string, now time.Time) (Result, error) {
	e.metricInc(MetricAdvanceValidationError)

	f.Context.CodeLength = 0
	f.CurrentPane = pane.New(e.renderInitiateTwoFactor(f), now).
		WithError(pane.CodeError, msg)
	f.UpdatedAt = now
	if err := e.flowStore.Save(ctx, f, e.config.Flow.TTL); err != nil {
		return Result{}, err
	}
	return e.result(f), nil
}

func (e *Engine) advanceSearchAndSelect(ctx context.Context, f *session.Flow, submission Submission, now time.Time) (Result, error) {
	values := stringSlice(submission["value"])
	if len(values) == 0 && f.Context.SelectMode != pane.SelectionNone {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "Select at least one option.", now)
	}
	for _, v := range values {
		if !hasSelectValue(f.Context.SelectOptions, v) {
			return e.rejectSubmission(ctx, f, submission, pane.CodeError, "One of the selected options is no longer available.", now)
		}
	}
	if f.Context.SelectMode == pane.SelectionSingle && len(values) > 1 {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "Select a single option.", now)
	}

	f.Context.Selection = values

	outcome, err := e.provider.Select(ctx, SelectRequest{
		Ref:            e.ref(f),
		SelectedValues: values,
	})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}
	return e.applyAndCommit(ctx, f, outcome, now)
}

func (e *Engine) advanceBrandSelect(ctx context.Context, f *session.Flow, submission Submission, now time.Time) (Result, error) {
	brandID, _ := submission["brand_id"].(string)
	if brandID == "" {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "Choose a brand.", now)
	}
	if !hasSelectValue(f.Context.BrandOptions, brandID) {
		return e.rejectSubmission(ctx, f, submission, pane.CodeError, "That brand is not available.", now)
	}

	f.Context.BrandID = brandID

	outcome, err := e.provider.Select(ctx, SelectRequest{
		Ref:     e.ref(f),
		BrandID: brandID,
	})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}
	return e.applyAndCommit(ctx, f, outcome, now)
}

func (e *Engine) advanceFields(ctx context.Context, f *session.Flow, submission Submission, now time.Time) (Result, error) {
	if err := f.Context.PendingFields.Validate(submission); err != nil {
		var verr *field.ValidationError
		if errors.As(err, &verr) {
			return e.rejectSubmission(ctx, f, submission, pane.CodeError, verr.Error(), now)
		}
		return Result{}, err
	}

	outcome, err := e.provider.SubmitFields(ctx, SubmitFieldsRequest{
		Ref:    e.ref(f),
		Values: submission,
	})
	if err != nil {
		return Result{}, errors.Join(ErrProviderUnavailable, err)
	}
	return e.applyAndCommit(ctx, f, outcome, now)
}

// advanceFinished retries finalization for a flow whose account connected
// but whose post-connection work failed. The retry only runs when the
// client explicitly submits finalize:true; anything else re-renders the
// finished pane untouched.
func (e *Engine) advanceFinished(ctx context.Context, f *session.Flow, submission Submission, now time.Time) (Result, error) {
	if finalize, _ := submission["finalize"].(bool); !finalize {
		return e.result(f), nil
	}

	events, err := e.finalize(ctx, f, now)
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

// stringSlice widens the submitted value, which clients send as either a
// single string or an array of strings.
func stringSlice(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

func hasSelectValue(options []pane.SelectOption, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}
