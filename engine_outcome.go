package paneflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/connectkit/paneflow/pane"
	"github.com/connectkit/paneflow/session"
	"github.com/connectkit/paneflow/twofactor"
)

// applyOutcome maps a provider outcome onto the flow: it updates the flow
// context, sets the superseding pane, and returns the events the transition
// implies. Events are returned rather than emitted so the caller can commit
// the flow first.
func (e *Engine) applyOutcome(ctx context.Context, f *session.Flow, outcome Outcome, now time.Time) ([]Event, error) {
	switch out := outcome.(type) {
	case Pending:
		f.Context.LoginPending = true
		f.CurrentPane = pane.New(pane.LoadingRender{Message: e.config.Flow.LoadingMessage}, now)
		return nil, nil

	case LoginRequired:
		f.Context.Provider = out.Provider
		f.Context.AcceptedIdentifiers = out.AcceptedIdentifiers
		f.Context.CredentialKind = out.CredentialKind
		f.CurrentPane = pane.New(e.renderLogin(f), now)
		return nil, nil

	case BadCredentials:
		e.metricInc(MetricBadCredentials)
		f.CurrentPane = pane.New(e.renderLogin(f), now).
			WithError(pane.CodeBadCredentials, messageOr(out.Message, "The credentials you entered are incorrect."))
		event := e.event(ctx, EventConnectWebviewLoginFailed, f, now)
		event.ErrorCode = string(pane.CodeBadCredentials)
		return []Event{event}, nil

	case InvalidPhoneNumber:
		f.CurrentPane = pane.New(e.renderLogin(f), now).
			WithError(pane.CodeInvalidPhoneNumber, messageOr(out.Message, "That phone number doesn't look right."))
		return nil, nil

	case TwoFactorRequired:
		options := twofactor.WithIDs(out.Options)
		if err := options.Validate(); err != nil {
			return nil, fmt.Errorf("provider returned invalid two-factor options: %w", err)
		}
		f.Context.TwoFactorOptions = options
		f.Context.SelectedTwoFactorID = ""
		f.CurrentPane = pane.New(e.renderInitiateTwoFactor(f), now)
		return nil, nil

	case TwoFactorSent:
		codeLength := out.CodeLength
		if codeLength <= 0 {
			if opt, ok := f.Context.TwoFactorOptions.Resolve(f.Context.SelectedTwoFactorID); ok {
				codeLength = opt.CodeLength
			}
		}
		if codeLength <= 0 {
			return nil, errors.New("provider returned two-factor delivery with no code length")
		}
		f.Context.CodeLength = codeLength

		record := &twoFactorChallenge{
			OptionID:   f.Context.SelectedTwoFactorID,
			CodeLength: uint16(codeLength),
			ExpiresAt:  now.Add(e.config.TwoFactor.ChallengeTTL).Unix(),
		}
		if err := e.challengeStore.Save(ctx, f.FlowID, record, e.config.TwoFactor.ChallengeTTL); err != nil {
			return nil, err
		}

		e.metricInc(MetricTwoFactorInitiated)
		f.CurrentPane = pane.New(e.renderTwoFactor(f), now)
		return nil, nil

	case TwoFactorBadCode:
		e.metricInc(MetricTwoFactorBadCode)
		f.CurrentPane = pane.New(e.renderTwoFactor(f), now).
			WithError(pane.CodeTwoFactorBadCode, messageOr(out.Message, "That code didn't work. Check it and try again."))
		return nil, nil

	case InvalidMasterCode:
		msg := messageOr(out.Message, "That master code was rejected.")
		if out.Field != "" {
			msg = fmt.Sprintf("%s (%s)", msg, out.Field)
		}
		f.CurrentPane = pane.New(e.renderFields(f), now).
			WithError(pane.CodeInvalidMasterCode, msg)
		return nil, nil

	case FieldsRequired:
		f.Context.PendingFields = out.Fields
		f.Context.FieldsTitle = out.Title
		f.CurrentPane = pane.New(e.renderFields(f), now)
		return nil, nil

	case SelectionRequired:
		f.Context.SelectTitle = out.Title
		f.Context.SelectOptions = out.Options
		f.Context.SelectMode = out.Mode
		f.Context.SelectContext = out.Context
		f.Context.ManufacturerName = out.ManufacturerName
		f.CurrentPane = pane.New(e.renderSearchAndSelect(f), now)
		return nil, nil

	case BrandChoiceRequired:
		f.Context.SelectTitle = out.Title
		f.Context.BrandOptions = out.Brands
		f.CurrentPane = pane.New(e.renderBrandSelect(f), now)
		return nil, nil

	case RedirectRequired:
		redirectURL, err := e.signRedirect(f, out.RedirectURL, now)
		if err != nil {
			return nil, err
		}
		f.Context.RedirectURL = redirectURL
		f.CurrentPane = pane.New(pane.RedirectRender{RedirectURL: redirectURL}, now)
		return nil, nil

	case Connected:
		f.Context.ConnectedAccountID = out.ConnectedAccountID
		f.Context.Summary = mergeSummary(f.Context.Summary, out.Summary)

		var events []Event
		if !f.Context.LoginEventsEmitted {
			f.Context.LoginEventsEmitted = true
			events = append(events,
				e.event(ctx, EventConnectedAccountSuccessfulLogin, f, now),
				e.event(ctx, EventConnectWebviewLoginSucceeded, f, now),
			)
		}
		if !f.Context.ConnectedEmitted {
			f.Context.ConnectedEmitted = true
			if out.AccountCreated {
				events = append(events, e.event(ctx, EventConnectedAccountCreated, f, now))
			}
			events = append(events, e.event(ctx, EventConnectedAccountConnected, f, now))
		}

		if e.submitLimiter != nil {
			_ = e.submitLimiter.Reset(ctx, f.ConnectWebviewID)
		}

		finalizeEvents, err := e.finalize(ctx, f, now)
		if err != nil {
			return nil, err
		}
		return append(events, finalizeEvents...), nil

	case Finalized:
		f.Context.Summary = mergeSummary(f.Context.Summary, out.Summary)

		var events []Event
		if !f.Context.Finalized {
			f.Context.Finalized = true
			events = append(events, e.event(ctx, EventConnectedAccountCompletedFirstSync, f, now))
			e.metricInc(MetricFlowFinished)
		}
		f.CurrentPane = pane.New(e.renderFinished(f), now)
		return events, nil

	case FinalizeFailed:
		e.metricInc(MetricFinalizeFailure)
		f.CurrentPane = pane.New(e.renderFinished(f), now).
			WithError(pane.CodeError, messageOr(out.Message, "We couldn't finish setting up your account. Try again."))
		return nil, nil

	case Failed:
		code := out.Code
		if code == "" {
			code = pane.CodeError
		}
		f.CurrentPane = e.rerenderCurrent(f, now).
			WithError(code, messageOr(out.Message, "Something went wrong."))
		return nil, nil

	default:
		return nil, fmt.Errorf("provider returned unknown outcome %T", outcome)
	}
}

// finalize runs the provider's post-connection step and applies its outcome.
// A transport error degrades to a retryable finished pane rather than
// failing the transition: the account is connected either way.
func (e *Engine) finalize(ctx context.Context, f *session.Flow, now time.Time) ([]Event, error) {
	if f.Context.Finalized {
		f.CurrentPane = pane.New(e.renderFinished(f), now)
		return nil, nil
	}

	outcome, err := e.provider.Finalize(ctx, FinalizeRequest{
		Ref:                e.ref(f),
		ConnectedAccountID: f.Context.ConnectedAccountID,
	})
	if err != nil {
		e.metricInc(MetricFinalizeFailure)
		f.CurrentPane = pane.New(e.renderFinished(f), now).
			WithError(pane.CodeError, "We couldn't finish setting up your account. Try again.")
		return nil, nil
	}

	switch outcome.(type) {
	case Finalized, FinalizeFailed, Pending:
		return e.applyOutcome(ctx, f, outcome, now)
	default:
		return nil, fmt.Errorf("provider returned %T from finalize", outcome)
	}
}

func (e *Engine) signRedirect(f *session.Flow, rawURL string, now time.Time) (string, error) {
	if e.callbackManager == nil {
		return rawURL, nil
	}

	nonce := uuid.NewString()
	token, err := e.callbackManager.Sign(f.WorkspaceID, f.ConnectWebviewID, f.FlowID, nonce, now)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("provider returned invalid redirect url: %w", err)
	}
	q := u.Query()
	q.Set("state", token)
	u.RawQuery = q.Encode()

	f.Context.RedirectNonce = nonce
	return u.String(), nil
}

func mergeSummary(base, extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return base
	}
	if base == nil {
		base = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
