package paneflow

import (
	"time"

	"github.com/connectkit/paneflow/pane"
	"github.com/connectkit/paneflow/session"
)

func (e *Engine) renderLogin(f *session.Flow) pane.LoginRender {
	identifiers := f.Context.AcceptedIdentifiers
	if len(identifiers) == 0 {
		identifiers = []pane.IdentifierKind{pane.IdentifierEmail}
	}
	return pane.LoginRender{
		AcceptedUserIdentifiers: identifiers,
		CredentialKind:          f.Context.CredentialKind,
		Provider:                f.Context.Provider,
	}
}

func (e *Engine) renderInitiateTwoFactor(f *session.Flow) pane.InitiateTwoFactorRender {
	return pane.InitiateTwoFactorRender{
		Options:  f.Context.TwoFactorOptions,
		Provider: f.Context.Provider,
	}
}

func (e *Engine) renderTwoFactor(f *session.Flow) pane.TwoFactorRender {
	return pane.TwoFactorRender{
		CodeLength: f.Context.CodeLength,
		Provider:   f.Context.Provider,
	}
}

func (e *Engine) renderFields(f *session.Flow) pane.FieldsRender {
	return pane.FieldsRender{
		Fields: f.Context.PendingFields,
		Header: pane.FieldsHeader{
			Title:    f.Context.FieldsTitle,
			Provider: f.Context.Provider,
		},
	}
}

func (e *Engine) renderSearchAndSelect(f *session.Flow) pane.SearchAndSelectRender {
	mode := f.Context.SelectMode
	if mode == "" {
		mode = pane.SelectionSingle
	}
	return pane.SearchAndSelectRender{
		Title:            f.Context.SelectTitle,
		Options:          f.Context.SelectOptions,
		SelectionMode:    mode,
		Context:          f.Context.SelectContext,
		ManufacturerName: f.Context.ManufacturerName,
	}
}

func (e *Engine) renderBrandSelect(f *session.Flow) pane.BrandSelectRender {
	return pane.BrandSelectRender{
		Title:  f.Context.SelectTitle,
		Brands: f.Context.BrandOptions,
	}
}

func (e *Engine) renderFinished(f *session.Flow) pane.FinishedRender {
	return pane.FinishedRender{
		Summary: f.Context.Summary,
	}
}

// rerenderCurrent rebuilds the flow's current pane from context, keeping the
// flow on the same step. Used for recoverable errors.
func (e *Engine) rerenderCurrent(f *session.Flow, now time.Time) pane.Pane {
	switch f.CurrentPane.Name {
	case pane.Login:
		return pane.New(e.renderLogin(f), now)
	case pane.InitiateTwoFactor:
		return pane.New(e.renderInitiateTwoFactor(f), now)
	case pane.TwoFactor:
		return pane.New(e.renderTwoFactor(f), now)
	case pane.Fields:
		return pane.New(e.renderFields(f), now)
	case pane.SearchAndSelect:
		return pane.New(e.renderSearchAndSelect(f), now)
	case pane.BrandSelect:
		return pane.New(e.renderBrandSelect(f), now)
	case pane.Redirect:
		return pane.New(pane.RedirectRender{RedirectURL: f.Context.RedirectURL}, now)
	case pane.Finished:
		return pane.New(e.renderFinished(f), now)
	default:
		return pane.New(pane.LoadingRender{Message: e.config.Flow.LoadingMessage}, now)
	}
}
