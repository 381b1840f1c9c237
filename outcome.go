package paneflow

import (
	"github.com/connectkit/paneflow/field"
	"github.com/connectkit/paneflow/pane"
	"github.com/connectkit/paneflow/twofactor"
)

// Outcome is the closed set of results a provider call can produce. The
// engine maps each variant to a pane transition; providers never construct
// panes themselves.
type Outcome interface {
	isOutcome()
}

// Pending means the provider is still working; the engine renders a loading
// pane and the host injects the real outcome later via [Engine.Resolve].
type Pending struct{}

func (Pending) isOutcome() {}

// LoginRequired asks for credentials on a login_pane.
type LoginRequired struct {
	Provider            pane.ProviderMetadata
	AcceptedIdentifiers []pane.IdentifierKind
	CredentialKind      pane.CredentialKind
}

func (LoginRequired) isOutcome() {}

// BadCredentials re-renders the login pane with BAD_CREDENTIALS.
type BadCredentials struct {
	Message string
}

func (BadCredentials) isOutcome() {}

// InvalidPhoneNumber re-renders the login pane with INVALID_PHONE_NUMBER.
type InvalidPhoneNumber struct {
	Message string
}

func (InvalidPhoneNumber) isOutcome() {}

// TwoFactorRequired moves the flow to an initiate_two_factor_pane offering
// the given delivery options.
type TwoFactorRequired struct {
	Options []twofactor.Option
}

func (TwoFactorRequired) isOutcome() {}

// TwoFactorSent means delivery was triggered; the flow moves to a
// two_factor_pane expecting a code of the given length.
type TwoFactorSent struct {
	CodeLength int
}

func (TwoFactorSent) isOutcome() {}

// TwoFactorBadCode re-renders the two_factor pane with TWO_FACTOR_BAD_CODE.
type TwoFactorBadCode struct {
	Message string
}

func (TwoFactorBadCode) isOutcome() {}

// InvalidMasterCode re-renders the fields pane with INVALID_MASTER_CODE,
// naming the rejected field.
type InvalidMasterCode struct {
	Field   string
	Message string
}

func (InvalidMasterCode) isOutcome() {}

// FieldsRequired moves the flow to a fields_pane collecting the given
// descriptors.
type FieldsRequired struct {
	Title  string
	Fields field.Catalog
}

func (FieldsRequired) isOutcome() {}

// SelectionRequired moves the flow to a search_and_select_pane.
type SelectionRequired struct {
	Title            string
	Options          []pane.SelectOption
	Mode             pane.SelectionMode
	Context          string
	ManufacturerName string
}

func (SelectionRequired) isOutcome() {}

// BrandChoiceRequired moves the flow to a brand_select_pane.
type BrandChoiceRequired struct {
	Title  string
	Brands []pane.SelectOption
}

func (BrandChoiceRequired) isOutcome() {}

// RedirectRequired moves the flow to a redirect_pane pointing the browser at
// the given URL; the engine appends its signed state token.
type RedirectRequired struct {
	RedirectURL string
}

func (RedirectRequired) isOutcome() {}

// Connected means authentication succeeded and an account now exists.
// AccountCreated distinguishes a first-time connection from a reconnect.
type Connected struct {
	ConnectedAccountID string
	AccountCreated     bool
	Summary            map[string]any
}

func (Connected) isOutcome() {}

// Finalized means post-connection work (first sync) completed.
type Finalized struct {
	Summary map[string]any
}

func (Finalized) isOutcome() {}

// FinalizeFailed re-renders the finished pane with an error so the client
// can retry finalization.
type FinalizeFailed struct {
	Message string
}

func (FinalizeFailed) isOutcome() {}

// Failed re-renders the current pane with the given taxonomy code.
type Failed struct {
	Code    pane.ErrorCode
	Message string
}

func (Failed) isOutcome() {}
