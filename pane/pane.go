package pane

import "time"

// Name identifies a pane variant. The set is closed; Name uniquely determines
// the shapes of both render_props and submit_props.
type Name string

const (
	// Loading is an exported constant or variable used by the flow engine.
	Loading Name = "loading"
	// Redirect is an exported constant or variable used by the flow engine.
	Redirect Name = "redirect_pane"
	// SearchAndSelect is an exported constant or variable used by the flow engine.
	SearchAndSelect Name = "search_and_select_pane"
	// BrandSelect is an exported constant or variable used by the flow engine.
	BrandSelect Name = "brand_select_pane"
	// Login is an exported constant or variable used by the flow engine.
	Login Name = "login_pane"
	// InitiateTwoFactor is an exported constant or variable used by the flow engine.
	InitiateTwoFactor Name = "initiate_two_factor_pane"
	// TwoFactor is an exported constant or variable used by the flow engine.
	TwoFactor Name = "two_factor_pane"
	// Fields is an exported constant or variable used by the flow engine.
	Fields Name = "fields_pane"
	// Finished is an exported constant or variable used by the flow engine.
	Finished Name = "finished_pane"
)

// Valid reports whether n is a member of the closed pane name set.
func (n Name) Valid() bool {
	switch n {
	case Loading, Redirect, SearchAndSelect, BrandSelect, Login,
		InitiateTwoFactor, TwoFactor, Fields, Finished:
		return true
	default:
		return false
	}
}

// ErrorCode is the machine-readable error taxonomy consumed by clients for
// localized messaging. The set is closed.
type ErrorCode string

const (
	// CodeError is an exported constant or variable used by the flow engine.
	CodeError ErrorCode = "ERROR"
	// CodeBadCredentials is an exported constant or variable used by the flow engine.
	CodeBadCredentials ErrorCode = "BAD_CREDENTIALS"
	// CodeTwoFactorRequired is an exported constant or variable used by the flow engine.
	CodeTwoFactorRequired ErrorCode = "TWO_FACTOR_REQUIRED"
	// CodeTwoFactorBadCode is an exported constant or variable used by the flow engine.
	CodeTwoFactorBadCode ErrorCode = "TWO_FACTOR_BAD_CODE"
	// CodeInvalidMasterCode is an exported constant or variable used by the flow engine.
	CodeInvalidMasterCode ErrorCode = "INVALID_MASTER_CODE"
	// CodeInvalidPhoneNumber is an exported constant or variable used by the flow engine.
	CodeInvalidPhoneNumber ErrorCode = "INVALID_PHONE_NUMBER"
)

// ProviderMetadata is the branding descriptor attached to panes that
// represent a third-party identity.
type ProviderMetadata struct {
	DisplayName    string `json:"display_name"`
	ImageURL       string `json:"image_url"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
}

// IdentifierKind enumerates the user identifier formats a login pane accepts.
type IdentifierKind string

const (
	// IdentifierEmail is an exported constant or variable used by the flow engine.
	IdentifierEmail IdentifierKind = "email"
	// IdentifierPhone is an exported constant or variable used by the flow engine.
	IdentifierPhone IdentifierKind = "phone"
	// IdentifierUsername is an exported constant or variable used by the flow engine.
	IdentifierUsername IdentifierKind = "username"
)

// CredentialKind enumerates the secret formats a login pane collects.
type CredentialKind string

const (
	// CredentialPassword is an exported constant or variable used by the flow engine.
	CredentialPassword CredentialKind = "password"
	// CredentialAPIKey is an exported constant or variable used by the flow engine.
	CredentialAPIKey CredentialKind = "api_key"
)

// SelectionMode controls how many options a search_and_select pane accepts.
type SelectionMode string

const (
	// SelectionNone is an exported constant or variable used by the flow engine.
	SelectionNone SelectionMode = "none"
	// SelectionSingle is an exported constant or variable used by the flow engine.
	SelectionSingle SelectionMode = "single"
	// SelectionMultiple is an exported constant or variable used by the flow engine.
	SelectionMultiple SelectionMode = "multiple"
)

// ContextDevice is the domain discriminator for device selection panes.
const ContextDevice = "device"

// SelectOption is one labeled entry of a selection or brand list.
type SelectOption struct {
	Label    string `json:"label"`
	Sublabel string `json:"sublabel,omitempty"`
	Value    string `json:"value"`
	ImageURL string `json:"image_url,omitempty"`
}

// Pane is one discrete step of a guided flow. A Pane is immutable once
// constructed: transitions supersede it with a new value, never mutate it.
type Pane struct {
	Name          Name
	Render        Render
	ErrorMsg      string
	ErrorCode     ErrorCode
	NoticeMsg     string
	Submit        map[string]any
	LastUpdatedAt time.Time
}

// New builds a pane for the given render props, stamped with now.
func New(r Render, now time.Time) Pane {
	return Pane{
		Name:          r.paneName(),
		Render:        r,
		LastUpdatedAt: now.UTC(),
	}
}

// WithError returns a copy of the pane carrying the given error code and
// human-readable message.
func (p Pane) WithError(code ErrorCode, msg string) Pane {
	p.ErrorCode = code
	p.ErrorMsg = msg
	return p
}

// WithNotice returns a copy of the pane carrying non-error informational text.
func (p Pane) WithNotice(msg string) Pane {
	p.NoticeMsg = msg
	return p
}
