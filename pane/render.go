package pane

import (
	"github.com/connectkit/paneflow/field"
	"github.com/connectkit/paneflow/twofactor"
)

// Render is the variant-specific render_props payload of a pane. Exactly one
// concrete render type exists per pane name.
type Render interface {
	paneName() Name
}

// LoadingRender defines a public type used by paneflow APIs.
//
// LoadingRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoadingRender struct {
	Message string `json:"message,omitempty"`
}

func (LoadingRender) paneName() Name { return Loading }

// RedirectRender defines a public type used by paneflow APIs.
//
// The pane carries no submit echo for callback arguments: the provider's
// redirect return travels through the engine's HandleCallback params, keyed
// to the flow by the signed state token inside RedirectURL.
//
// RedirectRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RedirectRender struct {
	RedirectURL string `json:"redirect_url"`
}

func (RedirectRender) paneName() Name { return Redirect }

// SearchAndSelectRender defines a public type used by paneflow APIs.
//
// SearchAndSelectRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SearchAndSelectRender struct {
	Title            string         `json:"title"`
	Options          []SelectOption `json:"options"`
	SelectionMode    SelectionMode  `json:"selection_mode"`
	Context          string         `json:"context,omitempty"`
	ManufacturerName string         `json:"manufacturer_name,omitempty"`
}

func (SearchAndSelectRender) paneName() Name { return SearchAndSelect }

// BrandSelectRender defines a public type used by paneflow APIs.
//
// BrandSelectRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BrandSelectRender struct {
	Title  string         `json:"title"`
	Brands []SelectOption `json:"brands"`
}

func (BrandSelectRender) paneName() Name { return BrandSelect }

// LoginRender defines a public type used by paneflow APIs.
//
// LoginRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginRender struct {
	AcceptedUserIdentifiers []IdentifierKind `json:"accepted_user_identifiers"`
	CredentialKind          CredentialKind   `json:"credential_kind,omitempty"`
	Provider                ProviderMetadata `json:"provider"`
}

func (LoginRender) paneName() Name { return Login }

// InitiateTwoFactorRender defines a public type used by paneflow APIs.
//
// InitiateTwoFactorRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type InitiateTwoFactorRender struct {
	Options  []twofactor.Option `json:"options"`
	Provider ProviderMetadata   `json:"provider"`
}

func (InitiateTwoFactorRender) paneName() Name { return InitiateTwoFactor }

// TwoFactorRender defines a public type used by paneflow APIs.
//
// TwoFactorRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TwoFactorRender struct {
	CodeLength int              `json:"code_length"`
	Provider   ProviderMetadata `json:"provider"`
}

func (TwoFactorRender) paneName() Name { return TwoFactor }

// FieldsHeader is the title block shown above a fields pane.
type FieldsHeader struct {
	Title    string           `json:"title"`
	Provider ProviderMetadata `json:"provider"`
}

// FieldsRender defines a public type used by paneflow APIs.
//
// FieldsRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FieldsRender struct {
	Fields []field.Props `json:"fields"`
	Header FieldsHeader  `json:"header"`
}

func (FieldsRender) paneName() Name { return Fields }

// FinishedRender defines a public type used by paneflow APIs.
//
// FinishedRender instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FinishedRender struct {
	Summary map[string]any `json:"summary,omitempty"`
}

func (FinishedRender) paneName() Name { return Finished }
