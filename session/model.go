package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/connectkit/paneflow/field"
	"github.com/connectkit/paneflow/pane"
	"github.com/connectkit/paneflow/twofactor"
)

// Flow is one persisted account-connection attempt. The engine loads it,
// applies a transition, and saves the superseding value; a Flow is never
// mutated in place across round trips.
type Flow struct {
	FlowID           string    `json:"flow_id"`
	WorkspaceID      string    `json:"workspace_id"`
	ConnectWebviewID string    `json:"connect_webview_id"`
	CurrentPane      pane.Pane `json:"current_pane"`
	Context          Context   `json:"context"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Context is the cross-pane state a flow accumulates. Fields are populated
// as provider outcomes and client submissions arrive; zero values mean the
// flow has not reached the step that sets them.
type Context struct {
	UserIdentifier string `json:"user_identifier,omitempty"`

	Provider            pane.ProviderMetadata `json:"provider,omitempty"`
	AcceptedIdentifiers []pane.IdentifierKind `json:"accepted_identifiers,omitempty"`
	CredentialKind      pane.CredentialKind   `json:"credential_kind,omitempty"`

	TwoFactorOptions    twofactor.Options `json:"two_factor_options,omitempty"`
	SelectedTwoFactorID string            `json:"selected_two_factor_id,omitempty"`
	CodeLength          int               `json:"code_length,omitempty"`

	PendingFields field.Catalog `json:"pending_fields,omitempty"`
	FieldsTitle   string        `json:"fields_title,omitempty"`

	SelectTitle      string              `json:"select_title,omitempty"`
	SelectOptions    []pane.SelectOption `json:"select_options,omitempty"`
	SelectMode       pane.SelectionMode  `json:"select_mode,omitempty"`
	SelectContext    string              `json:"select_context,omitempty"`
	ManufacturerName string              `json:"manufacturer_name,omitempty"`
	Selection        []string            `json:"selection,omitempty"`

	BrandOptions []pane.SelectOption `json:"brand_options,omitempty"`
	BrandID      string              `json:"brand_id,omitempty"`

	RedirectURL   string `json:"redirect_url,omitempty"`
	RedirectNonce string `json:"redirect_nonce,omitempty"`

	ConnectedAccountID string         `json:"connected_account_id,omitempty"`
	Summary            map[string]any `json:"summary,omitempty"`

	// LoginPending marks a loading pane that is waiting on an asynchronous
	// provider outcome; Resolve clears it.
	LoginPending bool `json:"login_pending,omitempty"`

	LoginEventsEmitted bool `json:"login_events_emitted,omitempty"`
	ConnectedEmitted   bool `json:"connected_emitted,omitempty"`

	// Finalized marks post-connection work complete; finished-pane
	// re-entries after this point are pure re-renders.
	Finalized bool `json:"finalized,omitempty"`
}

// NewFlowID returns a fresh globally unique flow identifier.
func NewFlowID() string {
	return uuid.NewString()
}
