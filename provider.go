package paneflow

import (
	"context"
)

// FlowRef identifies the flow a provider call belongs to. Every request
// carries one so providers can correlate their own state.
type FlowRef struct {
	FlowID           string
	WorkspaceID      string
	ConnectWebviewID string
}

// DescribeRequest asks the provider for the first step of a connection.
type DescribeRequest struct {
	Ref FlowRef
}

// AuthenticateRequest carries a login_pane submission.
type AuthenticateRequest struct {
	Ref            FlowRef
	UserIdentifier string
	Credential     string
}

// InitiateTwoFactorRequest carries the option chosen on an
// initiate_two_factor_pane; the provider triggers delivery.
type InitiateTwoFactorRequest struct {
	Ref      FlowRef
	OptionID string
}

// VerifyTwoFactorRequest carries a two_factor_pane code submission.
type VerifyTwoFactorRequest struct {
	Ref      FlowRef
	OptionID string
	Code     string
}

// SelectRequest carries the values chosen on a search_and_select_pane or
// the brand chosen on a brand_select_pane.
type SelectRequest struct {
	Ref            FlowRef
	SelectedValues []string
	BrandID        string
}

// SubmitFieldsRequest carries a fields_pane submission that already passed
// descriptor validation.
type SubmitFieldsRequest struct {
	Ref    FlowRef
	Values map[string]any
}

// CallbackRequest carries the provider's redirect callback after the signed
// state token has been verified against the flow.
type CallbackRequest struct {
	Ref    FlowRef
	Params map[string]string
}

// FinalizeRequest asks the provider to complete post-connection work (first
// sync, account registration) for a connected flow.
type FinalizeRequest struct {
	Ref                FlowRef
	ConnectedAccountID string
}

// Provider is the host-supplied integration with the third-party system.
// Every method returns a typed [Outcome]; errors are reserved for transport
// and backend failures, never for wrong user input. Implementations must be
// safe for concurrent use.
type Provider interface {
	Describe(ctx context.Context, req DescribeRequest) (Outcome, error)
	Authenticate(ctx context.Context, req AuthenticateRequest) (Outcome, error)
	InitiateTwoFactor(ctx context.Context, req InitiateTwoFactorRequest) (Outcome, error)
	VerifyTwoFactorCode(ctx context.Context, req VerifyTwoFactorRequest) (Outcome, error)
	Select(ctx context.Context, req SelectRequest) (Outcome, error)
	SubmitFields(ctx context.Context, req SubmitFieldsRequest) (Outcome, error)
	HandleCallback(ctx context.Context, req CallbackRequest) (Outcome, error)
	Finalize(ctx context.Context, req FinalizeRequest) (Outcome, error)
}
