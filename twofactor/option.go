package twofactor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Method identifies the delivery channel of a two-factor option.
//
// Method instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Method string

const (
	// MethodSMS is an exported constant or variable used by the flow engine.
	MethodSMS Method = "sms"
	// MethodOTP is an exported constant or variable used by the flow engine.
	MethodOTP Method = "otp"
	// MethodEmail is an exported constant or variable used by the flow engine.
	MethodEmail Method = "email"
)

// ErrDuplicateOptionID is returned by [Options.Validate] when two options
// share an id, which would make a client selection ambiguous.
var ErrDuplicateOptionID = errors.New("duplicate two-factor option id")

// Option describes one available second-factor channel. PhoneNumber is set
// for sms options, EmailAddress for email options; both are display values
// (typically masked by the provider) and never used for delivery here.
type Option struct {
	ID           string `json:"id"`
	Method       Method `json:"method"`
	CodeLength   int    `json:"code_length"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

// Options defines a public type used by paneflow APIs.
//
// Options instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Options []Option

// WithIDs returns a copy of the options with a generated uuid assigned to
// every option that lacks an id. Options that already carry an id keep it.
func WithIDs(opts []Option) Options {
	out := make(Options, len(opts))
	for i, o := range opts {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		out[i] = o
	}
	return out
}

// Resolve returns the option with the given id. The second result is false
// when no option matches; ids are unique per [Options.Validate], so a match
// is always exactly one option.
func (o Options) Resolve(id string) (Option, bool) {
	if id == "" {
		return Option{}, false
	}
	for _, opt := range o {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Validate checks that every option has a known method, a positive code
// length, a unique id, and the delivery identifier its method requires.
func (o Options) Validate() error {
	seen := make(map[string]struct{}, len(o))
	for _, opt := range o {
		if opt.ID == "" {
			return errors.New("two-factor option missing id")
		}
		if _, dup := seen[opt.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOptionID, opt.ID)
		}
		seen[opt.ID] = struct{}{}

		switch opt.Method {
		case MethodSMS:
			if opt.PhoneNumber == "" {
				return fmt.Errorf("sms option %s missing phone_number", opt.ID)
			}
		case MethodEmail:
			if opt.EmailAddress == "" {
				return fmt.Errorf("email option %s missing email_address", opt.ID)
			}
		case MethodOTP:
		default:
			return fmt.Errorf("unknown two-factor method %q", opt.Method)
		}
		if opt.CodeLength <= 0 {
			return fmt.Errorf("two-factor option %s has non-positive code length", opt.ID)
		}
	}
	return nil
}
