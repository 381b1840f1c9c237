package field

import (
	"fmt"
	"regexp"
)

// Type identifies the presentation type of a field descriptor.
//
// Type instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Type string

const (
	// TypeText is an exported constant or variable used by the flow engine.
	TypeText Type = "text"
	// TypeTextarea is an exported constant or variable used by the flow engine.
	TypeTextarea Type = "textarea"
	// TypeSelection is an exported constant or variable used by the flow engine.
	TypeSelection Type = "selection"
	// TypeRadioText is an exported constant or variable used by the flow engine.
	TypeRadioText Type = "radio_text"
)

// InputType narrows how a text control is rendered and captured by the client.
type InputType string

const (
	// InputText is an exported constant or variable used by the flow engine.
	InputText InputType = "text"
	// InputPassword is an exported constant or variable used by the flow engine.
	InputPassword InputType = "password"
	// InputEmail is an exported constant or variable used by the flow engine.
	InputEmail InputType = "email"
	// InputNumber is an exported constant or variable used by the flow engine.
	InputNumber InputType = "number"
	// InputTel is an exported constant or variable used by the flow engine.
	InputTel InputType = "tel"
	// InputURL is an exported constant or variable used by the flow engine.
	InputURL InputType = "url"
)

// Option is a single choice of a selection or radio_text descriptor.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Props is the wire shape of one field descriptor inside a fields pane.
// Presentation metadata is shared across all types; Placeholder, Regex and
// InputType apply to text-like types, Options to selection and radio_text.
type Props struct {
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Label       string    `json:"label"`
	IsRequired  bool      `json:"is_required"`
	IsDisabled  bool      `json:"is_disabled,omitempty"`
	IsReadOnly  bool      `json:"is_read_only,omitempty"`
	HelpText    string    `json:"help_text,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Regex       string    `json:"regex,omitempty"`
	InputType   InputType `json:"input_type,omitempty"`
	Options     []Option  `json:"options,omitempty"`
}

// ValidationError reports the first descriptor-level constraint violated by a
// submission. It always names the offending field so clients can highlight it.
type ValidationError struct {
	Field  string
	Reason string
}

// Error describes the error operation and its observable behavior.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Catalog is an ordered set of field descriptors presented together.
//
// Catalog instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Catalog []Props

// Validate checks a fields-pane submission against the catalog: required
// fields must be present and non-empty, text values must match the declared
// regex, and selection values must be drawn from the declared options.
// Unknown keys are tolerated so newer clients keep working against older
// catalogs. Returns a *ValidationError on the first violation.
func (c Catalog) Validate(values map[string]any) error {
	for _, f := range c {
		raw, ok := values[f.Name]
		if !ok || raw == nil {
			if f.IsRequired {
				return &ValidationError{Field: f.Name, Reason: "required"}
			}
			continue
		}
		if err := f.validateValue(raw); err != nil {
			return err
		}
	}
	return nil
}

func (f Props) validateValue(raw any) error {
	switch f.Type {
	case TypeText, TypeTextarea:
		text, ok := raw.(string)
		if !ok {
			return &ValidationError{Field: f.Name, Reason: "expected a string value"}
		}
		return f.validateText(text)
	case TypeSelection:
		value, ok := raw.(string)
		if !ok {
			return &ValidationError{Field: f.Name, Reason: "expected a string value"}
		}
		if f.IsRequired && value == "" {
			return &ValidationError{Field: f.Name, Reason: "required"}
		}
		if value != "" && !f.hasOption(value) {
			return &ValidationError{Field: f.Name, Reason: "value is not one of the declared options"}
		}
		return nil
	case TypeRadioText:
		return f.validateRadioText(raw)
	default:
		return &ValidationError{Field: f.Name, Reason: "unknown field type"}
	}
}

func (f Props) validateText(text string) error {
	if f.IsRequired && text == "" {
		return &ValidationError{Field: f.Name, Reason: "required"}
	}
	if text == "" || f.Regex == "" {
		return nil
	}
	re, err := regexp.Compile(f.Regex)
	if err != nil {
		// A descriptor with a broken regex must not reject user input.
		return nil
	}
	if !re.MatchString(text) {
		return &ValidationError{Field: f.Name, Reason: "value does not match the required format"}
	}
	return nil
}

// validateRadioText accepts either a selected option value or a free-text
// entry under the "text" key: {"option": "..."} or {"text": "..."}.
func (f Props) validateRadioText(raw any) error {
	composite, ok := raw.(map[string]any)
	if !ok {
		return &ValidationError{Field: f.Name, Reason: "expected an object with option or text"}
	}
	option, _ := composite["option"].(string)
	text, _ := composite["text"].(string)
	if option == "" && text == "" {
		if f.IsRequired {
			return &ValidationError{Field: f.Name, Reason: "required"}
		}
		return nil
	}
	if option != "" && !f.hasOption(option) {
		return &ValidationError{Field: f.Name, Reason: "option is not one of the declared options"}
	}
	if text != "" && f.Regex != "" {
		if re, err := regexp.Compile(f.Regex); err == nil && !re.MatchString(text) {
			return &ValidationError{Field: f.Name, Reason: "value does not match the required format"}
		}
	}
	return nil
}

func (f Props) hasOption(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}
