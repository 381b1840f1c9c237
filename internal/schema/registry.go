// Package schema holds the compiled JSON Schemas for pane submissions.
//
// Schemas constrain the types and formats of keys that are present; they
// never mark keys as required. A missing key is a recoverable validation
// concern for the engine, while a present key with the wrong shape is a
// structural mismatch. Keeping "required" out of the schemas is what lets
// contracts evolve additively: submissions built against an older contract
// keep validating forever.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/connectkit/paneflow/pane"
)

// ErrMismatch is returned when a submission violates the declared shape of
// its pane's submit contract.
var ErrMismatch = errors.New("submission does not match the pane contract")

var submitSchemas = map[pane.Name]string{
	pane.Login: `{
		"type": "object",
		"properties": {
			"user_identifier": {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1}
		}
	}`,
	pane.InitiateTwoFactor: `{
		"type": "object",
		"properties": {
			"id": {"type": "string", "minLength": 1}
		}
	}`,
	pane.SearchAndSelect: `{
		"type": "object",
		"properties": {
			"value": {
				"type": ["string", "array"],
				"minLength": 1,
				"items": {"type": "string", "minLength": 1}
			}
		}
	}`,
	pane.BrandSelect: `{
		"type": "object",
		"properties": {
			"brand_id": {"type": "string", "minLength": 1}
		}
	}`,
	pane.Fields: `{
		"type": "object",
		"additionalProperties": {
			"type": ["string", "object", "array", "null"]
		}
	}`,
	pane.Loading:  `{"type": "object"}`,
	pane.Redirect: `{"type": "object"}`,
	pane.TwoFactor: `{
		"type": "object",
		"properties": {
			"code": {"type": "string"}
		}
	}`,
	pane.Finished: `{
		"type": "object",
		"properties": {
			"finalize": {"type": "boolean"}
		}
	}`,
}

// Registry validates pane submissions against their compiled submit schemas.
// A Registry is safe for concurrent use.
type Registry struct {
	compiled map[pane.Name]*jsonschema.Schema

	mu         sync.Mutex
	codeLength map[int]*jsonschema.Schema
}

// NewRegistry compiles the submit schema of every pane variant. Compilation
// failure is a programming error and is surfaced rather than deferred.
func NewRegistry() (*Registry, error) {
	compiled := make(map[pane.Name]*jsonschema.Schema, len(submitSchemas))
	for name, src := range submitSchemas {
		s, err := compile(string(name), src)
		if err != nil {
			return nil, fmt.Errorf("compile %s submit schema: %w", name, err)
		}
		compiled[name] = s
	}
	return &Registry{
		compiled:   compiled,
		codeLength: make(map[int]*jsonschema.Schema),
	}, nil
}

// Validate checks a submission against the submit schema of the given pane.
// Violations are reported as [ErrMismatch]; missing keys never violate.
func (r *Registry) Validate(name pane.Name, submission map[string]any) error {
	s, ok := r.compiled[name]
	if !ok {
		return fmt.Errorf("no submit schema for pane %q", name)
	}
	if submission == nil {
		submission = map[string]any{}
	}
	if err := s.Validate(normalize(submission)); err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	return nil
}

// ValidateTwoFactor checks a two_factor submission against a schema
// parameterized by the code length of the selected option. A present code of
// the wrong length or with non-digit characters is a structural mismatch.
func (r *Registry) ValidateTwoFactor(codeLength int, submission map[string]any) error {
	s, err := r.twoFactorSchema(codeLength)
	if err != nil {
		return err
	}
	if submission == nil {
		submission = map[string]any{}
	}
	if err := s.Validate(normalize(submission)); err != nil {
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	return nil
}

func (r *Registry) twoFactorSchema(codeLength int) (*jsonschema.Schema, error) {
	if codeLength <= 0 {
		return r.compiled[pane.TwoFactor], nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.codeLength[codeLength]; ok {
		return s, nil
	}

	src := fmt.Sprintf(`{
		"type": "object",
		"properties": {
			"code": {
				"type": "string",
				"minLength": %d,
				"maxLength": %d,
				"pattern": "^[0-9]*$"
			}
		}
	}`, codeLength, codeLength)
	s, err := compile(fmt.Sprintf("two_factor_%d", codeLength), src)
	if err != nil {
		return nil, fmt.Errorf("compile two_factor schema for length %d: %w", codeLength, err)
	}
	r.codeLength[codeLength] = s
	return s, nil
}

func compile(name, src string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	url := "paneflow:///" + name + ".schema.json"
	if err := compiler.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// normalize rewrites a submission into the plain decoded-JSON value space
// the validator expects. Values that arrived through encoding/json already
// have this shape; values built in Go code may carry concrete types.
func normalize(submission map[string]any) map[string]any {
	out := make(map[string]any, len(submission))
	for k, v := range submission {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalize(t)
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = normalizeValue(item)
		}
		return items
	case []string:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = item
		}
		return items
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}
