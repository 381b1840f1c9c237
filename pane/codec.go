package pane

import (
	"encoding/json"
	"fmt"
	"time"
)

type envelope struct {
	Name          Name            `json:"name"`
	RenderProps   json.RawMessage `json:"render_props"`
	SubmitProps   map[string]any  `json:"submit_props"`
	LastUpdatedAt string          `json:"last_updated_at"`
}

// channelProps are the fields every variant's render_props may carry on top
// of its own shape.
type channelProps struct {
	ErrorMsg  string    `json:"error_msg,omitempty"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
	NoticeMsg string    `json:"notice_msg,omitempty"`
}

// MarshalJSON encodes the pane as its wire envelope. The error and notice
// channel is folded into render_props so clients read one object per pane;
// submit_props is always present, empty when the pane accepts no submission.
func (p Pane) MarshalJSON() ([]byte, error) {
	if !p.Name.Valid() {
		return nil, fmt.Errorf("cannot encode pane with unknown name %q", p.Name)
	}

	render := map[string]any{}
	if p.Render != nil {
		raw, err := json.Marshal(p.Render)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &render); err != nil {
			return nil, err
		}
	}
	if p.ErrorMsg != "" {
		render["error_msg"] = p.ErrorMsg
	}
	if p.ErrorCode != "" {
		render["error_code"] = string(p.ErrorCode)
	}
	if p.NoticeMsg != "" {
		render["notice_msg"] = p.NoticeMsg
	}

	submit := p.Submit
	if submit == nil {
		submit = map[string]any{}
	}

	rawRender, err := json.Marshal(render)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Name:          p.Name,
		RenderProps:   rawRender,
		SubmitProps:   submit,
		LastUpdatedAt: p.LastUpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON decodes a wire envelope back into a pane, dispatching the
// render_props shape on the name discriminator. Unknown names fail.
func (p *Pane) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if !env.Name.Valid() {
		return fmt.Errorf("unknown pane name %q", env.Name)
	}

	render, err := decodeRender(env.Name, env.RenderProps)
	if err != nil {
		return fmt.Errorf("decode %s render props: %w", env.Name, err)
	}

	var channel channelProps
	if len(env.RenderProps) > 0 {
		if err := json.Unmarshal(env.RenderProps, &channel); err != nil {
			return fmt.Errorf("decode %s render props: %w", env.Name, err)
		}
	}

	var updated time.Time
	if env.LastUpdatedAt != "" {
		updated, err = time.Parse(time.RFC3339Nano, env.LastUpdatedAt)
		if err != nil {
			return fmt.Errorf("decode last_updated_at: %w", err)
		}
	}

	p.Name = env.Name
	p.Render = render
	p.ErrorMsg = channel.ErrorMsg
	p.ErrorCode = channel.ErrorCode
	p.NoticeMsg = channel.NoticeMsg
	p.Submit = env.SubmitProps
	p.LastUpdatedAt = updated
	return nil
}

func decodeRender(name Name, raw json.RawMessage) (Render, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch name {
	case Loading:
		var r LoadingRender
		return r, json.Unmarshal(raw, &r)
	case Redirect:
		var r RedirectRender
		return r, json.Unmarshal(raw, &r)
	case SearchAndSelect:
		var r SearchAndSelectRender
		return r, json.Unmarshal(raw, &r)
	case BrandSelect:
		var r BrandSelectRender
		return r, json.Unmarshal(raw, &r)
	case Login:
		var r LoginRender
		return r, json.Unmarshal(raw, &r)
	case InitiateTwoFactor:
		var r InitiateTwoFactorRender
		return r, json.Unmarshal(raw, &r)
	case TwoFactor:
		var r TwoFactorRender
		return r, json.Unmarshal(raw, &r)
	case Fields:
		var r FieldsRender
		return r, json.Unmarshal(raw, &r)
	case Finished:
		var r FinishedRender
		return r, json.Unmarshal(raw, &r)
	default:
		return nil, fmt.Errorf("unknown pane name %q", name)
	}
}
