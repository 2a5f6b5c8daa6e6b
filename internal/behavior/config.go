package behavior

import (
	"encoding/json"
	"strings"
)

// Input is one cloud-provided connector input. Value is a template rendered at
// run start into the `inputs` rendering-context key.
type Input struct {
	Value string `json:"value"`
}

// ConnectorConfig is the full configuration of one managed connector as
// delivered by the platform (cloud setup) or a local file (on-premise setup).
type ConnectorConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`

	SaaSAuthorization     json.RawMessage `json:"saas_authorization"`
	PlatformAuthorization json.RawMessage `json:"oomnitza_authorization"`
	LocalInputs           json.RawMessage `json:"local_inputs"`
	TestRun               bool            `json:"test_run"`

	Inputs map[string]Input `json:"inputs"`

	ListBehavior     *Behavior         `json:"list_behavior"`
	DetailBehavior   *Behavior         `json:"detail_behavior"`
	SoftwareBehavior *SoftwareBehavior `json:"software_behavior"`
	SaaSBehavior     *SaaSBehavior     `json:"saas_behavior"`
}

// Normalized returns a copy of the config with trimmed identity fields.
func (c ConnectorConfig) Normalized() ConnectorConfig {
	out := c
	out.ID = strings.TrimSpace(out.ID)
	out.Name = strings.TrimSpace(out.Name)
	out.Type = strings.TrimSpace(out.Type)
	return out
}

// Validate returns an error if the config cannot drive an extraction run.
func (c ConnectorConfig) Validate() error {
	c = c.Normalized()
	if c.ID == "" {
		return NewConfigError("", "connector id is required")
	}
	if c.ListBehavior == nil || c.ListBehavior.Empty() {
		return NewConfigError(c.ID, "list behavior is required")
	}
	if strings.TrimSpace(c.ListBehavior.Result) == "" {
		return NewConfigError(c.ID, "list behavior result expression is required")
	}
	return nil
}

// ResolveLocalInputs decodes local_inputs, which may arrive either as a mapping
// or as a JSON-encoded string holding a mapping.
func (c ConnectorConfig) ResolveLocalInputs() (map[string]any, error) {
	raw := c.LocalInputs
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.TrimSpace(asString) == "" {
			return map[string]any{}, nil
		}
		raw = []byte(asString)
	}

	var inputs map[string]any
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, NewConfigError(c.ID, "local inputs have invalid format")
	}
	if inputs == nil {
		inputs = map[string]any{}
	}
	return inputs, nil
}

// IAMRoleARNs returns the rotating-credential role ARNs configured through the
// cloud inputs, if any. The input value may be a JSON array or a
// comma-separated list.
func (c ConnectorConfig) IAMRoleARNs() []string {
	input, ok := c.Inputs["iam_roles"]
	if !ok {
		return nil
	}
	raw := strings.TrimSpace(input.Value)
	if raw == "" {
		return nil
	}

	var arns []string
	if err := json.Unmarshal([]byte(raw), &arns); err == nil {
		return trimNonEmpty(arns)
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseConnectors decodes a list of connector configs from JSON.
func ParseConnectors(data []byte) ([]ConnectorConfig, error) {
	var configs []ConnectorConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, err
	}
	for i := range configs {
		configs[i] = configs[i].Normalized()
		if err := configs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return configs, nil
}
