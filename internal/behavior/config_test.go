package behavior

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestResolveLocalInputs_Mapping(t *testing.T) {
	cfg := ConnectorConfig{ID: "c1", LocalInputs: json.RawMessage(`{"username":"u","password":"p"}`)}

	inputs, err := cfg.ResolveLocalInputs()
	if err != nil {
		t.Fatalf("ResolveLocalInputs() error = %v", err)
	}
	want := map[string]any{"username": "u", "password": "p"}
	if !reflect.DeepEqual(inputs, want) {
		t.Fatalf("inputs = %#v, want %#v", inputs, want)
	}
}

func TestResolveLocalInputs_JSONEncodedString(t *testing.T) {
	cfg := ConnectorConfig{ID: "c1", LocalInputs: json.RawMessage(`"{\"token\":\"abc\"}"`)}

	inputs, err := cfg.ResolveLocalInputs()
	if err != nil {
		t.Fatalf("ResolveLocalInputs() error = %v", err)
	}
	if inputs["token"] != "abc" {
		t.Fatalf("token = %v, want abc", inputs["token"])
	}
}

func TestResolveLocalInputs_Absent(t *testing.T) {
	cfg := ConnectorConfig{ID: "c1"}

	inputs, err := cfg.ResolveLocalInputs()
	if err != nil {
		t.Fatalf("ResolveLocalInputs() error = %v", err)
	}
	if len(inputs) != 0 {
		t.Fatalf("inputs = %#v, want empty", inputs)
	}
}

func TestResolveLocalInputs_InvalidShape(t *testing.T) {
	cfg := ConnectorConfig{ID: "c7", LocalInputs: json.RawMessage(`[1,2,3]`)}

	_, err := cfg.ResolveLocalInputs()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.ConnectorID != "c7" {
		t.Fatalf("ConnectorID = %q, want c7", cfgErr.ConnectorID)
	}
}

func TestIAMRoleARNs(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"absent", "", nil},
		{"json array", `["arn:aws:iam::1:role/a","arn:aws:iam::2:role/b"]`, []string{"arn:aws:iam::1:role/a", "arn:aws:iam::2:role/b"}},
		{"comma separated", "arn:aws:iam::1:role/a, arn:aws:iam::2:role/b", []string{"arn:aws:iam::1:role/a", "arn:aws:iam::2:role/b"}},
		{"whitespace only", "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ConnectorConfig{}
			if tt.value != "" {
				cfg.Inputs = map[string]Input{"iam_roles": {Value: tt.value}}
			}
			got := cfg.IAMRoleARNs()
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("IAMRoleARNs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := ConnectorConfig{
		ID:           "c1",
		ListBehavior: &Behavior{Rule: Rule{URL: "https://api.example.test/items", HTTPMethod: "GET"}, Result: "list_response.items"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	missingID := valid
	missingID.ID = ""
	if err := missingID.Validate(); err == nil {
		t.Fatal("expected missing id error")
	}

	missingList := valid
	missingList.ListBehavior = nil
	if err := missingList.Validate(); err == nil {
		t.Fatal("expected missing list behavior error")
	}

	missingResult := valid
	missingResult.ListBehavior = &Behavior{Rule: Rule{URL: "https://api.example.test/items", HTTPMethod: "GET"}}
	if err := missingResult.Validate(); err == nil {
		t.Fatal("expected missing result expression error")
	}
}

func TestParseConnectors(t *testing.T) {
	data := []byte(`[
		{
			"id": " c1 ",
			"name": "Example",
			"type": "assets",
			"list_behavior": {
				"url": "https://api.example.test/items",
				"http_method": "GET",
				"result": "list_response.items"
			}
		}
	]`)

	configs, err := ParseConnectors(data)
	if err != nil {
		t.Fatalf("ParseConnectors() error = %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("got %d configs, want 1", len(configs))
	}
	if configs[0].ID != "c1" {
		t.Fatalf("ID = %q, want c1", configs[0].ID)
	}
}
