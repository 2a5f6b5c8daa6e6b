package render

import (
	"testing"
)

func TestNative_SelectsNestedValue(t *testing.T) {
	r := New()
	ctx := NewContext()
	ctx.Set("list_response", map[string]any{"items": []any{map[string]any{"id": 1.0}}})

	got, err := r.Native("list_response.items", ctx)
	if err != nil {
		t.Fatalf("Native() error = %v", err)
	}
	items, ok := got.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("Native() = %#v, want one item", got)
	}
}

func TestNative_MissingKeyIsNil(t *testing.T) {
	r := New()
	ctx := NewContext()

	got, err := r.Native("detail_response", ctx)
	if err != nil {
		t.Fatalf("Native() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Native() = %#v, want nil", got)
	}
}

func TestNative_EmptyExpression(t *testing.T) {
	r := New()
	got, err := r.Native("  ", NewContext())
	if err != nil {
		t.Fatalf("Native() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Native() = %#v, want nil", got)
	}
}

func TestString_Interpolation(t *testing.T) {
	r := New()
	ctx := NewContext()
	ctx.Set("iteration", 2)
	ctx.Set("inputs", map[string]any{"subdomain": "acme"})

	got, err := r.String("https://{{ inputs.subdomain }}.example.test/items?page={{ iteration + 1 }}", ctx)
	if err != nil {
		t.Fatalf("String() error = %v", err)
	}
	want := "https://acme.example.test/items?page=3"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestString_NoSegmentsVerbatim(t *testing.T) {
	r := New()
	got, err := r.String("application/json", NewContext())
	if err != nil {
		t.Fatalf("String() error = %v", err)
	}
	if got != "application/json" {
		t.Fatalf("String() = %q", got)
	}
}

func TestString_WholeFloatsRenderWithoutExponent(t *testing.T) {
	r := New()
	ctx := NewContext()
	ctx.Set("list_response", map[string]any{"next_offset": 100.0})

	got, err := r.String("{{ list_response.next_offset }}", ctx)
	if err != nil {
		t.Fatalf("String() error = %v", err)
	}
	if got != "100" {
		t.Fatalf("String() = %q, want 100", got)
	}
}

func TestString_PropagatesEvalError(t *testing.T) {
	r := New()
	ctx := NewContext()

	if _, err := r.String("{{ 1 +* 2 }}", ctx); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"zero float", 0.0, false},
		{"float", 0.5, true},
		{"empty slice", []any{}, false},
		{"slice", []any{1}, true},
		{"empty map", map[string]any{}, false},
		{"map", map[string]any{"a": 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.value); got != tt.want {
				t.Fatalf("Truthy(%#v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestContext_ClearRemovesKeys(t *testing.T) {
	ctx := NewContext()
	ctx.Set("response", map[string]any{"token": "abc"})
	ctx.Set("response_headers", map[string]any{})
	ctx.Set("inputs", map[string]any{})

	ctx.Clear("response", "response_headers")

	if ctx.Has("response") || ctx.Has("response_headers") {
		t.Fatal("expected ephemeral keys to be cleared")
	}
	if !ctx.Has("inputs") {
		t.Fatal("expected unrelated key to survive")
	}
}
