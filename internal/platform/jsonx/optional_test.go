package jsonx

import (
	"encoding/json"
	"testing"
)

type storePayload struct {
	Name        string           `json:"name"`
	Description Optional[string] `json:"description"`
	Logo        Optional[string] `json:"logo"`
}

func TestOptionalAbsentField(t *testing.T) {
	var payload storePayload
	if err := json.Unmarshal([]byte(`{"name":"Acme"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if payload.Description.IsSet() {
		t.Fatalf("expected absent description to be unset")
	}
	if got := payload.Description.Or("default"); got != "default" {
		t.Fatalf("expected fallback for absent field, got %q", got)
	}
}

func TestOptionalExplicitNull(t *testing.T) {
	var payload storePayload
	if err := json.Unmarshal([]byte(`{"name":"Acme","logo":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !payload.Logo.IsSet() {
		t.Fatalf("expected explicit null to count as set")
	}
	if !payload.Logo.IsNull() {
		t.Fatalf("expected explicit null to be null")
	}
	if got := payload.Logo.Or("fallback"); got != "" {
		t.Fatalf("expected zero value for explicit null, got %q", got)
	}
}

func TestOptionalPresentValue(t *testing.T) {
	var payload storePayload
	if err := json.Unmarshal([]byte(`{"name":"Acme","description":"tools"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	value, ok := payload.Description.Value()
	if !ok || value != "tools" {
		t.Fatalf("expected present value tools, got %q (ok=%v)", value, ok)
	}
}

func TestOptionalMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(storePayload{
		Name:        "Acme",
		Description: Some("tools"),
		Logo:        Null[string](),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded storePayload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if value, ok := decoded.Description.Value(); !ok || value != "tools" {
		t.Fatalf("expected description to survive round trip, got %q", value)
	}
	if !decoded.Logo.IsNull() {
		t.Fatalf("expected logo null to survive round trip")
	}
}
