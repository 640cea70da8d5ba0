package abi

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFrom_Inputs(t *testing.T) {
	token := loadTokenABI(t)
	raw, err := json.Marshal(token)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	bin, err := token.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary error = %v", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		t.Fatalf("Unmarshal to map error = %v", err)
	}

	tests := []struct {
		name  string
		input any
	}{
		{"pointer", token},
		{"value", *token},
		{"string", string(raw)},
		{"raw message", json.RawMessage(raw)},
		{"json bytes", raw},
		{"binary bytes", bin},
		{"map", asMap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.input)
			if err != nil {
				t.Fatalf("From error = %v", err)
			}
			if !got.Equal(token) {
				t.Errorf("From result differs:\n%s", token.Diff(got))
			}
		})
	}
}

func TestFrom_CopiesValues(t *testing.T) {
	token := loadTokenABI(t)
	got, err := From(token)
	if err != nil {
		t.Fatalf("From error = %v", err)
	}
	if got == token {
		t.Fatal("From should not return the caller's pointer")
	}
	token.Structs[0].Name = "mutated"
	if got.Structs[0].Name == "mutated" {
		t.Error("From result shares memory with its input")
	}
}

func TestFrom_DefaultVersion(t *testing.T) {
	got, err := From(`{"structs":[{"name":"foo","base":"","fields":[]}]}`)
	if err != nil {
		t.Fatalf("From error = %v", err)
	}
	if got.Version != DefaultVersion {
		t.Errorf("Version = %q, want %q", got.Version, DefaultVersion)
	}

	got, err = From(&ABI{})
	if err != nil {
		t.Fatalf("From(&ABI{}) error = %v", err)
	}
	if got.Version != DefaultVersion {
		t.Errorf("Version = %q, want %q", got.Version, DefaultVersion)
	}
}

func TestFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"nil pointer", (*ABI)(nil)},
		{"unsupported type", 42},
		{"malformed json", "{"},
		{"not an object", `["structs"]`},
		{"bad version", `{"version":"1.2"}`},
		{"structs not a list", `{"structs":"transfer"}`},
		{"action without type", `{"actions":[{"name":"transfer"}]}`},
		{"bad action name", `{"actions":[{"name":"Transfer","type":"transfer"}]}`},
		{"bad struct value", &ABI{Structs: []Struct{{Name: ""}}}},
		{"bad version value", &ABI{Version: "eosio::abi/x"}},
		{"garbage binary", []byte{0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.input)
			if err == nil {
				t.Fatalf("From should fail, got %+v", got)
			}
			if !IsValidationError(err) {
				t.Errorf("error should be a *ValidationError, got %T: %v", err, err)
			}
			if !errors.Is(err, ErrInvalidABI) {
				t.Errorf("error should match ErrInvalidABI: %v", err)
			}
		})
	}
}

func TestFromJSON_ReportsField(t *testing.T) {
	_, err := FromJSON([]byte(`{"tables":[{"name":"accounts"}]}`))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if ve.Field == "" {
		t.Errorf("ValidationError.Field should name the offending field: %+v", ve)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "version", Reason: "bad"}
	if got := err.Error(); got != "abi: invalid abi: version: bad" {
		t.Errorf("Error() = %q", got)
	}
	err = &ValidationError{Reason: "input is nil"}
	if got := err.Error(); got != "abi: invalid abi: input is nil" {
		t.Errorf("Error() = %q", got)
	}
}
