package abi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// From builds an ABI from a supported input:
//   - *ABI or ABI: copied and validated
//   - string or json.RawMessage: ABI JSON
//   - []byte: ABI JSON when it starts with '{', binary abi_def otherwise
//   - map[string]any: an ABI JSON object
//
// Malformed input returns a *ValidationError.
func From(input any) (*ABI, error) {
	switch v := input.(type) {
	case nil:
		return nil, &ValidationError{Reason: "input is nil"}
	case *ABI:
		if v == nil {
			return nil, &ValidationError{Reason: "input is nil"}
		}
		return fromValue(v)
	case ABI:
		return fromValue(&v)
	case string:
		return FromJSON([]byte(v))
	case json.RawMessage:
		return FromJSON(v)
	case []byte:
		if looksLikeJSON(v) {
			return FromJSON(v)
		}
		return Decode(v)
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, &ValidationError{Reason: "cannot encode map", Cause: err}
		}
		return FromJSON(data)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported input type %T", input)}
	}
}

// FromJSON parses and validates an ABI JSON document.
func FromJSON(data []byte) (*ABI, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("abi: load json schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &ValidationError{Reason: "malformed json", Cause: err}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		reasons := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			reasons = append(reasons, re.String())
		}
		return nil, &ValidationError{
			Field:  first.Field(),
			Reason: strings.Join(reasons, "; "),
		}
	}

	var a ABI
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &ValidationError{Reason: "cannot decode json", Cause: err}
	}
	if a.Version == "" {
		a.Version = DefaultVersion
	}
	return &a, nil
}

func fromValue(v *ABI) (*ABI, error) {
	a := v.Clone()
	if a.Version == "" {
		a.Version = DefaultVersion
	}
	if _, err := ParseVersion(a.Version); err != nil {
		return nil, &ValidationError{Field: "version", Reason: err.Error(), Cause: err}
	}
	if err := a.validateNames(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ABI) validateNames() error {
	for i, t := range a.Types {
		if t.NewTypeName == "" || t.Type == "" {
			return &ValidationError{Field: fmt.Sprintf("types.%d", i), Reason: "new_type_name and type are required"}
		}
	}
	for i, s := range a.Structs {
		if s.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("structs.%d.name", i), Reason: "name is required"}
		}
	}
	for i, act := range a.Actions {
		if act.Type == "" {
			return &ValidationError{Field: fmt.Sprintf("actions.%d.type", i), Reason: "type is required"}
		}
	}
	for i, t := range a.Tables {
		if t.Type == "" {
			return &ValidationError{Field: fmt.Sprintf("tables.%d.type", i), Reason: "type is required"}
		}
	}
	return nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
