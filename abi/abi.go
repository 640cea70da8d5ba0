package abi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/samber/lo"
)

// TypeDef declares a type alias.
type TypeDef struct {
	NewTypeName string `json:"new_type_name"`
	Type        string `json:"type"`
}

// Field is a single struct field.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Struct is a struct definition. Base may be empty.
type Struct struct {
	Name   string  `json:"name"`
	Base   string  `json:"base"`
	Fields []Field `json:"fields"`
}

// Action binds an action name to the struct type of its payload.
type Action struct {
	Name              Name   `json:"name"`
	Type              string `json:"type"`
	RicardianContract string `json:"ricardian_contract"`
}

// Table describes a multi-index table.
type Table struct {
	Name      Name     `json:"name"`
	IndexType string   `json:"index_type"`
	KeyNames  []string `json:"key_names"`
	KeyTypes  []string `json:"key_types"`
	Type      string   `json:"type"`
}

// Clause is a ricardian clause.
type Clause struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// ErrorMessage maps a contract error code to a message.
type ErrorMessage struct {
	Code    uint64 `json:"error_code"`
	Message string `json:"error_msg"`
}

// Extension is an opaque ABI extension. Value is hex encoded in JSON.
type Extension struct {
	Tag   uint16
	Value []byte
}

type extensionJSON struct {
	Tag   uint16 `json:"tag"`
	Value string `json:"value"`
}

// MarshalJSON encodes the extension as {"tag":N,"value":"hex"}.
func (e Extension) MarshalJSON() ([]byte, error) {
	return json.Marshal(extensionJSON{Tag: e.Tag, Value: hex.EncodeToString(e.Value)})
}

// UnmarshalJSON decodes {"tag":N,"value":"hex"}.
func (e *Extension) UnmarshalJSON(data []byte) error {
	var raw extensionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value, err := hex.DecodeString(raw.Value)
	if err != nil {
		return fmt.Errorf("abi extension %d: %w", raw.Tag, err)
	}
	e.Tag = raw.Tag
	e.Value = value
	return nil
}

// Variant is a tagged union over Types.
type Variant struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// ActionResult declares the return type of an action.
type ActionResult struct {
	Name       Name   `json:"name"`
	ResultType string `json:"result_type"`
}

// ABI is a parsed interface description.
//
// Contract:
// - Immutability: values are shared between cache readers and must not be modified.
// - Equality: structural, see Equal.
type ABI struct {
	Version          string         `json:"version"`
	Types            []TypeDef      `json:"types"`
	Structs          []Struct       `json:"structs"`
	Actions          []Action       `json:"actions"`
	Tables           []Table        `json:"tables"`
	RicardianClauses []Clause       `json:"ricardian_clauses"`
	ErrorMessages    []ErrorMessage `json:"error_messages"`
	Extensions       []Extension    `json:"abi_extensions"`
	Variants         []Variant      `json:"variants"`
	ActionResults    []ActionResult `json:"action_results"`
}

// abiJSON has no methods; it breaks the MarshalJSON recursion and keeps
// go-cmp from calling (*ABI).Equal.
type abiJSON ABI

// MarshalJSON encodes the ABI with empty lists instead of nulls, matching nodeos output.
func (a ABI) MarshalJSON() ([]byte, error) {
	out := abiJSON{
		Version:          a.Version,
		Types:            orEmpty(a.Types),
		Structs:          orEmpty(a.Structs),
		Actions:          orEmpty(a.Actions),
		Tables:           orEmpty(a.Tables),
		RicardianClauses: orEmpty(a.RicardianClauses),
		ErrorMessages:    orEmpty(a.ErrorMessages),
		Extensions:       orEmpty(a.Extensions),
		Variants:         orEmpty(a.Variants),
		ActionResults:    orEmpty(a.ActionResults),
	}
	for i := range out.Structs {
		out.Structs[i].Fields = orEmpty(out.Structs[i].Fields)
	}
	return json.Marshal(out)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

// Equal reports whether a and b are structurally equal. Nil and empty lists compare equal.
func (a *ABI) Equal(b *ABI) bool {
	if a == nil || b == nil {
		return a == b
	}
	return cmp.Equal(abiJSON(*a), abiJSON(*b), cmpopts.EquateEmpty())
}

// Diff returns a human readable difference between a and b, or "" when equal.
func (a *ABI) Diff(b *ABI) string {
	if a == nil || b == nil {
		return cmp.Diff(a == nil, b == nil)
	}
	return cmp.Diff(abiJSON(*a), abiJSON(*b), cmpopts.EquateEmpty())
}

// Clone returns a deep copy of a.
func (a *ABI) Clone() *ABI {
	if a == nil {
		return nil
	}
	return &ABI{
		Version: a.Version,
		Types:   slices.Clone(a.Types),
		Structs: lo.Map(a.Structs, func(s Struct, _ int) Struct {
			s.Fields = slices.Clone(s.Fields)
			return s
		}),
		Actions: slices.Clone(a.Actions),
		Tables: lo.Map(a.Tables, func(t Table, _ int) Table {
			t.KeyNames = slices.Clone(t.KeyNames)
			t.KeyTypes = slices.Clone(t.KeyTypes)
			return t
		}),
		RicardianClauses: slices.Clone(a.RicardianClauses),
		ErrorMessages:    slices.Clone(a.ErrorMessages),
		Extensions: lo.Map(a.Extensions, func(e Extension, _ int) Extension {
			e.Value = slices.Clone(e.Value)
			return e
		}),
		Variants: lo.Map(a.Variants, func(v Variant, _ int) Variant {
			v.Types = slices.Clone(v.Types)
			return v
		}),
		ActionResults: slices.Clone(a.ActionResults),
	}
}

// Action returns the action definition for name.
func (a *ABI) Action(name Name) (Action, bool) {
	return lo.Find(a.Actions, func(act Action) bool { return act.Name == name })
}

// Struct returns the struct definition for name.
func (a *ABI) Struct(name string) (Struct, bool) {
	return lo.Find(a.Structs, func(s Struct) bool { return s.Name == name })
}

// Table returns the table definition for name.
func (a *ABI) Table(name Name) (Table, bool) {
	return lo.Find(a.Tables, func(t Table) bool { return t.Name == name })
}

// ResolveType follows type aliases until a non-alias type is reached.
// Alias cycles stop at the first repeated name.
func (a *ABI) ResolveType(name string) string {
	seen := make(map[string]bool)
	for !seen[name] {
		seen[name] = true
		def, ok := lo.Find(a.Types, func(t TypeDef) bool { return t.NewTypeName == name })
		if !ok {
			return name
		}
		name = def.Type
	}
	return name
}
