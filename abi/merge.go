package abi

import "github.com/samber/lo"

// Merge returns a new ABI whose lists are a's elements followed by other's,
// in order and without deduplication. The version is taken from other.
//
// Merging the same value twice appends its elements twice.
func (a *ABI) Merge(other *ABI) *ABI {
	return &ABI{
		Version:          other.Version,
		Types:            concat(a.Types, other.Types),
		Structs:          concat(a.Structs, other.Structs),
		Actions:          concat(a.Actions, other.Actions),
		Tables:           concat(a.Tables, other.Tables),
		RicardianClauses: concat(a.RicardianClauses, other.RicardianClauses),
		ErrorMessages:    concat(a.ErrorMessages, other.ErrorMessages),
		Extensions:       concat(a.Extensions, other.Extensions),
		Variants:         concat(a.Variants, other.Variants),
		ActionResults:    concat(a.ActionResults, other.ActionResults),
	}
}

// MergeUnique is like Merge but keeps one element per identity (type name,
// struct name, action name, ...). An element from other replaces the
// existing element with the same identity in place.
func (a *ABI) MergeUnique(other *ABI) *ABI {
	return &ABI{
		Version:          other.Version,
		Types:            upsert(a.Types, other.Types, func(t TypeDef) string { return t.NewTypeName }),
		Structs:          upsert(a.Structs, other.Structs, func(s Struct) string { return s.Name }),
		Actions:          upsert(a.Actions, other.Actions, func(act Action) Name { return act.Name }),
		Tables:           upsert(a.Tables, other.Tables, func(t Table) Name { return t.Name }),
		RicardianClauses: upsert(a.RicardianClauses, other.RicardianClauses, func(c Clause) string { return c.ID }),
		ErrorMessages:    upsert(a.ErrorMessages, other.ErrorMessages, func(m ErrorMessage) uint64 { return m.Code }),
		Extensions:       upsert(a.Extensions, other.Extensions, func(e Extension) uint16 { return e.Tag }),
		Variants:         upsert(a.Variants, other.Variants, func(v Variant) string { return v.Name }),
		ActionResults:    upsert(a.ActionResults, other.ActionResults, func(r ActionResult) Name { return r.Name }),
	}
}

func concat[T any](a, b []T) []T {
	return lo.Flatten([][]T{a, b})
}

func upsert[T any, K comparable](a, b []T, key func(T) K) []T {
	out := make([]T, 0, len(a)+len(b))
	index := make(map[K]int, len(a)+len(b))
	for _, item := range concat(a, b) {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}
