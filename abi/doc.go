// Package abi provides the ABI schema value cached by package cache.
//
// An ABI describes the interface of an account on an Antelope-style chain:
// type aliases, structs, actions, tables, ricardian clauses, variants,
// action results and a version string. Values are built with From, which
// accepts JSON (validated against an embedded JSON schema), the binary
// abi_def serialization returned by get_raw_abi, or an existing *ABI.
//
// ABI values are immutable by convention. Merge and MergeUnique return new
// values and never modify their receivers.
package abi
