package abi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxNameLength is the maximum number of characters in a Name.
const MaxNameLength = 13

const nameCharmap = ".12345abcdefghijklmnopqrstuvwxyz"

// Name is an Antelope account or action name packed into 64 bits.
//
// The first 12 characters use 5 bits each from the high end; the 13th
// character uses the low 4 bits and is restricted to ".12345abcdefghij".
type Name uint64

// ParseName parses s into a Name.
//
// Trailing dots are insignificant, so "eosio." and "eosio" are the same name.
func ParseName(s string) (Name, error) {
	return parseName(s, true)
}

// ParseNameLenient is like ParseName but accepts any 13th character and
// keeps only its low 4 bits, the way Antelope clients encode such names.
// "ghost.account" therefore encodes as "ghost.accound".
func ParseNameLenient(s string) (Name, error) {
	return parseName(s, false)
}

func parseName(s string, strict bool) (Name, error) {
	if len(s) > MaxNameLength {
		return 0, &NameError{Input: s, Reason: "longer than 13 characters"}
	}

	var v uint64
	for i := 0; i < len(s); i++ {
		sym, ok := charToSymbol(s[i])
		if !ok {
			return 0, &NameError{Input: s, Reason: fmt.Sprintf("invalid character %q", s[i])}
		}
		if i < MaxNameLength-1 {
			v |= uint64(sym&0x1f) << (64 - 5*(i+1))
			continue
		}
		if strict && sym > 0x0f {
			return 0, &NameError{Input: s, Reason: "13th character must be one of .12345abcdefghij"}
		}
		v |= uint64(sym & 0x0f)
	}
	return Name(v), nil
}

// MustParseName is like ParseName but panics on error.
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func charToSymbol(c byte) (byte, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return c - 'a' + 6, true
	case c >= '1' && c <= '5':
		return c - '1' + 1, true
	case c == '.':
		return 0, true
	default:
		return 0, false
	}
}

// String returns the canonical string form.
func (n Name) String() string {
	var buf [MaxNameLength]byte
	tmp := uint64(n)
	for i := 0; i < MaxNameLength; i++ {
		if i == 0 {
			buf[MaxNameLength-1-i] = nameCharmap[tmp&0x0f]
			tmp >>= 4
			continue
		}
		buf[MaxNameLength-1-i] = nameCharmap[tmp&0x1f]
		tmp >>= 5
	}
	return strings.TrimRight(string(buf[:]), ".")
}

// IsEmpty reports whether n is the empty name.
func (n Name) IsEmpty() bool {
	return n == 0
}

// MarshalJSON encodes the name as a JSON string.
func (n Name) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON accepts a JSON string or an unsigned integer.
func (n *Name) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseName(s)
		if err != nil {
			return err
		}
		*n = parsed
		return nil
	}

	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return &NameError{Input: string(data), Reason: "not a string or unsigned integer"}
	}
	*n = Name(v)
	return nil
}
