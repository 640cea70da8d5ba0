package abi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var errShortBuffer = errors.New("unexpected end of data")

// Decode parses the binary abi_def serialization returned by get_raw_abi.
//
// The variants and action_results sections are binary extensions: they are
// read only when bytes remain.
func Decode(data []byte) (*ABI, error) {
	d := &decoder{buf: data}
	a, err := d.abi()
	if err != nil {
		return nil, &ValidationError{Field: d.section, Reason: err.Error(), Cause: err}
	}
	if d.remaining() > 0 {
		return nil, &ValidationError{Reason: fmt.Sprintf("%d trailing bytes", d.remaining())}
	}
	if _, err := ParseVersion(a.Version); err != nil {
		return nil, &ValidationError{Field: "version", Reason: err.Error(), Cause: err}
	}
	return a, nil
}

type decoder struct {
	buf     []byte
	pos     int
	section string
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.pos
}

func (d *decoder) varuint32() (uint32, error) {
	var v uint32
	for shift := uint(0); shift < 35; shift += 7 {
		if d.pos >= len(d.buf) {
			return 0, errShortBuffer
		}
		b := d.buf[d.pos]
		d.pos++
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errors.New("varuint32 overflow")
}

func (d *decoder) bytes() ([]byte, error) {
	n, err := d.varuint32()
	if err != nil {
		return nil, err
	}
	if int(n) > d.remaining() {
		return nil, errShortBuffer
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return out, nil
}

func (d *decoder) string() (string, error) {
	b, err := d.bytes()
	return string(b), err
}

func (d *decoder) uint64() (uint64, error) {
	if d.remaining() < 8 {
		return 0, errShortBuffer
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) uint16() (uint16, error) {
	if d.remaining() < 2 {
		return 0, errShortBuffer
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) name() (Name, error) {
	v, err := d.uint64()
	return Name(v), err
}

func (d *decoder) strings() ([]string, error) {
	return decodeList(d, (*decoder).string)
}

// decodeList reads a varuint32 count followed by that many elements.
func decodeList[T any](d *decoder, elem func(*decoder) (T, error)) ([]T, error) {
	n, err := d.varuint32()
	if err != nil {
		return nil, err
	}
	// every element takes at least one byte
	if int(n) > d.remaining() {
		return nil, errShortBuffer
	}
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := elem(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) abi() (*ABI, error) {
	a := &ABI{}
	var err error

	d.section = "version"
	if a.Version, err = d.string(); err != nil {
		return nil, err
	}
	d.section = "types"
	if a.Types, err = decodeList(d, decodeTypeDef); err != nil {
		return nil, err
	}
	d.section = "structs"
	if a.Structs, err = decodeList(d, decodeStruct); err != nil {
		return nil, err
	}
	d.section = "actions"
	if a.Actions, err = decodeList(d, decodeAction); err != nil {
		return nil, err
	}
	d.section = "tables"
	if a.Tables, err = decodeList(d, decodeTable); err != nil {
		return nil, err
	}
	d.section = "ricardian_clauses"
	if a.RicardianClauses, err = decodeList(d, decodeClause); err != nil {
		return nil, err
	}
	d.section = "error_messages"
	if a.ErrorMessages, err = decodeList(d, decodeErrorMessage); err != nil {
		return nil, err
	}
	d.section = "abi_extensions"
	if a.Extensions, err = decodeList(d, decodeExtension); err != nil {
		return nil, err
	}
	if d.remaining() == 0 {
		return a, nil
	}
	d.section = "variants"
	if a.Variants, err = decodeList(d, decodeVariant); err != nil {
		return nil, err
	}
	if d.remaining() == 0 {
		return a, nil
	}
	d.section = "action_results"
	if a.ActionResults, err = decodeList(d, decodeActionResult); err != nil {
		return nil, err
	}
	d.section = ""
	return a, nil
}

func decodeTypeDef(d *decoder) (TypeDef, error) {
	var t TypeDef
	var err error
	if t.NewTypeName, err = d.string(); err != nil {
		return t, err
	}
	t.Type, err = d.string()
	return t, err
}

func decodeField(d *decoder) (Field, error) {
	var f Field
	var err error
	if f.Name, err = d.string(); err != nil {
		return f, err
	}
	f.Type, err = d.string()
	return f, err
}

func decodeStruct(d *decoder) (Struct, error) {
	var s Struct
	var err error
	if s.Name, err = d.string(); err != nil {
		return s, err
	}
	if s.Base, err = d.string(); err != nil {
		return s, err
	}
	s.Fields, err = decodeList(d, decodeField)
	return s, err
}

func decodeAction(d *decoder) (Action, error) {
	var a Action
	var err error
	if a.Name, err = d.name(); err != nil {
		return a, err
	}
	if a.Type, err = d.string(); err != nil {
		return a, err
	}
	a.RicardianContract, err = d.string()
	return a, err
}

func decodeTable(d *decoder) (Table, error) {
	var t Table
	var err error
	if t.Name, err = d.name(); err != nil {
		return t, err
	}
	if t.IndexType, err = d.string(); err != nil {
		return t, err
	}
	if t.KeyNames, err = d.strings(); err != nil {
		return t, err
	}
	if t.KeyTypes, err = d.strings(); err != nil {
		return t, err
	}
	t.Type, err = d.string()
	return t, err
}

func decodeClause(d *decoder) (Clause, error) {
	var c Clause
	var err error
	if c.ID, err = d.string(); err != nil {
		return c, err
	}
	c.Body, err = d.string()
	return c, err
}

func decodeErrorMessage(d *decoder) (ErrorMessage, error) {
	var m ErrorMessage
	var err error
	if m.Code, err = d.uint64(); err != nil {
		return m, err
	}
	m.Message, err = d.string()
	return m, err
}

func decodeExtension(d *decoder) (Extension, error) {
	var e Extension
	var err error
	if e.Tag, err = d.uint16(); err != nil {
		return e, err
	}
	e.Value, err = d.bytes()
	return e, err
}

func decodeVariant(d *decoder) (Variant, error) {
	var v Variant
	var err error
	if v.Name, err = d.string(); err != nil {
		return v, err
	}
	v.Types, err = d.strings()
	return v, err
}

func decodeActionResult(d *decoder) (ActionResult, error) {
	var r ActionResult
	var err error
	if r.Name, err = d.name(); err != nil {
		return r, err
	}
	r.ResultType, err = d.string()
	return r, err
}

// MarshalBinary encodes a in the abi_def binary serialization.
func (a *ABI) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	e.string(a.Version)
	encodeList(e, a.Types, func(e *encoder, t TypeDef) {
		e.string(t.NewTypeName)
		e.string(t.Type)
	})
	encodeList(e, a.Structs, func(e *encoder, s Struct) {
		e.string(s.Name)
		e.string(s.Base)
		encodeList(e, s.Fields, func(e *encoder, f Field) {
			e.string(f.Name)
			e.string(f.Type)
		})
	})
	encodeList(e, a.Actions, func(e *encoder, act Action) {
		e.uint64(uint64(act.Name))
		e.string(act.Type)
		e.string(act.RicardianContract)
	})
	encodeList(e, a.Tables, func(e *encoder, t Table) {
		e.uint64(uint64(t.Name))
		e.string(t.IndexType)
		encodeList(e, t.KeyNames, (*encoder).string)
		encodeList(e, t.KeyTypes, (*encoder).string)
		e.string(t.Type)
	})
	encodeList(e, a.RicardianClauses, func(e *encoder, c Clause) {
		e.string(c.ID)
		e.string(c.Body)
	})
	encodeList(e, a.ErrorMessages, func(e *encoder, m ErrorMessage) {
		e.uint64(m.Code)
		e.string(m.Message)
	})
	encodeList(e, a.Extensions, func(e *encoder, x Extension) {
		e.uint16(x.Tag)
		e.bytes(x.Value)
	})
	if a.hasVariantsSection() {
		encodeList(e, a.Variants, func(e *encoder, v Variant) {
			e.string(v.Name)
			encodeList(e, v.Types, (*encoder).string)
		})
	}
	if a.hasActionResultsSection() {
		encodeList(e, a.ActionResults, func(e *encoder, r ActionResult) {
			e.uint64(uint64(r.Name))
			e.string(r.ResultType)
		})
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) varuint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			e.buf.WriteByte(b)
			return
		}
		e.buf.WriteByte(b | 0x80)
	}
}

func (e *encoder) bytes(b []byte) {
	e.varuint32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *encoder) string(s string) {
	e.varuint32(uint32(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) uint64(v uint64) {
	e.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (e *encoder) uint16(v uint16) {
	e.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func encodeList[T any](e *encoder, items []T, elem func(*encoder, T)) {
	e.varuint32(uint32(len(items)))
	for _, item := range items {
		elem(e, item)
	}
}
