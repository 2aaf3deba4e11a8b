// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package wasmfront is spec.md §4.6's WASM front-end sketch. spec.md's own
// Non-goals list "the WASM front-end decoder" as an external collaborator
// specified only where it meets the core (§1 "OUT OF SCOPE"); this package
// is that sketch, not a spec-complete WASM implementation. It decodes the
// handful of binary-format sections a straight-line function body needs
// (type, import, function, code) and supports a deliberately small
// instruction subset: constants, locals, the i32/i64 arithmetic and
// comparison family, and `call` — enough to demonstrate tier 1+2 reuse and
// the host-hook bridge described below. Structured control flow (block,
// loop, if/else, br/br_if/br_table) is not supported; Decode does not
// inspect function bodies, and Lower rejects such an opcode with an error
// rather than silently miscompiling.
package wasmfront

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var magic = [4]byte{0x00, 0x61, 0x73, 0x6d}

// ValType is a WASM value type, restricted to the four MVP numeric types.
type ValType byte

const (
	ValI32 ValType = 0x7f
	ValI64 ValType = 0x7e
	ValF32 ValType = 0x7d
	ValF64 ValType = 0x7c
)

// FuncType is a WASM function signature (params -> results).
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a host-provided function this module calls; Module/Name
// together select one of Host's fixed hooks (see hooks.go).
type Import struct {
	Module string
	Name   string
	Type   FuncType
}

// LocalDecl is one run-length-encoded group of a function's declared locals.
type LocalDecl struct {
	Count uint32
	Type  ValType
}

// Func is one module-defined function: signature, declared locals, and its
// raw (undecoded) instruction bytes.
type Func struct {
	Type   FuncType
	Locals []LocalDecl
	Body   []byte
}

// Module is the decoded result: the pieces Lower needs and nothing else
// (globals, tables, memories, data/element segments and exports are outside
// this sketch's scope).
type Module struct {
	Imports []Import
	Funcs   []Func
}

// Decode parses the binary sections of a WASM module, validating only the
// header and section framing — instruction-level validation happens lazily
// while Lower walks a function body.
func Decode(code []byte) (*Module, error) {
	if len(code) < 8 || [4]byte(code[:4]) != magic {
		return nil, errors.New("wasmfront: not a WASM module (bad magic)")
	}
	if binary.LittleEndian.Uint32(code[4:8]) != 1 {
		return nil, errors.New("wasmfront: unsupported WASM version")
	}
	r := &reader{buf: code[8:]}

	var types []FuncType
	m := &Module{}
	var funcTypeIdx []uint32

	for r.remaining() > 0 {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.varU32()
		if err != nil {
			return nil, errors.Wrap(err, "wasmfront: section size")
		}
		section, err := r.take(int(size))
		if err != nil {
			return nil, errors.Wrap(err, "wasmfront: section body")
		}
		sr := &reader{buf: section}
		switch id {
		case 1: // type
			types, err = decodeTypeSection(sr)
		case 2: // import
			m.Imports, err = decodeImportSection(sr, types)
		case 3: // function
			funcTypeIdx, err = decodeFunctionSection(sr)
		case 10: // code
			err = decodeCodeSection(sr, types, funcTypeIdx, m)
		default:
			// Custom/table/memory/global/export/start/element/data sections
			// carry nothing Lower needs; skip them.
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeTypeSection(r *reader) ([]FuncType, error) {
	n, err := r.varU32()
	if err != nil {
		return nil, err
	}
	out := make([]FuncType, 0, n)
	for i := uint32(0); i < n; i++ {
		form, err := r.byte()
		if err != nil {
			return nil, err
		}
		if form != 0x60 {
			return nil, errors.Errorf("wasmfront: unsupported type form 0x%x", form)
		}
		params, err := r.valTypeVec()
		if err != nil {
			return nil, err
		}
		results, err := r.valTypeVec()
		if err != nil {
			return nil, err
		}
		out = append(out, FuncType{Params: params, Results: results})
	}
	return out, nil
}

func decodeImportSection(r *reader, types []FuncType) ([]Import, error) {
	n, err := r.varU32()
	if err != nil {
		return nil, err
	}
	out := make([]Import, 0, n)
	for i := uint32(0); i < n; i++ {
		mod, err := r.name()
		if err != nil {
			return nil, err
		}
		field, err := r.name()
		if err != nil {
			return nil, err
		}
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		if kind != 0x00 { // func import
			return nil, errors.New("wasmfront: only function imports are supported by this sketch")
		}
		typeIdx, err := r.varU32()
		if err != nil {
			return nil, err
		}
		if int(typeIdx) >= len(types) {
			return nil, errors.Errorf("wasmfront: import type index %d out of range", typeIdx)
		}
		out = append(out, Import{Module: mod, Name: field, Type: types[typeIdx]})
	}
	return out, nil
}

func decodeFunctionSection(r *reader) ([]uint32, error) {
	n, err := r.varU32()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		idx, err := r.varU32()
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

func decodeCodeSection(r *reader, types []FuncType, funcTypeIdx []uint32, m *Module) error {
	n, err := r.varU32()
	if err != nil {
		return err
	}
	if int(n) != len(funcTypeIdx) {
		return errors.Errorf("wasmfront: code section has %d entries, function section declared %d", n, len(funcTypeIdx))
	}
	for i := uint32(0); i < n; i++ {
		bodySize, err := r.varU32()
		if err != nil {
			return err
		}
		body, err := r.take(int(bodySize))
		if err != nil {
			return err
		}
		br := &reader{buf: body}
		localGroups, err := br.varU32()
		if err != nil {
			return err
		}
		var locals []LocalDecl
		for g := uint32(0); g < localGroups; g++ {
			count, err := br.varU32()
			if err != nil {
				return err
			}
			t, err := br.byte()
			if err != nil {
				return err
			}
			locals = append(locals, LocalDecl{Count: count, Type: ValType(t)})
		}
		m.Funcs = append(m.Funcs, Func{
			Type:   types[funcTypeIdx[i]],
			Locals: locals,
			Body:   body[br.pos:],
		})
	}
	return nil
}

// reader is a cursor over a byte slice with the LEB128/name helpers the
// section decoders above share.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errors.New("wasmfront: unexpected end of input")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errors.New("wasmfront: section body overruns input")
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// varU32 reads an unsigned LEB128 value.
func (r *reader) varU32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, errors.New("wasmfront: LEB128 u32 overflow")
		}
	}
}

// varI64 reads a signed LEB128 value, sign-extended to 64 bits.
func (r *reader) varI64() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.byte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, errors.New("wasmfront: LEB128 i64 overflow")
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func (r *reader) name() (string, error) {
	n, err := r.varU32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) valTypeVec() ([]ValType, error) {
	n, err := r.varU32()
	if err != nil {
		return nil, err
	}
	out := make([]ValType, n)
	for i := range out {
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		out[i] = ValType(b)
	}
	return out, nil
}
