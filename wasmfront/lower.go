// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wasmfront

import (
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/ir"
	evmtier "github.com/vmlayer/engine/ir/evm"
)

// EntryFunction names the lowered Module's entry point, matching the
// convention evmlower and interp already use.
const EntryFunction = "main"

// Lower translates mod's first local function into a single-function
// ir.Module (spec.md §4.6: "produces one SSA function per local WASM
// function using tier 1+2 of the builder"). The IR substrate has no
// function-call primitive of its own (tier 2's Builder never exposes one —
// see ir/builder.go), so a `call` to another local function cannot be
// lowered; only calls to the host-hook imports (table below) are supported.
// A module whose entry function calls another local function fails to
// lower rather than silently dropping the call.
func Lower(mod *Module) (*ir.Module, error) {
	if len(mod.Funcs) == 0 {
		return nil, errors.New("wasmfront: module declares no functions")
	}
	b := ir.NewFuncBuilder(EntryFunction, nil)
	lw := &funcLowerer{
		mod: mod,
		b:   b,
		e:   evmtier.New(b),
	}
	if err := lw.lower(mod.Funcs[0]); err != nil {
		return nil, errors.Wrap(err, "wasmfront: lowering entry function")
	}
	return &ir.Module{Name: "wasm_program", Functions: []*ir.Function{b.Function()}}, nil
}

func valType(t ValType) ir.Type {
	switch t {
	case ValI32:
		return ir.I32
	case ValI64:
		return ir.I64
	case ValF32:
		return ir.F32
	case ValF64:
		return ir.F64
	default:
		return ir.I64
	}
}

// funcLowerer holds the WASM operand-stack and locals state threaded
// through one function body's decode.
type funcLowerer struct {
	mod    *Module
	b      *ir.FuncBuilder
	e      *evmtier.Builder
	stack  []ir.Value
	locals []ir.Value
}

func (lw *funcLowerer) push(v ir.Value) { lw.stack = append(lw.stack, v) }

func (lw *funcLowerer) pop() (ir.Value, error) {
	if len(lw.stack) == 0 {
		return ir.Value{}, errors.New("wasmfront: operand stack underflow")
	}
	v := lw.stack[len(lw.stack)-1]
	lw.stack = lw.stack[:len(lw.stack)-1]
	return v, nil
}

// lower decodes fn.Body as a flat instruction stream. Structured control
// flow is not decoded (see the package doc): the body is expected to run
// straight through to its closing `end`.
func (lw *funcLowerer) lower(fn Func) error {
	lw.locals = make([]ir.Value, 0, len(fn.Type.Params)+len(fn.Locals))
	for _, p := range fn.Type.Params {
		lw.locals = append(lw.locals, lw.zero(valType(p)))
	}
	for _, group := range fn.Locals {
		for i := uint32(0); i < group.Count; i++ {
			lw.locals = append(lw.locals, lw.zero(valType(group.Type)))
		}
	}

	r := &reader{buf: fn.Body}
	for r.remaining() > 0 {
		op, err := r.byte()
		if err != nil {
			return err
		}
		if op == 0x0b { // end
			break
		}
		if err := lw.instruction(op, r); err != nil {
			return err
		}
	}

	results := make([]ir.Value, 0, len(fn.Type.Results))
	for range fn.Type.Results {
		v, err := lw.pop()
		if err != nil {
			return err
		}
		results = append(results, v)
	}
	// WASM results are pushed in the order consumed; reverse to restore the
	// declared left-to-right result order.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	lw.b.Return(results...)
	return nil
}

func (lw *funcLowerer) zero(t ir.Type) ir.Value {
	if t.Kind == ir.KindFloat {
		return lw.b.ConstFloat(t, 0)
	}
	return lw.b.ConstUint64(t, 0)
}

func (lw *funcLowerer) instruction(op byte, r *reader) error {
	switch op {
	case 0x00: // unreachable
		lw.b.Unreachable()
	case 0x01: // nop
		lw.b.Nop()
	case 0x20: // local.get
		idx, err := r.varU32()
		if err != nil {
			return err
		}
		if int(idx) >= len(lw.locals) {
			return errors.Errorf("wasmfront: local.get index %d out of range", idx)
		}
		lw.push(lw.locals[idx])
	case 0x21: // local.set
		idx, err := r.varU32()
		if err != nil {
			return err
		}
		v, err := lw.pop()
		if err != nil {
			return err
		}
		if int(idx) >= len(lw.locals) {
			return errors.Errorf("wasmfront: local.set index %d out of range", idx)
		}
		lw.locals[idx] = v
	case 0x22: // local.tee
		idx, err := r.varU32()
		if err != nil {
			return err
		}
		v, err := lw.pop()
		if err != nil {
			return err
		}
		if int(idx) >= len(lw.locals) {
			return errors.Errorf("wasmfront: local.tee index %d out of range", idx)
		}
		lw.locals[idx] = v
		lw.push(v)
	case 0x41: // i32.const
		n, err := r.varI64()
		if err != nil {
			return err
		}
		lw.push(lw.b.ConstUint64(ir.I32, uint64(uint32(n))))
	case 0x42: // i64.const
		n, err := r.varI64()
		if err != nil {
			return err
		}
		lw.push(lw.b.ConstUint64(ir.I64, uint64(n)))
	case 0x46, 0x51: // i32.eq, i64.eq
		return lw.binCmp(lw.b.ICmpEq)
	case 0x47, 0x52: // i32.ne, i64.ne
		return lw.binCmp(lw.b.ICmpNe)
	case 0x48, 0x53: // i32.lt_s, i64.lt_s
		return lw.binCmp(lw.b.ICmpSlt)
	case 0x4a, 0x55: // i32.gt_s, i64.gt_s
		return lw.binCmp(lw.b.ICmpSgt)
	case 0x6a, 0x7c: // i32.add, i64.add
		return lw.bin(lw.b.IAdd)
	case 0x6b, 0x7d: // i32.sub, i64.sub
		return lw.bin(lw.b.ISub)
	case 0x6c, 0x7e: // i32.mul, i64.mul
		return lw.bin(lw.b.IMul)
	case 0x6d, 0x7f: // i32.div_s, i64.div_s
		return lw.bin(lw.b.SDiv)
	case 0x71, 0x83: // i32.and, i64.and
		return lw.bin(lw.b.And)
	case 0x72, 0x84: // i32.or, i64.or
		return lw.bin(lw.b.Or)
	case 0x73, 0x85: // i32.xor, i64.xor
		return lw.bin(lw.b.Xor)
	case 0x1a: // drop
		_, err := lw.pop()
		return err
	case 0x10: // call
		idx, err := r.varU32()
		if err != nil {
			return err
		}
		return lw.call(idx)
	default:
		return errors.Errorf("wasmfront: unsupported opcode 0x%x (this sketch decodes straight-line arithmetic and host calls only)", op)
	}
	return nil
}

func (lw *funcLowerer) bin(f func(a, b ir.Value) ir.Value) error {
	b, err := lw.pop()
	if err != nil {
		return err
	}
	a, err := lw.pop()
	if err != nil {
		return err
	}
	lw.push(f(a, b))
	return nil
}

func (lw *funcLowerer) binCmp(f func(a, b ir.Value) ir.Value) error {
	return lw.bin(f)
}

// call dispatches a WASM `call` to one of the fixed host hooks if idx names
// an import; a call into another local function is out of scope (see the
// package doc) and reported as an error rather than miscompiled.
func (lw *funcLowerer) call(idx uint32) error {
	if int(idx) >= len(lw.mod.Imports) {
		return errors.Errorf("wasmfront: call to local function index %d is unsupported by this sketch (no internal-call IR primitive)", idx)
	}
	imp := lw.mod.Imports[idx]
	hook, ok := hostHooks[imp.Name]
	if !ok {
		return errors.Errorf("wasmfront: import %q.%q has no matching host hook", imp.Module, imp.Name)
	}
	args := make([]ir.Value, len(imp.Type.Params))
	for i := len(args) - 1; i >= 0; i-- {
		v, err := lw.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	results, err := hook(lw.e, args)
	if err != nil {
		return err
	}
	for _, res := range results {
		lw.push(res)
	}
	return nil
}
