package ir

import "fmt"

// Builder is the tier-1 + tier-2 surface of spec.md §4.1: type handles plus
// the generic SSA operations sufficient to express any bytecode-driven
// program. ir/evm's Builder is built on top of this interface — it never
// bypasses it, so every tier-3 op still flows through the same value
// numbering and block-tracking machinery.
type Builder interface {
	// Tier 1 — type methods.
	PointerType() Type
	IntType(width int) Type

	// Tier 2 — constants.
	ConstBool(v bool) Value
	ConstInt(t Type, v []byte) Value // v is v's big-endian encoding, MSB-first
	ConstUint64(t Type, v uint64) Value
	ConstFloat(t Type, bits uint64) Value

	// Tier 2 — shadow-stack helpers.
	StackPush(v Value)
	StackPop(t Type) Value
	StackPeek(t Type) Value
	StackPeekN(t Type, n int) Value
	StackExchange(a, b int)

	// Tier 2 — memory.
	Load(t Type, ptr Value) Value
	Store(ptr, v Value)
	Memcpy(dst, src, length Value)
	MemcpyInline(dst, src Value, length int64)
	GEP(ptr Value, indices ...int64) Value

	// Tier 2 — control flow.
	Br(target BlockID)
	CondBr(cond Value, then, els BlockID)
	ColdBr(cond Value, hot, cold BlockID)
	Switch(v Value, cases []int64, targets []BlockID, def BlockID)
	IndirectBr(target Value, possible []BlockID)
	Return(vs ...Value)

	// Tier 2 — arithmetic and comparison (signed/unsigned variants exist
	// where EVM semantics distinguish them; div/mod by zero yield zero
	// rather than trapping, per spec.md §4.1).
	IAdd(a, b Value) Value
	ISub(a, b Value) Value
	IMul(a, b Value) Value
	UDiv(a, b Value) Value
	SDiv(a, b Value) Value
	UMod(a, b Value) Value
	SMod(a, b Value) Value
	URem(a, b Value) Value
	SRem(a, b Value) Value
	AddMod(a, b, m Value) Value
	MulMod(a, b, m Value) Value
	Exp(base, exponent Value) Value
	SignExtend(byteIdx, v Value) Value

	ICmpEq(a, b Value) Value
	ICmpNe(a, b Value) Value
	ICmpLt(a, b Value) Value
	ICmpGt(a, b Value) Value
	ICmpSlt(a, b Value) Value
	ICmpSgt(a, b Value) Value

	// Tier 2 — bit ops.
	And(a, b Value) Value
	Or(a, b Value) Value
	Xor(a, b Value) Value
	Not(a Value) Value
	ByteExtract(idx, v Value) Value
	Shl(a, shift Value) Value
	Shr(a, shift Value) Value
	Sar(a, shift Value) Value

	// Tier 2 — immediate-form convenience ops.
	IAddImm(a Value, imm int64) Value
	ISubImm(a Value, imm int64) Value
	IMulImm(a Value, imm int64) Value
	ICmpImm(a Value, imm int64) Value

	// Tier 2 — conversion.
	Trunc(t Type, v Value) Value
	Reduce(t Type, v Value) Value

	Unreachable()
	Nop()

	// Block management, shared by every tier built on top of this
	// interface (including ir/evm).
	CreateBlock(name string) BlockID
	SetBlock(id BlockID)
	CurrentBlock() BlockID

	// EmitRaw appends a pre-built Op to the current block and returns its
	// result value, if any. ir/evm uses this to splice in OpEVM payloads
	// without this package needing to know their shape.
	EmitRaw(op Op) (Value, bool)
}

// FuncBuilder builds a single ir.Function, implementing Builder against it.
// It is the only concrete Builder in this repository: EVM lowering and the
// WASM front-end sketch both drive one FuncBuilder per emitted function.
type FuncBuilder struct {
	fn      *Function
	current BlockID
}

// NewFuncBuilder creates a function named name with the given parameter
// types and a single entry block, ready to receive ops.
func NewFuncBuilder(name string, params []Type) *FuncBuilder {
	fn := &Function{Name: name, Params: params}
	b := &FuncBuilder{fn: fn}
	entry := b.CreateBlock("entry")
	fn.Entry = entry
	b.current = entry
	return b
}

// Function returns the function under construction. Safe to call at any
// point; callers typically call it once lowering has emitted a terminator
// in every block.
func (b *FuncBuilder) Function() *Function { return b.fn }

func (b *FuncBuilder) nextValue(t Type) Value {
	v := Value{ID: b.fn.nextVal, Type: t}
	b.fn.nextVal++
	return v
}

func (b *FuncBuilder) block() *BasicBlock { return b.fn.Block(b.current) }

func (b *FuncBuilder) emit(op Op) Value {
	blk := b.block()
	if op.Result != nil {
		blk.Ops = append(blk.Ops, op)
		return *op.Result
	}
	blk.Ops = append(blk.Ops, op)
	return Value{}
}

func (b *FuncBuilder) unary(opcode Opcode, t Type, a Value) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: opcode, Args: []ValueID{a.ID}, Result: &res})
}

func (b *FuncBuilder) binary(opcode Opcode, t Type, a, c Value) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: opcode, Args: []ValueID{a.ID, c.ID}, Result: &res})
}

func (b *FuncBuilder) ternary(opcode Opcode, t Type, a, c, d Value) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: opcode, Args: []ValueID{a.ID, c.ID, d.ID}, Result: &res})
}

// --- Tier 1 ---

func (b *FuncBuilder) PointerType() Type         { return Ptr }
func (b *FuncBuilder) IntType(width int) Type    { return Type{Kind: KindInt, Width: width} }

// --- Tier 2: constants ---

func (b *FuncBuilder) ConstBool(v bool) Value {
	res := b.nextValue(I1)
	imm := int64(0)
	if v {
		imm = 1
	}
	return b.emit(Op{Opcode: OpConstBool, Imm: imm, Result: &res})
}

func (b *FuncBuilder) ConstInt(t Type, v []byte) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: OpConstInt, ImmBig: v, Result: &res})
}

func (b *FuncBuilder) ConstUint64(t Type, v uint64) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: OpConstInt, Imm: int64(v), Result: &res})
}

func (b *FuncBuilder) ConstFloat(t Type, bits uint64) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: OpConstFloat, Imm: int64(bits), Result: &res})
}

// --- Tier 2: shadow stack ---

func (b *FuncBuilder) StackPush(v Value) {
	b.emit(Op{Opcode: OpStackPush, Args: []ValueID{v.ID}})
}

func (b *FuncBuilder) StackPop(t Type) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: OpStackPop, Result: &res})
}

func (b *FuncBuilder) StackPeek(t Type) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: OpStackPeek, Result: &res})
}

func (b *FuncBuilder) StackPeekN(t Type, n int) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: OpStackPeekN, Imm: int64(n), Result: &res})
}

func (b *FuncBuilder) StackExchange(a, c int) {
	b.emit(Op{Opcode: OpStackExchange, Imm: int64(a), Cases: []int64{int64(c)}})
}

// --- Tier 2: memory ---

func (b *FuncBuilder) Load(t Type, ptr Value) Value {
	res := b.nextValue(t)
	return b.emit(Op{Opcode: OpLoad, Args: []ValueID{ptr.ID}, Result: &res})
}

func (b *FuncBuilder) Store(ptr, v Value) {
	b.emit(Op{Opcode: OpStore, Args: []ValueID{ptr.ID, v.ID}})
}

func (b *FuncBuilder) Memcpy(dst, src, length Value) {
	b.emit(Op{Opcode: OpMemcpy, Args: []ValueID{dst.ID, src.ID, length.ID}})
}

func (b *FuncBuilder) MemcpyInline(dst, src Value, length int64) {
	b.emit(Op{Opcode: OpMemcpyInline, Args: []ValueID{dst.ID, src.ID}, Imm: length})
}

func (b *FuncBuilder) GEP(ptr Value, indices ...int64) Value {
	res := b.nextValue(Ptr)
	return b.emit(Op{Opcode: OpGEP, Args: []ValueID{ptr.ID}, Cases: indices, Result: &res})
}

// --- Tier 2: control flow ---

func (b *FuncBuilder) Br(target BlockID) {
	b.emit(Op{Opcode: OpBr, Targets: []BlockID{target}})
}

func (b *FuncBuilder) CondBr(cond Value, then, els BlockID) {
	b.emit(Op{Opcode: OpCondBr, Args: []ValueID{cond.ID}, Targets: []BlockID{then, els}})
}

func (b *FuncBuilder) ColdBr(cond Value, hot, cold BlockID) {
	b.emit(Op{Opcode: OpColdBr, Args: []ValueID{cond.ID}, Targets: []BlockID{hot, cold}})
}

func (b *FuncBuilder) Switch(v Value, cases []int64, targets []BlockID, def BlockID) {
	all := append(append([]BlockID{}, targets...), def)
	b.emit(Op{Opcode: OpSwitch, Args: []ValueID{v.ID}, Cases: cases, Targets: all})
}

func (b *FuncBuilder) IndirectBr(target Value, possible []BlockID) {
	b.emit(Op{Opcode: OpIndirectBr, Args: []ValueID{target.ID}, Targets: possible})
}

func (b *FuncBuilder) Return(vs ...Value) {
	ids := make([]ValueID, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
	}
	b.emit(Op{Opcode: OpReturn, Args: ids})
}

// --- Tier 2: arithmetic/comparison ---

func (b *FuncBuilder) IAdd(a, c Value) Value { return b.binary(OpIAdd, a.Type, a, c) }
func (b *FuncBuilder) ISub(a, c Value) Value { return b.binary(OpISub, a.Type, a, c) }
func (b *FuncBuilder) IMul(a, c Value) Value { return b.binary(OpIMul, a.Type, a, c) }
func (b *FuncBuilder) UDiv(a, c Value) Value { return b.binary(OpUDiv, a.Type, a, c) }
func (b *FuncBuilder) SDiv(a, c Value) Value { return b.binary(OpSDiv, a.Type, a, c) }
func (b *FuncBuilder) UMod(a, c Value) Value { return b.binary(OpUMod, a.Type, a, c) }
func (b *FuncBuilder) SMod(a, c Value) Value { return b.binary(OpSMod, a.Type, a, c) }
func (b *FuncBuilder) URem(a, c Value) Value { return b.binary(OpURem, a.Type, a, c) }
func (b *FuncBuilder) SRem(a, c Value) Value { return b.binary(OpSRem, a.Type, a, c) }

func (b *FuncBuilder) AddMod(a, c, m Value) Value { return b.ternary(OpAddMod, a.Type, a, c, m) }
func (b *FuncBuilder) MulMod(a, c, m Value) Value { return b.ternary(OpMulMod, a.Type, a, c, m) }
func (b *FuncBuilder) Exp(base, exponent Value) Value {
	return b.binary(OpExp, base.Type, base, exponent)
}
func (b *FuncBuilder) SignExtend(byteIdx, v Value) Value {
	return b.binary(OpSignExtend, v.Type, byteIdx, v)
}

func (b *FuncBuilder) ICmpEq(a, c Value) Value  { return b.binary(OpICmpEq, I1, a, c) }
func (b *FuncBuilder) ICmpNe(a, c Value) Value  { return b.binary(OpICmpNe, I1, a, c) }
func (b *FuncBuilder) ICmpLt(a, c Value) Value  { return b.binary(OpICmpLt, I1, a, c) }
func (b *FuncBuilder) ICmpGt(a, c Value) Value  { return b.binary(OpICmpGt, I1, a, c) }
func (b *FuncBuilder) ICmpSlt(a, c Value) Value { return b.binary(OpICmpSlt, I1, a, c) }
func (b *FuncBuilder) ICmpSgt(a, c Value) Value { return b.binary(OpICmpSgt, I1, a, c) }

// --- Tier 2: bit ops ---

func (b *FuncBuilder) And(a, c Value) Value { return b.binary(OpAnd, a.Type, a, c) }
func (b *FuncBuilder) Or(a, c Value) Value  { return b.binary(OpOr, a.Type, a, c) }
func (b *FuncBuilder) Xor(a, c Value) Value { return b.binary(OpXor, a.Type, a, c) }
func (b *FuncBuilder) Not(a Value) Value    { return b.unary(OpNot, a.Type, a) }
func (b *FuncBuilder) ByteExtract(idx, v Value) Value {
	return b.binary(OpByteExtract, I8, idx, v)
}
func (b *FuncBuilder) Shl(a, shift Value) Value { return b.binary(OpShl, a.Type, a, shift) }
func (b *FuncBuilder) Shr(a, shift Value) Value { return b.binary(OpShr, a.Type, a, shift) }
func (b *FuncBuilder) Sar(a, shift Value) Value { return b.binary(OpSar, a.Type, a, shift) }

// --- Tier 2: immediate-form ---

func (b *FuncBuilder) IAddImm(a Value, imm int64) Value {
	res := b.nextValue(a.Type)
	return b.emit(Op{Opcode: OpIAddImm, Args: []ValueID{a.ID}, Imm: imm, Result: &res})
}

func (b *FuncBuilder) ISubImm(a Value, imm int64) Value {
	res := b.nextValue(a.Type)
	return b.emit(Op{Opcode: OpISubImm, Args: []ValueID{a.ID}, Imm: imm, Result: &res})
}

func (b *FuncBuilder) IMulImm(a Value, imm int64) Value {
	res := b.nextValue(a.Type)
	return b.emit(Op{Opcode: OpIMulImm, Args: []ValueID{a.ID}, Imm: imm, Result: &res})
}

func (b *FuncBuilder) ICmpImm(a Value, imm int64) Value {
	res := b.nextValue(I1)
	return b.emit(Op{Opcode: OpICmpImm, Args: []ValueID{a.ID}, Imm: imm, Result: &res})
}

// --- Tier 2: conversion ---

func (b *FuncBuilder) Trunc(t Type, v Value) Value  { return b.unary(OpTrunc, t, v) }
func (b *FuncBuilder) Reduce(t Type, v Value) Value { return b.unary(OpReduce, t, v) }

func (b *FuncBuilder) Unreachable() { b.emit(Op{Opcode: OpUnreachable}) }
func (b *FuncBuilder) Nop()         { b.emit(Op{Opcode: OpNop}) }

// --- Block management ---

func (b *FuncBuilder) CreateBlock(name string) BlockID {
	id := BlockID(len(b.fn.Blocks))
	b.fn.Blocks = append(b.fn.Blocks, &BasicBlock{ID: id, Name: name})
	return id
}

func (b *FuncBuilder) SetBlock(id BlockID) {
	if b.fn.Block(id) == nil {
		panic(fmt.Sprintf("ir: no such block %d in function %s", id, b.fn.Name))
	}
	b.current = id
}

func (b *FuncBuilder) CurrentBlock() BlockID { return b.current }

func (b *FuncBuilder) EmitRaw(op Op) (Value, bool) {
	if op.Result != nil {
		op.Result.ID = b.fn.nextVal
		b.fn.nextVal++
	}
	v := b.emit(op)
	return v, op.Result != nil
}

var _ Builder = (*FuncBuilder)(nil)
