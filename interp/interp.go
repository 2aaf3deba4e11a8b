// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package interp is this engine's IR executor (spec.md §1.1's resolved
// Open Question "what actually runs a Module"): rather than binding to a
// native JIT or an LLVM/MLIR backend, it walks an ir.Function's basic
// blocks directly, dispatching every ir.Op through a Go switch. Tier-2
// shadow-stack operations execute against the *real* runtime.RuntimeContext
// stack rather than a compile-time-simulated one — values never move
// through an optimizer, so there is nothing to simulate ahead of time.
package interp

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/ir"
	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/runtime"
)

// EntryFunction mirrors evmlower.EntryFunction. Duplicated rather than
// imported so interp has no dependency on the front-end that produced the
// module it executes — any lowering pass that names its function "main" can
// be run this way.
const EntryFunction = "main"

// Run interprets mod's entry function against rc until it reaches a
// terminal outcome (Stop/Return/Revert/Selfdestruct) or the frame halts,
// and returns the frame's ExecutionResult (spec.md §4.2, §4.5 step 4).
func Run(mod *ir.Module, rc *runtime.RuntimeContext) primitives.ExecutionResult {
	fn := mod.Function(EntryFunction)
	if fn == nil {
		return primitives.FatalError(errors.Errorf("interp: module %q has no %q function", mod.Name, EntryFunction))
	}
	m := &machine{
		fn:       fn,
		rc:       rc,
		values:   make(map[ir.ValueID]*uint256.Int, 64),
		logStart: len(rc.VM.Journal.Logs()),
	}
	m.run()
	return m.result()
}

// machine is one activation of Run: the SSA value environment plus the
// bookkeeping needed to turn a terminating tier-3 op into an
// ExecutionResult once the dispatch loop stops.
type machine struct {
	fn     *ir.Function
	rc     *runtime.RuntimeContext
	values map[ir.ValueID]*uint256.Int
	arena  []byte // tier-2 byte memory backing Load/Store/GEP/Memcpy; only the wasmfront sketch uses these ops

	outcome       primitives.Outcome
	successReason primitives.SuccessReason
	output        []byte
	logStart      int
}

func (m *machine) run() {
	block := m.fn.Entry
	for {
		blk := m.fn.Block(block)
		if blk == nil {
			m.rc.SetFatal(errors.Errorf("interp: function %q has no block %d", m.fn.Name, block))
			return
		}
		next, done := m.execBlock(blk)
		if done {
			return
		}
		block = next
	}
}

// execBlock runs every op in blk in order, stopping early the moment the
// frame halts (from a failed OpChargeGas/OpCheckStack or a tier-3 syscall)
// or the op stream reaches a terminator.
func (m *machine) execBlock(blk *ir.BasicBlock) (next ir.BlockID, done bool) {
	for _, op := range blk.Ops {
		branchTarget, branched, terminal := m.execOp(op)
		if m.rc.Halted || m.rc.FatalErr != nil {
			return 0, true
		}
		if terminal {
			return 0, true
		}
		if branched {
			return branchTarget, false
		}
	}
	// A block that runs out of ops without a terminator is malformed; treat
	// it the same as an implicit Return rather than looping forever.
	return 0, true
}

// execOp dispatches a single ir.Op. branched reports that control should
// jump to next; terminal reports that the function has finished executing
// (a Return/Unreachable). A tier-3 op that sets m.outcome is not terminal by
// itself; the lowering follows it with a Return.
func (m *machine) execOp(op ir.Op) (next ir.BlockID, branched bool, terminal bool) {
	switch op.Opcode {
	case ir.OpConstBool:
		m.setResult(op, uint256.NewInt(uint64(op.Imm)))
	case ir.OpConstInt:
		if len(op.ImmBig) > 0 {
			m.setResult(op, new(uint256.Int).SetBytes(op.ImmBig))
		} else {
			m.setResult(op, uint256.NewInt(uint64(op.Imm)))
		}
	case ir.OpConstFloat:
		// Float values are never produced by EVM lowering; stored verbatim
		// as bit patterns for the wasmfront sketch's benefit.
		m.setResult(op, uint256.NewInt(uint64(op.Imm)))

	case ir.OpStackPush:
		m.rc.Push(m.arg(op, 0))
	case ir.OpStackPop:
		v := m.rc.Pop()
		m.setResult(op, &v)
	case ir.OpStackPeek:
		v := *m.rc.Peek()
		m.setResult(op, &v)
	case ir.OpStackPeekN:
		v := *m.rc.PeekN(int(op.Imm))
		m.setResult(op, &v)
	case ir.OpStackExchange:
		m.rc.Exchange(int(op.Imm), int(op.Cases[0]))

	case ir.OpLoad:
		m.setResult(op, m.arenaLoad(m.arg(op, 0)))
	case ir.OpStore:
		m.arenaStore(m.arg(op, 0), m.arg(op, 1))
	case ir.OpMemcpy:
		dst, src, length := m.arg(op, 0), m.arg(op, 1), m.arg(op, 2)
		m.arenaCopy(dst, src, length.Uint64())
	case ir.OpMemcpyInline:
		dst, src := m.arg(op, 0), m.arg(op, 1)
		m.arenaCopy(dst, src, uint64(op.Imm))
	case ir.OpGEP:
		base := m.arg(op, 0)
		off := int64(0)
		for _, idx := range op.Cases {
			off += idx
		}
		m.setResult(op, new(uint256.Int).Add(base, uint256.NewInt(uint64(off))))

	case ir.OpBr:
		return op.Targets[0], true, false
	case ir.OpCondBr, ir.OpColdBr:
		if !m.arg(op, 0).IsZero() {
			return op.Targets[0], true, false
		}
		return op.Targets[1], true, false
	case ir.OpSwitch:
		return m.execSwitch(op), true, false
	case ir.OpIndirectBr:
		if len(op.Targets) == 0 {
			return 0, false, true
		}
		return op.Targets[0], true, false
	case ir.OpReturn, ir.OpUnreachable:
		return 0, false, true
	case ir.OpNop:
		// no-op

	case ir.OpIAdd:
		m.binI(op, new(uint256.Int).Add)
	case ir.OpISub:
		m.binI(op, new(uint256.Int).Sub)
	case ir.OpIMul:
		m.binI(op, new(uint256.Int).Mul)
	case ir.OpUDiv:
		m.binI(op, new(uint256.Int).Div)
	case ir.OpSDiv:
		m.binI(op, new(uint256.Int).SDiv)
	case ir.OpUMod, ir.OpURem:
		m.binI(op, new(uint256.Int).Mod)
	case ir.OpSMod, ir.OpSRem:
		m.binI(op, new(uint256.Int).SMod)
	case ir.OpAddMod:
		a, b, mm := m.arg(op, 0), m.arg(op, 1), m.arg(op, 2)
		m.setResult(op, new(uint256.Int).AddMod(a, b, mm))
	case ir.OpMulMod:
		a, b, mm := m.arg(op, 0), m.arg(op, 1), m.arg(op, 2)
		m.setResult(op, new(uint256.Int).MulMod(a, b, mm))
	case ir.OpExp:
		base, exp := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, new(uint256.Int).Exp(base, exp))
	case ir.OpSignExtend:
		byteIdx, v := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, new(uint256.Int).ExtendSign(v, byteIdx))

	case ir.OpICmpEq:
		a, b := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, boolWord(a.Eq(b)))
	case ir.OpICmpNe:
		a, b := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, boolWord(!a.Eq(b)))
	case ir.OpICmpLt:
		a, b := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, boolWord(a.Lt(b)))
	case ir.OpICmpGt:
		a, b := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, boolWord(a.Gt(b)))
	case ir.OpICmpSlt:
		a, b := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, boolWord(a.Slt(b)))
	case ir.OpICmpSgt:
		a, b := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, boolWord(a.Sgt(b)))

	case ir.OpAnd:
		m.binI(op, new(uint256.Int).And)
	case ir.OpOr:
		m.binI(op, new(uint256.Int).Or)
	case ir.OpXor:
		m.binI(op, new(uint256.Int).Xor)
	case ir.OpNot:
		m.setResult(op, new(uint256.Int).Not(m.arg(op, 0)))
	case ir.OpByteExtract:
		idx, v := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, byteExtract(idx, v))
	case ir.OpShl:
		v, shift := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, shl(shift, v))
	case ir.OpShr:
		v, shift := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, shr(shift, v))
	case ir.OpSar:
		v, shift := m.arg(op, 0), m.arg(op, 1)
		m.setResult(op, sar(shift, v))

	case ir.OpIAddImm:
		m.setResult(op, new(uint256.Int).Add(m.arg(op, 0), uint256.NewInt(uint64(op.Imm))))
	case ir.OpISubImm:
		m.setResult(op, new(uint256.Int).Sub(m.arg(op, 0), uint256.NewInt(uint64(op.Imm))))
	case ir.OpIMulImm:
		m.setResult(op, new(uint256.Int).Mul(m.arg(op, 0), uint256.NewInt(uint64(op.Imm))))
	case ir.OpICmpImm:
		m.setResult(op, boolWord(m.arg(op, 0).Eq(uint256.NewInt(uint64(op.Imm)))))

	case ir.OpTrunc, ir.OpReduce:
		// Every SSA value is carried as a full-width *uint256.Int regardless
		// of its declared ir.Type; narrower tier-2 types are bookkeeping
		// only for this stand-in interpreter (see interp's package doc).
		v := *m.arg(op, 0)
		m.setResult(op, &v)

	case ir.OpChargeGas:
		ok := m.rc.GasMeter.Charge(uint64(op.Imm))
		if !ok {
			m.rc.SetHalt(primitives.HaltOutOfGasBasic)
		}
		m.setResult(op, boolWord(ok))
	case ir.OpCheckStack:
		m.setResult(op, boolWord(m.checkStack(int(op.Imm), int(op.Cases[0]))))

	case ir.OpEVM:
		m.execEVM(op)

	default:
		m.rc.SetFatal(errors.Errorf("interp: unhandled ir opcode %d", op.Opcode))
	}
	return 0, false, false
}

func (m *machine) execSwitch(op ir.Op) ir.BlockID {
	v := m.arg(op, 0)
	for i, c := range op.Cases {
		if v.Eq(uint256.NewInt(uint64(c))) {
			return op.Targets[i]
		}
	}
	// Only evmlower emits switches, always to route a dynamic JUMP/JUMPI;
	// a miss here always means the target wasn't a valid jumpdest.
	if !m.rc.Halted {
		m.rc.SetHalt(primitives.HaltInvalidJump)
	}
	return op.Targets[len(op.Targets)-1]
}

func (m *machine) checkStack(need, delta int) bool {
	cur := m.rc.StackLen()
	if cur < need {
		m.rc.SetHalt(primitives.HaltStackUnderflow)
		return false
	}
	if cur+delta > primitives.MaxStackDepth {
		m.rc.SetHalt(primitives.HaltStackOverflow)
		return false
	}
	return true
}

func (m *machine) arg(op ir.Op, i int) *uint256.Int {
	if v, ok := m.values[op.Args[i]]; ok {
		return v
	}
	return new(uint256.Int)
}

// val resolves a tier-3 ir.Value (from an evm.Op payload's Args, not a
// generic ir.Op's Args) against the same value environment generic tier-2
// ops write into.
func (m *machine) val(v ir.Value) *uint256.Int {
	if r, ok := m.values[v.ID]; ok {
		return r
	}
	return new(uint256.Int)
}

func (m *machine) setResult(op ir.Op, v *uint256.Int) {
	if op.Result != nil {
		m.values[op.Result.ID] = v
	}
}

func (m *machine) binI(op ir.Op, f func(x, y *uint256.Int) *uint256.Int) {
	m.setResult(op, f(m.arg(op, 0), m.arg(op, 1)))
}

func (m *machine) result() primitives.ExecutionResult {
	rc := m.rc
	gasLimit := rc.Frame.GasLimit
	if rc.FatalErr != nil {
		return primitives.FatalError(rc.FatalErr)
	}
	if rc.Halted {
		return primitives.Halt(rc.HaltReason, gasLimit)
	}
	gasUsed := rc.GasMeter.Used()
	if m.outcome == primitives.OutcomeRevert {
		return primitives.Revert(gasLimit, gasUsed, m.output)
	}
	logs := append([]primitives.Log(nil), rc.VM.Journal.Logs()[m.logStart:]...)
	// GasRefunded reports the transaction-wide refund counter as it stands
	// when this frame finishes, matching go-ethereum's StateDB.GetRefund():
	// refunds are a single counter shared by the whole call tree (applied
	// directly by sstore in evm_dispatch.go), never a per-frame amount the caller
	// re-adds — see runtime.Call/Create's doc comments.
	return primitives.Success(m.successReason, gasLimit, gasUsed, rc.VM.Journal.Refund(), m.output, logs)
}

// --- value-representation helpers ---

func boolWord(b bool) *uint256.Int {
	if b {
		return uint256.NewInt(1)
	}
	return new(uint256.Int)
}

// u64 converts v to a uint64, reporting ok=false on overflow — the same
// "treat a giant offset as an immediate halt rather than wrapping" contract
// go-ethereum's interpreter loop uses for memory/copy offsets.
func u64(v *uint256.Int) (n uint64, ok bool) {
	n, overflow := v.Uint64WithOverflow()
	return n, !overflow
}

func addrFromWord(w *uint256.Int) primitives.Address {
	b := w.Bytes32()
	var a primitives.Address
	copy(a[:], b[12:])
	return a
}

func wordFromAddr(a primitives.Address) *uint256.Int {
	var b [32]byte
	copy(b[12:], a[:])
	return new(uint256.Int).SetBytes(b[:])
}

func wordFromHash(h primitives.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

func wordOrZero(w *primitives.Word) *uint256.Int {
	if w == nil {
		return new(uint256.Int)
	}
	v := *w
	return &v
}

// byteExtract implements BYTE(i, x): the i-th byte of x, most-significant
// first, or zero if i >= 32.
func byteExtract(idx, v *uint256.Int) *uint256.Int {
	if idx.GtUint64(31) {
		return new(uint256.Int)
	}
	b32 := v.Bytes32()
	return uint256.NewInt(uint64(b32[idx.Uint64()]))
}

func shl(shift, v *uint256.Int) *uint256.Int {
	n, ok := u64(shift)
	if !ok || n >= 256 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Lsh(v, uint(n))
}

func shr(shift, v *uint256.Int) *uint256.Int {
	n, ok := u64(shift)
	if !ok || n >= 256 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Rsh(v, uint(n))
}

func sar(shift, v *uint256.Int) *uint256.Int {
	n, ok := u64(shift)
	if !ok || n >= 256 {
		res := new(uint256.Int)
		if v.Sign() < 0 {
			return res.Not(res)
		}
		return res
	}
	return new(uint256.Int).SRsh(v, uint(n))
}

// --- tier-2 byte arena backing Load/Store/GEP/Memcpy ---
//
// EVM lowering never emits these (every EVM memory access goes through the
// tier-3 mload/mstore/mcopy syscalls against runtime.Memory instead); this
// arena only exists so the wasmfront sketch's tier-2-only modules have
// somewhere to read and write.

func (m *machine) arenaLoad(ptr *uint256.Int) *uint256.Int {
	off, ok := u64(ptr)
	if !ok || off+32 > uint64(len(m.arena)) {
		return new(uint256.Int)
	}
	return new(uint256.Int).SetBytes(m.arena[off : off+32])
}

func (m *machine) arenaStore(ptr, v *uint256.Int) {
	off, ok := u64(ptr)
	if !ok {
		return
	}
	m.arenaGrow(off + 32)
	b := v.Bytes32()
	copy(m.arena[off:off+32], b[:])
}

func (m *machine) arenaCopy(dst, src *uint256.Int, length uint64) {
	d, dok := u64(dst)
	s, sok := u64(src)
	if !dok || !sok || length == 0 {
		return
	}
	max := d + length
	if s+length > max {
		max = s + length
	}
	m.arenaGrow(max)
	copy(m.arena[d:d+length], m.arena[s:s+length])
}

func (m *machine) arenaGrow(size uint64) {
	if uint64(len(m.arena)) < size {
		m.arena = append(m.arena, make([]byte, size-uint64(len(m.arena)))...)
	}
}
