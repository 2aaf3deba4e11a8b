// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package evmlower

import (
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/evmfront"
	"github.com/vmlayer/engine/gas"
	"github.com/vmlayer/engine/ir"
	evmtier "github.com/vmlayer/engine/ir/evm"
)

// EntryFunction is the name interp and the call-frame handler look up on
// every lowered Module (spec.md §6 "Artifact entry point").
const EntryFunction = "main"

// lowerer holds the mutable state threaded through one Program's lowering.
type lowerer struct {
	prog      *evmfront.Program
	table     *gas.Table
	b         *ir.FuncBuilder
	e         *evmtier.Builder
	blockByPC map[uint64]ir.BlockID
	haltBlock ir.BlockID
}

// Lower translates prog into a single-function ir.Module, charging gas and
// checking stack bounds per the opcode's static cost and arity before every
// operation, and routing JUMP/JUMPI through a dynamic switch over the
// program's valid jump destinations (spec.md §4.3).
func Lower(prog *evmfront.Program, table *gas.Table) (*ir.Module, error) {
	b := ir.NewFuncBuilder(EntryFunction, nil)
	lw := &lowerer{
		prog:      prog,
		table:     table,
		b:         b,
		e:         evmtier.New(b),
		blockByPC: make(map[uint64]ir.BlockID, len(prog.Blocks)),
	}
	lw.haltBlock = b.CreateBlock("halt")

	// Pre-create one ir block per evmfront.Block so forward jumps and
	// fallthrough edges can reference a target before it's lowered. The
	// function's own entry block (created by NewFuncBuilder) stands in for
	// the first program block, since execution always starts at pc 0.
	if len(prog.Blocks) == 0 {
		b.Return()
		return &ir.Module{Name: "program", Functions: []*ir.Function{b.Function()}}, nil
	}
	for i, blk := range prog.Blocks {
		if i == 0 {
			lw.blockByPC[blk.Start] = b.Function().Entry
			continue
		}
		lw.blockByPC[blk.Start] = b.CreateBlock(blockName(blk.Start))
	}

	for i, blk := range prog.Blocks {
		if err := lw.lowerBlock(i, blk); err != nil {
			return nil, err
		}
	}

	b.SetBlock(lw.haltBlock)
	b.Return()

	return &ir.Module{Name: "program", Functions: []*ir.Function{b.Function()}}, nil
}

func blockName(pc uint64) string {
	return "pc_" + itoa(pc)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// lowerBlock emits the full opcode sequence of prog.Blocks[idx] into the ir
// block already reserved for it, ending with either the opcode's own
// terminator or a fallthrough branch to the next block / implicit STOP at
// the end of code.
func (lw *lowerer) lowerBlock(idx int, blk evmfront.Block) error {
	entry := lw.blockByPC[blk.Start]
	lw.b.SetBlock(entry)

	terminated := false
	for _, inst := range lw.prog.Instructions {
		if inst.PC < blk.Start || inst.PC >= blk.End {
			continue
		}
		term, err := lw.lowerInstruction(idx, inst)
		if err != nil {
			return err
		}
		if term {
			terminated = true
			break
		}
	}
	if !terminated {
		if idx+1 < len(lw.prog.Blocks) {
			lw.b.Br(lw.blockByPC[lw.prog.Blocks[idx+1].Start])
		} else {
			lw.e.Stop()
			lw.b.Return()
		}
	}
	return nil
}

// lowerInstruction lowers one decoded opcode, returning term=true if it
// ended the block (its own terminator, not the fallthrough case
// lowerBlock handles).
func (lw *lowerer) lowerInstruction(blkIdx int, inst evmfront.Instruction) (term bool, err error) {
	op := inst.Op
	cost, ok := lw.table.StaticCost(op)
	if !ok {
		// Unassigned at this fork: same halt as the explicit INVALID opcode.
		lw.e.Invalid()
		lw.b.Unreachable()
		return true, nil
	}
	in, out := stackIn(op), stackOut(op)
	lw.chargeGas(cost)
	lw.checkStack(in, out-in)

	b, e := lw.b, lw.e

	switch {
	case op.IsPush():
		v := b.ConstInt(ir.I256, leftPad32(inst.Immediate))
		b.StackPush(v)
		return false, nil
	case op >= evmfront.DUP1 && op <= evmfront.DUP16:
		n := int(op - evmfront.DUP1)
		v := b.StackPeekN(ir.I256, n)
		b.StackPush(v)
		return false, nil
	case op >= evmfront.SWAP1 && op <= evmfront.SWAP16:
		n := int(op-evmfront.SWAP1) + 1
		b.StackExchange(0, n)
		return false, nil
	case op >= evmfront.LOG0 && op <= evmfront.LOG4:
		n := int(op - evmfront.LOG0)
		off, size := b.StackPop(ir.I256), b.StackPop(ir.I256)
		topics := make([]ir.Value, n)
		for i := range topics {
			topics[i] = b.StackPop(ir.I256)
		}
		e.Log(n, off, size, topics...)
		return false, nil
	}

	switch op {
	case evmfront.STOP:
		e.Stop()
		b.Return()
		return true, nil
	case evmfront.ADD:
		lw.binary(b.IAdd)
	case evmfront.MUL:
		lw.binary(b.IMul)
	case evmfront.SUB:
		lw.binary(b.ISub)
	case evmfront.DIV:
		lw.binary(b.UDiv)
	case evmfront.SDIV:
		lw.binary(b.SDiv)
	case evmfront.MOD:
		lw.binary(b.UMod)
	case evmfront.SMOD:
		lw.binary(b.SMod)
	case evmfront.ADDMOD:
		lw.ternary(b.AddMod)
	case evmfront.MULMOD:
		lw.ternary(b.MulMod)
	case evmfront.EXP:
		lw.binary(b.Exp)
	case evmfront.SIGNEXTEND:
		a, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(b.SignExtend(a, v))
	case evmfront.LT:
		lw.binary(b.ICmpLt)
	case evmfront.GT:
		lw.binary(b.ICmpGt)
	case evmfront.SLT:
		lw.binary(b.ICmpSlt)
	case evmfront.SGT:
		lw.binary(b.ICmpSgt)
	case evmfront.EQ:
		lw.binary(b.ICmpEq)
	case evmfront.ISZERO:
		a := b.StackPop(ir.I256)
		zero := b.ConstUint64(ir.I256, 0)
		b.StackPush(b.ICmpEq(a, zero))
	case evmfront.AND:
		lw.binary(b.And)
	case evmfront.OR:
		lw.binary(b.Or)
	case evmfront.XOR:
		lw.binary(b.Xor)
	case evmfront.NOT:
		a := b.StackPop(ir.I256)
		b.StackPush(b.Not(a))
	case evmfront.BYTE:
		idx, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(b.ByteExtract(idx, v))
	case evmfront.SHL:
		shift, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(b.Shl(v, shift))
	case evmfront.SHR:
		shift, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(b.Shr(v, shift))
	case evmfront.SAR:
		shift, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(b.Sar(v, shift))
	case evmfront.KECCAK256:
		off, size := b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(e.Keccak256(off, size))
	case evmfront.ADDRESS:
		b.StackPush(e.Address())
	case evmfront.BALANCE:
		addr := b.StackPop(ir.I256)
		b.StackPush(e.Balance(addr))
	case evmfront.ORIGIN:
		b.StackPush(e.Origin())
	case evmfront.CALLER:
		b.StackPush(e.Caller())
	case evmfront.CALLVALUE:
		b.StackPush(e.CallValue())
	case evmfront.CALLDATALOAD:
		off := b.StackPop(ir.I256)
		b.StackPush(e.CalldataLoad(off))
	case evmfront.CALLDATASIZE:
		b.StackPush(e.CalldataSize())
	case evmfront.CALLDATACOPY:
		destOff, off, size := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.CalldataCopy(destOff, off, size)
	case evmfront.CODESIZE:
		b.StackPush(e.CodeSize())
	case evmfront.CODECOPY:
		destOff, off, size := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.CodeCopy(destOff, off, size)
	case evmfront.GASPRICE:
		b.StackPush(e.GasPrice())
	case evmfront.EXTCODESIZE:
		addr := b.StackPop(ir.I256)
		b.StackPush(e.ExtCodeSize(addr))
	case evmfront.EXTCODECOPY:
		addr, destOff, off, size := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.ExtCodeCopy(addr, destOff, off, size)
	case evmfront.RETURNDATASIZE:
		b.StackPush(e.ReturnDataSize())
	case evmfront.RETURNDATACOPY:
		destOff, off, size := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.ReturnDataCopy(destOff, off, size)
	case evmfront.EXTCODEHASH:
		addr := b.StackPop(ir.I256)
		b.StackPush(e.ExtCodeHash(addr))
	case evmfront.BLOCKHASH:
		num := b.StackPop(ir.I256)
		b.StackPush(e.BlockHash(num))
	case evmfront.COINBASE:
		b.StackPush(e.Coinbase())
	case evmfront.TIMESTAMP:
		b.StackPush(e.Timestamp())
	case evmfront.NUMBER:
		b.StackPush(e.Number())
	case evmfront.PREVRANDAO:
		b.StackPush(e.Prevrandao())
	case evmfront.GASLIMIT:
		b.StackPush(e.GasLimit())
	case evmfront.CHAINID:
		b.StackPush(e.ChainID())
	case evmfront.SELFBALANCE:
		b.StackPush(e.SelfBalance())
	case evmfront.BASEFEE:
		b.StackPush(e.BaseFee())
	case evmfront.BLOBHASH:
		idx := b.StackPop(ir.I256)
		b.StackPush(e.BlobHash(idx))
	case evmfront.BLOBBASEFEE:
		b.StackPush(e.BlobBaseFee())
	case evmfront.POP:
		b.StackPop(ir.I256)
	case evmfront.MLOAD:
		off := b.StackPop(ir.I256)
		b.StackPush(e.MLoad(off))
	case evmfront.MSTORE:
		off, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.MStore(off, v)
	case evmfront.MSTORE8:
		off, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.MStore8(off, v)
	case evmfront.SLOAD:
		slot := b.StackPop(ir.I256)
		b.StackPush(e.SLoad(slot))
	case evmfront.SSTORE:
		slot, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.SStore(slot, v)
	case evmfront.JUMP:
		target := b.StackPop(ir.I256)
		lw.lowerJump(target)
		return true, nil
	case evmfront.JUMPI:
		target, cond := b.StackPop(ir.I256), b.StackPop(ir.I256)
		lw.lowerJumpI(blkIdx, target, cond)
		return true, nil
	case evmfront.PC:
		b.StackPush(b.ConstUint64(ir.I256, inst.PC))
	case evmfront.MSIZE:
		b.StackPush(e.MSize())
	case evmfront.GAS:
		b.StackPush(e.Gas())
	case evmfront.JUMPDEST:
		// no-op; gas already charged above
	case evmfront.TLOAD:
		slot := b.StackPop(ir.I256)
		b.StackPush(e.TLoad(slot))
	case evmfront.TSTORE:
		slot, v := b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.TStore(slot, v)
	case evmfront.MCOPY:
		dst, src, size := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.MCopy(dst, src, size)
	case evmfront.CREATE:
		value, off, size := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(e.Create(value, off, size))
	case evmfront.CREATE2:
		value, off, size, salt := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(e.Create2(value, off, size, salt))
	case evmfront.CALL:
		gasV, addr, value := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		argsOff, argsSize, retOff, retSize := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(e.Call(gasV, addr, value, argsOff, argsSize, retOff, retSize))
	case evmfront.CALLCODE:
		gasV, addr, value := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		argsOff, argsSize, retOff, retSize := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(e.CallCode(gasV, addr, value, argsOff, argsSize, retOff, retSize))
	case evmfront.RETURN:
		off, size := b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.CReturn(off, size)
		b.Return()
		return true, nil
	case evmfront.DELEGATECALL:
		gasV, addr := b.StackPop(ir.I256), b.StackPop(ir.I256)
		argsOff, argsSize, retOff, retSize := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(e.DelegateCall(gasV, addr, argsOff, argsSize, retOff, retSize))
	case evmfront.STATICCALL:
		gasV, addr := b.StackPop(ir.I256), b.StackPop(ir.I256)
		argsOff, argsSize, retOff, retSize := b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256), b.StackPop(ir.I256)
		b.StackPush(e.StaticCall(gasV, addr, argsOff, argsSize, retOff, retSize))
	case evmfront.REVERT:
		off, size := b.StackPop(ir.I256), b.StackPop(ir.I256)
		e.Revert(off, size)
		b.Return()
		return true, nil
	case evmfront.INVALID:
		e.Invalid()
		b.Unreachable()
		return true, nil
	case evmfront.SELFDESTRUCT:
		beneficiary := b.StackPop(ir.I256)
		e.Selfdestruct(beneficiary)
		b.Return()
		return true, nil
	default:
		return true, errors.Errorf("evmlower: unhandled opcode %s at pc %d", op, inst.PC)
	}
	return false, nil
}

func (lw *lowerer) binary(f func(a, c ir.Value) ir.Value) {
	a := lw.b.StackPop(ir.I256)
	c := lw.b.StackPop(ir.I256)
	lw.b.StackPush(f(a, c))
}

func (lw *lowerer) ternary(f func(a, c, m ir.Value) ir.Value) {
	a := lw.b.StackPop(ir.I256)
	c := lw.b.StackPop(ir.I256)
	m := lw.b.StackPop(ir.I256)
	lw.b.StackPush(f(a, c, m))
}

// lowerJump emits the dynamic-jump switch for an unconditional JUMP: a
// switch over every valid jumpdest keyed by its byte offset, default edge
// to the halt block with InvalidJump (spec.md §4.3 "Jump handling").
func (lw *lowerer) lowerJump(target ir.Value) {
	dests := lw.prog.JumpDests.All()
	cases := make([]int64, len(dests))
	targets := make([]ir.BlockID, len(dests))
	for i, pc := range dests {
		cases[i] = int64(pc)
		targets[i] = lw.blockByPC[pc]
	}
	// interp recognizes a taken default edge on this switch as an invalid
	// jump target and sets HaltInvalidJump before entering haltBlock.
	lw.b.Switch(target, cases, targets, lw.haltBlock)
}

// lowerJumpI emits JUMPI's conditional form: zero condition falls through to
// the next block in program order; non-zero condition takes the same
// dynamic switch as JUMP.
func (lw *lowerer) lowerJumpI(blkIdx int, target, cond ir.Value) {
	zero := lw.b.ConstUint64(ir.I256, 0)
	nonZero := lw.b.ICmpNe(cond, zero)
	takeBlock := lw.b.CreateBlock("jumpi_take")
	var fallBlock ir.BlockID
	if blkIdx+1 < len(lw.prog.Blocks) {
		fallBlock = lw.blockByPC[lw.prog.Blocks[blkIdx+1].Start]
	} else {
		fallBlock = lw.haltBlock
	}
	lw.b.CondBr(nonZero, takeBlock, fallBlock)
	lw.b.SetBlock(takeBlock)
	lw.lowerJump(target)
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// --- gas/stack check emission ---

func (lw *lowerer) chargeGas(cost uint64) {
	res := ir.Value{Type: ir.I1}
	ok, _ := lw.b.EmitRaw(ir.Op{Opcode: ir.OpChargeGas, Imm: int64(cost), Result: &res})
	cont := lw.b.CreateBlock("gas_ok")
	lw.b.CondBr(ok, cont, lw.haltBlock)
	lw.b.SetBlock(cont)
}

func (lw *lowerer) checkStack(in, delta int) {
	res := ir.Value{Type: ir.I1}
	ok, _ := lw.b.EmitRaw(ir.Op{Opcode: ir.OpCheckStack, Imm: int64(in), Cases: []int64{int64(delta)}, Result: &res})
	cont := lw.b.CreateBlock("stack_ok")
	lw.b.CondBr(ok, cont, lw.haltBlock)
	lw.b.SetBlock(cont)
}

