// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package interp

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/gas"
	"github.com/vmlayer/engine/ir"
	evmtier "github.com/vmlayer/engine/ir/evm"
	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/runtime"
)

// execEVM is interp's single dispatch point for tier-3 instructions (the
// package doc's "interp has a single dispatch point for them"): it type
// switches on the evm.Op payload's Family and calls straight through to the
// matching runtime.RuntimeContext syscall, charging any dynamic gas the
// static evmlower.chargeGas pass couldn't have known in advance.
func (m *machine) execEVM(op ir.Op) {
	e, _ := op.Payload.(*evmtier.Op)
	if e == nil {
		m.rc.SetFatal(errors.Errorf("interp: OpEVM with no payload"))
		return
	}
	rc := m.rc
	args := e.Args

	switch e.Family {
	// --- Environment introspection ---
	case evmtier.NameAddress:
		m.setEVM(op, wordFromAddr(rc.Frame.Callee))
	case evmtier.NameCaller:
		m.setEVM(op, wordFromAddr(rc.Frame.Caller))
	case evmtier.NameCallValue:
		m.setEVM(op, wordOrZero(rc.Frame.Value))
	case evmtier.NameOrigin:
		m.setEVM(op, wordFromAddr(rc.VM.Tx.Origin))
	case evmtier.NameGas:
		m.setEVM(op, uint256.NewInt(rc.GasMeter.Remaining()))
	case evmtier.NameGasPrice:
		m.setEVM(op, wordOrZero(rc.VM.Tx.GasPrice))
	case evmtier.NameChainID:
		m.setEVM(op, wordOrZero(rc.VM.Tx.ChainID))
	case evmtier.NameCoinbase:
		m.setEVM(op, wordFromAddr(rc.VM.Block.Coinbase))
	case evmtier.NameTimestamp:
		m.setEVM(op, uint256.NewInt(rc.VM.Block.Timestamp))
	case evmtier.NameNumber:
		m.setEVM(op, uint256.NewInt(rc.VM.Block.Number))
	case evmtier.NamePrevrandao:
		m.setEVM(op, wordFromHash(rc.VM.Block.Prevrandao))
	case evmtier.NameGasLimit:
		m.setEVM(op, uint256.NewInt(rc.VM.Block.GasLimit))
	case evmtier.NameBaseFee:
		m.setEVM(op, wordOrZero(rc.VM.Block.BaseFee))
	case evmtier.NameBlobBaseFee:
		m.setEVM(op, wordOrZero(rc.VM.Block.BlobBaseFee))
	case evmtier.NameBlobHash:
		idx, ok := u64(m.val(args[0]))
		hashes := rc.VM.Block.BlobHashes
		if !ok || idx >= uint64(len(hashes)) {
			m.setEVM(op, new(uint256.Int))
		} else {
			m.setEVM(op, wordFromHash(hashes[idx]))
		}
	case evmtier.NameBlockHash:
		n, _ := u64(m.val(args[0]))
		m.setEVM(op, wordFromHash(rc.BlockHash(n)))
	case evmtier.NameSelfBalance:
		m.setEVM(op, wordOrZero(rc.SelfBalance()))
	case evmtier.NameBalance:
		m.setEVM(op, wordOrZero(rc.Balance(addrFromWord(m.val(args[0])))))
	case evmtier.NameCodeSize:
		m.setEVM(op, uint256.NewInt(uint64(len(rc.Frame.Code))))
	case evmtier.NameExtCodeSize:
		m.setEVM(op, uint256.NewInt(rc.ExtCodeSize(addrFromWord(m.val(args[0])))))
	case evmtier.NameExtCodeHash:
		m.setEVM(op, wordFromHash(rc.ExtCodeHash(addrFromWord(m.val(args[0])))))

	// --- Data access ---
	case evmtier.NameCalldataLoad:
		m.setEVM(op, calldataLoad(rc.Frame.Input, m.val(args[0])))
	case evmtier.NameCalldataSize:
		m.setEVM(op, uint256.NewInt(uint64(len(rc.Frame.Input))))
	case evmtier.NameCalldataCopy:
		m.chargeCopyAndRun(rc, args, func(dst, off, size uint64) { rc.CalldataCopy(dst, off, size) })
	case evmtier.NameCodeCopy:
		m.chargeCopyAndRun(rc, args, func(dst, off, size uint64) { rc.CodeCopy(dst, off, size) })
	case evmtier.NameExtCodeCopy:
		addr := addrFromWord(m.val(args[0]))
		m.chargeCopyAndRun(rc, args[1:], func(dst, off, size uint64) { rc.ExtCodeCopy(addr, dst, off, size) })
	case evmtier.NameReturnDataSize:
		m.setEVM(op, uint256.NewInt(uint64(len(rc.ReturnData))))
	case evmtier.NameReturnDataLoad:
		m.setEVM(op, calldataLoad(rc.ReturnData, m.val(args[0])))
	case evmtier.NameReturnDataCopy:
		m.chargeCopyAndRun(rc, args, func(dst, off, size uint64) { rc.ReturnDataCopy(dst, off, size) })

	// --- Memory ---
	case evmtier.NameMLoad:
		off, ok := u64(m.val(args[0]))
		if !ok || !rc.ChargeMemory(off, 32) {
			return
		}
		m.setEVM(op, new(uint256.Int).SetBytes(rc.Memory.GetPtr(int64(off), 32)))
	case evmtier.NameMStore:
		off, ok := u64(m.val(args[0]))
		if !ok || !rc.ChargeMemory(off, 32) {
			return
		}
		rc.Memory.Set32(off, m.val(args[1]))
	case evmtier.NameMStore8:
		off, ok := u64(m.val(args[0]))
		if !ok || !rc.ChargeMemory(off, 1) {
			return
		}
		b32 := m.val(args[1]).Bytes32()
		rc.Memory.Set(off, 1, b32[31:32])
	case evmtier.NameMSize:
		m.setEVM(op, uint256.NewInt(uint64(rc.Memory.Len())))
	case evmtier.NameMCopy:
		dst, dok := u64(m.val(args[0]))
		src, sok := u64(m.val(args[1]))
		size, szok := u64(m.val(args[2]))
		if !dok || !sok || !szok {
			rc.SetHalt(primitives.HaltOutOfGasInvalidOperand)
			return
		}
		max := dst + size
		if s := src + size; s > max {
			max = s
		}
		if !rc.ChargeMemory(0, max) {
			return
		}
		words, err := gas.CopyGas(gas.WordCount(size))
		if err != nil || !rc.GasMeter.Charge(words) {
			rc.SetHalt(primitives.HaltOutOfGasBasic)
			return
		}
		if size > 0 {
			buf := rc.Memory.GetCopy(int64(src), int64(size))
			rc.Memory.Set(dst, size, buf)
		}

	// --- Storage ---
	case evmtier.NameSLoad:
		m.setEVM(op, rc.SLoad(m.val(args[0])))
	case evmtier.NameSStore:
		m.sstore(rc, m.val(args[0]), m.val(args[1]))
	case evmtier.NameTLoad:
		m.setEVM(op, rc.TLoad(m.val(args[0])))
	case evmtier.NameTStore:
		rc.TStore(m.val(args[0]), m.val(args[1]))

	// --- Crypto ---
	case evmtier.NameKeccak256:
		off, ok1 := u64(m.val(args[0]))
		size, ok2 := u64(m.val(args[1]))
		if !ok1 || !ok2 || !rc.ChargeMemory(off, size) {
			return
		}
		cost, err := gas.Keccak256Gas(gas.WordCount(size))
		if err != nil || !rc.GasMeter.Charge(cost) {
			rc.SetHalt(primitives.HaltOutOfGasBasic)
			return
		}
		h := rc.Keccak256(off, size)
		m.setEVM(op, wordFromHash(h))

	// --- Logging ---
	case evmtier.NameLog0, evmtier.NameLog1, evmtier.NameLog2, evmtier.NameLog3, evmtier.NameLog4:
		m.doLog(rc, e, args)

	// --- Sub-call ---
	case evmtier.NameCall:
		m.doCall(rc, op, runtime.FrameCall, args)
	case evmtier.NameCallCode:
		m.doCall(rc, op, runtime.FrameCallCode, args)
	case evmtier.NameDelegateCall:
		m.doCallNoValue(rc, op, runtime.FrameDelegateCall, args)
	case evmtier.NameStaticCall:
		m.doCallNoValue(rc, op, runtime.FrameStaticCall, args)
	case evmtier.NameCreate:
		m.doCreate(rc, op, runtime.FrameCreate, args)
	case evmtier.NameCreate2:
		m.doCreate(rc, op, runtime.FrameCreate2, args)

	// --- Termination ---
	case evmtier.NameReturn:
		m.finish(rc, primitives.OutcomeSuccess, primitives.SuccessReturn, args)
	case evmtier.NameRevert:
		m.finish(rc, primitives.OutcomeRevert, 0, args)
	case evmtier.NameStop:
		m.outcome = primitives.OutcomeSuccess
		m.successReason = primitives.SuccessStop
	case evmtier.NameSelfdestruct:
		rc.Selfdestruct(addrFromWord(m.val(args[0])))
		if !rc.Halted {
			m.outcome = primitives.OutcomeSuccess
			m.successReason = primitives.SuccessSelfdestruct
		}
	case evmtier.NameInvalid:
		rc.SetHalt(primitives.HaltInvalidFEOpcode)

	default:
		rc.SetFatal(errors.Errorf("interp: unhandled tier-3 op %q", e.Family))
	}
}

func (m *machine) setEVM(op ir.Op, v *uint256.Int) {
	if op.Result != nil {
		m.values[op.Result.ID] = v
	}
}

func calldataLoad(data []byte, offWord *uint256.Int) *uint256.Int {
	off, ok := u64(offWord)
	if !ok || off >= uint64(len(data)) {
		return new(uint256.Int)
	}
	var buf [32]byte
	copy(buf[:], data[off:])
	return new(uint256.Int).SetBytes(buf[:])
}

// chargeCopyAndRun reads (destOff, off, size) from args, charges memory
// expansion plus the per-word copy cost, then runs fn. Shared by
// CALLDATACOPY/CODECOPY/EXTCODECOPY/RETURNDATACOPY, which only differ in
// source buffer.
func (m *machine) chargeCopyAndRun(rc *runtime.RuntimeContext, args []ir.Value, fn func(destOff, off, size uint64)) {
	dst, ok1 := u64(m.val(args[0]))
	off, ok2 := u64(m.val(args[1]))
	size, ok3 := u64(m.val(args[2]))
	if !ok1 || !ok2 || !ok3 {
		rc.SetHalt(primitives.HaltOutOfGasInvalidOperand)
		return
	}
	if !rc.ChargeMemory(dst, size) {
		return
	}
	cost, err := gas.CopyGas(gas.WordCount(size))
	if err != nil || !rc.GasMeter.Charge(cost) {
		rc.SetHalt(primitives.HaltOutOfGasBasic)
		return
	}
	fn(dst, off, size)
}

// sstore charges the dynamic EIP-2200-simplified cost (gas.SStoreGas) on top
// of the table's static base and applies any earned refund directly to the
// shared journal — refunds are a single transaction-wide counter, never a
// per-frame amount a caller re-applies (see runtime.Call's doc comment).
func (m *machine) sstore(rc *runtime.RuntimeContext, slot, value *uint256.Int) {
	if rc.Frame.Static {
		rc.SetHalt(primitives.HaltStateChangeDuringStaticcall)
		return
	}
	current := rc.SLoad(slot)
	if rc.FatalErr != nil {
		return
	}
	cost, refund := gas.SStoreGas(current, value)
	if !rc.GasMeter.Charge(cost) {
		rc.SetHalt(primitives.HaltOutOfGasBasic)
		return
	}
	rc.SStore(slot, value)
	if refund > 0 {
		rc.VM.Journal.AddRefund(refund)
	}
}

func (m *machine) doLog(rc *runtime.RuntimeContext, e *evmtier.Op, args []ir.Value) {
	off, ok1 := u64(m.val(args[0]))
	size, ok2 := u64(m.val(args[1]))
	if !ok1 || !ok2 || !rc.ChargeMemory(off, size) {
		return
	}
	cost, err := gas.LogGas(len(args)-2, size)
	if err != nil || !rc.GasMeter.Charge(cost) {
		rc.SetHalt(primitives.HaltOutOfGasBasic)
		return
	}
	topics := make([]primitives.Hash, 0, len(args)-2)
	for _, t := range args[2:] {
		topics = append(topics, primitives.Hash(m.val(t).Bytes32()))
	}
	data := rc.Memory.GetCopy(int64(off), int64(size))
	rc.Log(topics, data)
}

// doCall handles CALL/CALLCODE: args = [gas, addr, value, argsOff, argsSize, retOff, retSize].
func (m *machine) doCall(rc *runtime.RuntimeContext, op ir.Op, kind runtime.FrameKind, args []ir.Value) {
	m.dispatchCall(rc, op, kind, m.val(args[0]), addrFromWord(m.val(args[1])), m.val(args[2]),
		args[3], args[4], args[5], args[6])
}

// doCallNoValue handles DELEGATECALL/STATICCALL: args = [gas, addr, argsOff, argsSize, retOff, retSize].
func (m *machine) doCallNoValue(rc *runtime.RuntimeContext, op ir.Op, kind runtime.FrameKind, args []ir.Value) {
	m.dispatchCall(rc, op, kind, m.val(args[0]), addrFromWord(m.val(args[1])), nil,
		args[2], args[3], args[4], args[5])
}

func (m *machine) dispatchCall(rc *runtime.RuntimeContext, op ir.Op, kind runtime.FrameKind,
	gasReq *uint256.Int, addr primitives.Address, value *uint256.Int,
	argsOffV, argsSizeV, retOffV, retSizeV ir.Value) {
	argsOff, ok1 := u64(m.val(argsOffV))
	argsSize, ok2 := u64(m.val(argsSizeV))
	retOff, ok3 := u64(m.val(retOffV))
	retSize, ok4 := u64(m.val(retSizeV))
	if !ok1 || !ok2 || !ok3 || !ok4 {
		rc.SetHalt(primitives.HaltOutOfGasInvalidOperand)
		return
	}
	max := argsOff + argsSize
	if r := retOff + retSize; r > max {
		max = r
	}
	if !rc.ChargeMemory(0, max) {
		return
	}
	bearsValue := value != nil && !value.IsZero()
	// The 9000-gas value-transfer surcharge (gas.CallValue) is charged to
	// the caller up front, before the 63/64 split; the 2300-gas stipend
	// (gas.CallStipend) below is credited to the callee afterwards without
	// ever being deducted from the caller — it is drawn from the surcharge
	// just charged, matching go-ethereum's gasCall.
	if bearsValue && !rc.GasMeter.Charge(gas.CallValue) {
		rc.SetHalt(primitives.HaltOutOfGasBasic)
		return
	}
	forwarded, err := gas.CallGas(rc.GasMeter.Remaining(), 0, gasReq)
	if err != nil {
		rc.SetHalt(primitives.HaltOutOfGasBasic)
		return
	}
	if !rc.GasMeter.Charge(forwarded) {
		rc.SetHalt(primitives.HaltOutOfGasBasic)
		return
	}
	calleeGas := forwarded
	var valueArg *primitives.Word
	if bearsValue {
		calleeGas += gas.CallStipend
		valueArg = value
	}
	ok2call := rc.Call(kind, calleeGas, addr, valueArg, argsOff, argsSize, retOff, retSize)
	m.setEVM(op, boolWord(ok2call))
}

func (m *machine) doCreate(rc *runtime.RuntimeContext, op ir.Op, kind runtime.FrameKind, args []ir.Value) {
	value := m.val(args[0])
	off, ok1 := u64(m.val(args[1]))
	size, ok2 := u64(m.val(args[2]))
	if !ok1 || !ok2 {
		rc.SetHalt(primitives.HaltOutOfGasInvalidOperand)
		return
	}
	if size > primitives.MaxInitcodeSize {
		rc.SetHalt(primitives.HaltCreateInitcodeSizeLimit)
		return
	}
	if !rc.ChargeMemory(off, size) {
		return
	}
	if !rc.GasMeter.Charge(gas.InitcodeGas(gas.WordCount(size))) {
		rc.SetHalt(primitives.HaltOutOfGasCreate)
		return
	}
	var salt *uint256.Int
	if kind == runtime.FrameCreate2 {
		salt = m.val(args[3])
		cost, err := gas.Keccak256Gas(gas.WordCount(size))
		if err != nil || !rc.GasMeter.Charge(cost) {
			rc.SetHalt(primitives.HaltOutOfGasBasic)
			return
		}
	}
	addr, ok := rc.Create(kind, value, off, size, salt)
	if !ok {
		m.setEVM(op, new(uint256.Int))
		return
	}
	m.setEVM(op, wordFromAddr(addr))
}

// finish reads (off, size) for RETURN/REVERT and records this frame's
// terminal outcome; the call-frame handler reads m.output back out of the
// ExecutionResult, not out of Memory directly.
func (m *machine) finish(rc *runtime.RuntimeContext, outcome primitives.Outcome, reason primitives.SuccessReason, args []ir.Value) {
	off, ok1 := u64(m.val(args[0]))
	size, ok2 := u64(m.val(args[1]))
	if !ok1 || !ok2 || !rc.ChargeMemory(off, size) {
		return
	}
	m.output = rc.Memory.GetCopy(int64(off), int64(size))
	m.outcome = outcome
	m.successReason = reason
}
