// Package evm is tier 3 of the IR builder: one operation per EVM opcode
// family (spec.md §4.1). It is built strictly on top of ir.Builder — every
// method here ends by calling Builder.EmitRaw with an ir.OpEVM op carrying an
// *Op payload, so EVM semantics never leak into the shared ir package and
// interp has a single dispatch point for them.
package evm

import "github.com/vmlayer/engine/ir"

// Family groups opcodes the way spec.md §4.1 groups tier 3. It is not
// attached to emitted instructions: Op carries only the Name (in its Family
// field), and evmlower emits gas and stack checks as separate
// OpChargeGas/OpCheckStack ops.
type Family int

const (
	FamilyEnv Family = iota
	FamilyData
	FamilyMemory
	FamilyStorage
	FamilyCrypto
	FamilyLog
	FamilyCall
	FamilyTerminate
)

// Name is the specific tier-3 operation, e.g. "sload", "calldatacopy".
type Name string

const (
	NameAddress        Name = "address"
	NameCaller         Name = "caller"
	NameCallValue      Name = "callvalue"
	NameOrigin         Name = "origin"
	NameGas            Name = "gas"
	NameGasPrice       Name = "gasprice"
	NameChainID        Name = "chainid"
	NameCoinbase       Name = "coinbase"
	NameTimestamp      Name = "timestamp"
	NameNumber         Name = "number"
	NamePrevrandao     Name = "prevrandao"
	NameGasLimit       Name = "gaslimit"
	NameBaseFee        Name = "basefee"
	NameBlobBaseFee    Name = "blobbasefee"
	NameBlobHash       Name = "blobhash"
	NameBlockHash      Name = "blockhash"
	NameSelfBalance    Name = "selfbalance"
	NameBalance        Name = "balance"
	NameCodeSize       Name = "codesize"
	NameExtCodeSize    Name = "extcodesize"
	NameExtCodeHash    Name = "extcodehash"

	NameCalldataLoad   Name = "calldataload"
	NameCalldataSize   Name = "calldatasize"
	NameCalldataCopy   Name = "calldatacopy"
	NameCodeCopy       Name = "codecopy"
	NameExtCodeCopy    Name = "extcodecopy"
	NameReturnDataSize Name = "returndatasize"
	NameReturnDataLoad Name = "returndataload"
	NameReturnDataCopy Name = "returndatacopy"

	NameMLoad  Name = "mload"
	NameMStore Name = "mstore"
	NameMStore8 Name = "mstore8"
	NameMSize  Name = "msize"
	NameMCopy  Name = "mcopy"

	NameSLoad  Name = "sload"
	NameSStore Name = "sstore"
	NameTLoad  Name = "tload"
	NameTStore Name = "tstore"

	NameKeccak256 Name = "keccak256"

	NameLog0 Name = "log0"
	NameLog1 Name = "log1"
	NameLog2 Name = "log2"
	NameLog3 Name = "log3"
	NameLog4 Name = "log4"

	NameCall         Name = "call"
	NameCallCode     Name = "callcode"
	NameDelegateCall Name = "delegatecall"
	NameStaticCall   Name = "staticcall"
	NameCreate       Name = "create"
	NameCreate2      Name = "create2"

	NameReturn       Name = "creturn"
	NameRevert       Name = "revert"
	NameStop         Name = "stop"
	NameSelfdestruct Name = "selfdestruct"
	NameInvalid      Name = "invalid"
)

// Op is the tier-3 payload embedded in ir.Op.Payload whenever
// ir.Op.Opcode == ir.OpEVM. interp type-switches on Family/Name to route to
// the right runtime syscall (runtime/syscalls.go).
type Op struct {
	Family Name
	Args   []ir.Value
	PC     uint64 // bytecode offset slot for tracers/diagnostics; the Builder methods leave it 0
}

// Builder is tier 3: one method per opcode family named in spec.md §4.1.
// It holds the ir.Builder (B) that every method splices its OpEVM
// instruction into, and no other state; evmlower and wasmfront each create
// one per lowered function.
type Builder struct {
	B ir.Builder
}

func New(b ir.Builder) *Builder { return &Builder{B: b} }

func (e *Builder) op1(name Name, t ir.Type) ir.Value {
	res := ir.Value{Type: t}
	v, _ := e.B.EmitRaw(ir.Op{Opcode: ir.OpEVM, Result: &res, Payload: &Op{Family: name}})
	return v
}

func (e *Builder) opArgs(name Name, t ir.Type, args ...ir.Value) ir.Value {
	res := ir.Value{Type: t}
	v, _ := e.B.EmitRaw(ir.Op{Opcode: ir.OpEVM, Result: &res, Payload: &Op{Family: name, Args: args}})
	return v
}

func (e *Builder) opVoid(name Name, args ...ir.Value) {
	e.B.EmitRaw(ir.Op{Opcode: ir.OpEVM, Payload: &Op{Family: name, Args: args}})
}

// --- Environment introspection ---

func (e *Builder) Address() ir.Value     { return e.op1(NameAddress, ir.Ptr) }
func (e *Builder) Caller() ir.Value      { return e.op1(NameCaller, ir.Ptr) }
func (e *Builder) CallValue() ir.Value   { return e.op1(NameCallValue, ir.I256) }
func (e *Builder) Origin() ir.Value      { return e.op1(NameOrigin, ir.Ptr) }
func (e *Builder) Gas() ir.Value         { return e.op1(NameGas, ir.I64) }
func (e *Builder) GasPrice() ir.Value    { return e.op1(NameGasPrice, ir.I256) }
func (e *Builder) ChainID() ir.Value     { return e.op1(NameChainID, ir.I256) }
func (e *Builder) Coinbase() ir.Value    { return e.op1(NameCoinbase, ir.Ptr) }
func (e *Builder) Timestamp() ir.Value   { return e.op1(NameTimestamp, ir.I64) }
func (e *Builder) Number() ir.Value      { return e.op1(NameNumber, ir.I64) }
func (e *Builder) Prevrandao() ir.Value  { return e.op1(NamePrevrandao, ir.I256) }
func (e *Builder) GasLimit() ir.Value    { return e.op1(NameGasLimit, ir.I64) }
func (e *Builder) BaseFee() ir.Value     { return e.op1(NameBaseFee, ir.I256) }
func (e *Builder) BlobBaseFee() ir.Value { return e.op1(NameBlobBaseFee, ir.I256) }
func (e *Builder) BlobHash(idx ir.Value) ir.Value {
	return e.opArgs(NameBlobHash, ir.I256, idx)
}
func (e *Builder) BlockHash(num ir.Value) ir.Value {
	return e.opArgs(NameBlockHash, ir.I256, num)
}
func (e *Builder) SelfBalance() ir.Value { return e.op1(NameSelfBalance, ir.I256) }
func (e *Builder) Balance(addr ir.Value) ir.Value {
	return e.opArgs(NameBalance, ir.I256, addr)
}
func (e *Builder) CodeSize() ir.Value { return e.op1(NameCodeSize, ir.I64) }
func (e *Builder) ExtCodeSize(addr ir.Value) ir.Value {
	return e.opArgs(NameExtCodeSize, ir.I64, addr)
}
func (e *Builder) ExtCodeHash(addr ir.Value) ir.Value {
	return e.opArgs(NameExtCodeHash, ir.I256, addr)
}

// --- Data access ---

func (e *Builder) CalldataLoad(off ir.Value) ir.Value {
	return e.opArgs(NameCalldataLoad, ir.I256, off)
}
func (e *Builder) CalldataSize() ir.Value { return e.op1(NameCalldataSize, ir.I64) }
func (e *Builder) CalldataCopy(destOff, off, size ir.Value) {
	e.opVoid(NameCalldataCopy, destOff, off, size)
}
func (e *Builder) CodeCopy(destOff, off, size ir.Value) {
	e.opVoid(NameCodeCopy, destOff, off, size)
}
func (e *Builder) ExtCodeCopy(addr, destOff, off, size ir.Value) {
	e.opVoid(NameExtCodeCopy, addr, destOff, off, size)
}
func (e *Builder) ReturnDataSize() ir.Value { return e.op1(NameReturnDataSize, ir.I64) }
func (e *Builder) ReturnDataLoad(off ir.Value) ir.Value {
	return e.opArgs(NameReturnDataLoad, ir.I256, off)
}
func (e *Builder) ReturnDataCopy(destOff, off, size ir.Value) {
	e.opVoid(NameReturnDataCopy, destOff, off, size)
}

// --- Memory ---

func (e *Builder) MLoad(off ir.Value) ir.Value { return e.opArgs(NameMLoad, ir.I256, off) }
func (e *Builder) MStore(off, v ir.Value)       { e.opVoid(NameMStore, off, v) }
func (e *Builder) MStore8(off, v ir.Value)      { e.opVoid(NameMStore8, off, v) }
func (e *Builder) MSize() ir.Value              { return e.op1(NameMSize, ir.I64) }
func (e *Builder) MCopy(dst, src, size ir.Value) { e.opVoid(NameMCopy, dst, src, size) }

// --- Storage ---

func (e *Builder) SLoad(slot ir.Value) ir.Value { return e.opArgs(NameSLoad, ir.I256, slot) }
func (e *Builder) SStore(slot, v ir.Value)       { e.opVoid(NameSStore, slot, v) }
func (e *Builder) TLoad(slot ir.Value) ir.Value  { return e.opArgs(NameTLoad, ir.I256, slot) }
func (e *Builder) TStore(slot, v ir.Value)       { e.opVoid(NameTStore, slot, v) }

// --- Crypto ---

func (e *Builder) Keccak256(off, size ir.Value) ir.Value {
	return e.opArgs(NameKeccak256, ir.I256, off, size)
}

// --- Logging ---

func (e *Builder) Log(n int, off, size ir.Value, topics ...ir.Value) {
	args := append([]ir.Value{off, size}, topics...)
	var name Name
	switch n {
	case 0:
		name = NameLog0
	case 1:
		name = NameLog1
	case 2:
		name = NameLog2
	case 3:
		name = NameLog3
	case 4:
		name = NameLog4
	default:
		panic("evm: LOG topic count out of range")
	}
	e.opVoid(name, args...)
}

// --- Sub-call ---

func (e *Builder) Call(gas, addr, value, argsOff, argsSize, retOff, retSize ir.Value) ir.Value {
	return e.opArgs(NameCall, ir.I1, gas, addr, value, argsOff, argsSize, retOff, retSize)
}
func (e *Builder) CallCode(gas, addr, value, argsOff, argsSize, retOff, retSize ir.Value) ir.Value {
	return e.opArgs(NameCallCode, ir.I1, gas, addr, value, argsOff, argsSize, retOff, retSize)
}
func (e *Builder) DelegateCall(gas, addr, argsOff, argsSize, retOff, retSize ir.Value) ir.Value {
	return e.opArgs(NameDelegateCall, ir.I1, gas, addr, argsOff, argsSize, retOff, retSize)
}
func (e *Builder) StaticCall(gas, addr, argsOff, argsSize, retOff, retSize ir.Value) ir.Value {
	return e.opArgs(NameStaticCall, ir.I1, gas, addr, argsOff, argsSize, retOff, retSize)
}
func (e *Builder) Create(value, off, size ir.Value) ir.Value {
	return e.opArgs(NameCreate, ir.Ptr, value, off, size)
}
func (e *Builder) Create2(value, off, size, salt ir.Value) ir.Value {
	return e.opArgs(NameCreate2, ir.Ptr, value, off, size, salt)
}

// --- Termination ---

func (e *Builder) CReturn(off, size ir.Value) { e.opVoid(NameReturn, off, size) }
func (e *Builder) Revert(off, size ir.Value)  { e.opVoid(NameRevert, off, size) }
func (e *Builder) Stop()                      { e.opVoid(NameStop) }
func (e *Builder) Selfdestruct(beneficiary ir.Value) {
	e.opVoid(NameSelfdestruct, beneficiary)
}
func (e *Builder) Invalid() { e.opVoid(NameInvalid) }
