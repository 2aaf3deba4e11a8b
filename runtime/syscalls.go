// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/vmlayer/engine/primitives"
)

// Symbol names for the host-syscall ABI (spec.md §4.4: "names fixed so that
// compiled code links deterministically"), reproduced from
// dora-runtime/src/symbols.rs. A real native backend would bind these at
// artifact-load time as linker-visible symbols; interp has no linker, so it
// dispatches to the methods below directly by the ir/evm.Name the lowering
// pass already stamped on the OpEVM payload. The constants exist purely to
// keep the naming correspondence documented and to appear in diagnostics.
const (
	SymMemoryExtend          = "memory_extend"
	SymKeccak256             = "keccak256_hash"
	SymStorageRead           = "storage_read"
	SymStorageWrite          = "storage_write"
	SymTransientStorageRead  = "transient_storage_read"
	SymTransientStorageWrite = "transient_storage_write"
	SymLogEmit               = "log_emit"
	SymCalldataPtr           = "calldata_ptr"
	SymCalldataSize          = "calldata_size"
	SymCodeCopy              = "code_copy"
	SymExtCodeCopy           = "extcodecopy"
	SymAddressPtr            = "address_ptr"
	SymGasLimit              = "gas_limit"
	SymStoreCallValue        = "store_callvalue"
	SymStoreBlobBaseFee      = "store_blobbasefee"
	SymStoreBalance          = "store_balance"
	SymStoreCoinbase         = "store_coinbase"
	SymStoreTimestamp        = "store_timestamp"
	SymStoreBaseFee          = "store_basefee"
	SymStoreCaller           = "store_caller"
	SymStoreOrigin           = "store_origin"
	SymStoreChainID          = "store_chainid"
	SymStoreGasPrice         = "store_gasprice"
	SymStoreBlockNumber      = "store_number"
	SymStoreSelfBalance      = "store_selfbalance"
	SymStorePrevrandao       = "store_prevrandao"
	SymStoreBlockHash        = "store_blockhash"
	SymStoreCodeHash         = "store_codehash"
	SymCall                  = "call"
	SymCreate                = "create"
	SymCreate2               = "create2"
	SymReturnDataSize        = "returndata_size"
	SymReturnDataCopy        = "returndata_copy"
	SymSelfdestruct          = "selfdestruct"
	SymWriteResult           = "write_result"
)

func (rc *RuntimeContext) account(addr primitives.Address) (balance *primitives.Word, code []byte, codeHash primitives.Hash) {
	acc, ok, err := rc.VM.DB.GetAccount(addr)
	if err != nil {
		rc.SetFatal(err)
		return primitives.ZeroWord(), nil, primitives.Hash{}
	}
	if !ok {
		return primitives.ZeroWord(), nil, primitives.Hash{}
	}
	return acc.Balance, acc.Code, acc.CodeHash
}

// Balance implements the "balance" tier-3 op (storage_read-class host call).
func (rc *RuntimeContext) Balance(addr primitives.Address) *primitives.Word {
	bal, _, _ := rc.account(addr)
	if bal == nil {
		return primitives.ZeroWord()
	}
	return bal
}

// SelfBalance reads the executing contract's own balance.
func (rc *RuntimeContext) SelfBalance() *primitives.Word { return rc.Balance(rc.Frame.Callee) }

// ExtCodeSize, ExtCodeHash, ExtCodeCopy read another account's code.
func (rc *RuntimeContext) ExtCodeSize(addr primitives.Address) uint64 {
	_, code, _ := rc.account(addr)
	return uint64(len(code))
}

func (rc *RuntimeContext) ExtCodeHash(addr primitives.Address) primitives.Hash {
	_, code, hash := rc.account(addr)
	if len(code) == 0 {
		return primitives.Hash{}
	}
	return hash
}

func (rc *RuntimeContext) ExtCodeCopy(addr primitives.Address, destOff, off, size uint64) {
	_, code, _ := rc.account(addr)
	rc.copyPadded(destOff, code, off, size)
}

// CodeCopy copies from the executing contract's own code.
func (rc *RuntimeContext) CodeCopy(destOff, off, size uint64) {
	rc.copyPadded(destOff, rc.Frame.Code, off, size)
}

// CalldataCopy copies from the frame's input data.
func (rc *RuntimeContext) CalldataCopy(destOff, off, size uint64) {
	rc.copyPadded(destOff, rc.Frame.Input, off, size)
}

// ReturnDataCopy copies from the most recent sub-call's return-data buffer.
// Unlike the other copy ops it does not zero-pad: when off+size exceeds
// len(ReturnData) it halts the frame with HaltOutOfOffset and returns false
// (EIP-211).
func (rc *RuntimeContext) ReturnDataCopy(destOff, off, size uint64) bool {
	if off+size > uint64(len(rc.ReturnData)) || off+size < off {
		rc.SetHalt(primitives.HaltOutOfOffset)
		return false
	}
	rc.Memory.Set(destOff, size, rc.ReturnData[off:off+size])
	return true
}

func (rc *RuntimeContext) copyPadded(destOff uint64, src []byte, off, size uint64) {
	if size == 0 {
		return
	}
	buf := make([]byte, size)
	if off < uint64(len(src)) {
		copy(buf, src[off:])
	}
	rc.Memory.Set(destOff, size, buf)
}

// Keccak256 hashes Memory[off:off+size] (the "keccak256_hash" syscall).
func (rc *RuntimeContext) Keccak256(off, size uint64) primitives.Hash {
	data := rc.Memory.GetPtr(int64(off), int64(size))
	return crypto.Keccak256Hash(data)
}

// SLoad / SStore / TLoad / TStore are the "storage_read"/"storage_write"/
// "transient_storage_read"/"transient_storage_write" syscalls.
func (rc *RuntimeContext) SLoad(slot *uint256.Int) *uint256.Int {
	key := primitives.Hash(slot.Bytes32())
	v, err := rc.VM.DB.GetStorage(rc.Frame.Callee, key)
	if err != nil {
		rc.SetFatal(err)
		return primitives.ZeroWord()
	}
	return primitives.WordFromBytes(v[:])
}

func (rc *RuntimeContext) SStore(slot, value *uint256.Int) {
	if rc.Frame.Static {
		rc.SetHalt(primitives.HaltStateChangeDuringStaticcall)
		return
	}
	key := primitives.Hash(slot.Bytes32())
	val := primitives.Hash(value.Bytes32())
	if err := rc.VM.Journal.SetStorage(rc.Frame.Callee, key, val); err != nil {
		rc.SetFatal(err)
	}
}

func (rc *RuntimeContext) TLoad(slot *uint256.Int) *uint256.Int {
	key := primitives.Hash(slot.Bytes32())
	v := rc.VM.DB.GetTransientStorage(rc.Frame.Callee, key)
	return primitives.WordFromBytes(v[:])
}

func (rc *RuntimeContext) TStore(slot, value *uint256.Int) {
	if rc.Frame.Static {
		rc.SetHalt(primitives.HaltStateChangeDuringStaticcall)
		return
	}
	key := primitives.Hash(slot.Bytes32())
	val := primitives.Hash(value.Bytes32())
	rc.VM.Journal.SetTransientStorage(rc.Frame.Callee, key, val)
}

// BlockHash implements the "blockhash" op: zero outside the
// primitives.BlockHashLookback window, per spec.md §6.
func (rc *RuntimeContext) BlockHash(number uint64) primitives.Hash {
	cur := rc.VM.Block.Number
	if number >= cur || cur-number > primitives.BlockHashLookback {
		return primitives.Hash{}
	}
	if rc.VM.Block.GetHash == nil {
		return primitives.Hash{}
	}
	return rc.VM.Block.GetHash(number)
}

// Log is the "log_emit" syscall (LOG0..LOG4).
func (rc *RuntimeContext) Log(topics []primitives.Hash, data []byte) {
	if rc.Frame.Static {
		rc.SetHalt(primitives.HaltStateChangeDuringStaticcall)
		return
	}
	rc.VM.Journal.AddLog(primitives.Log{
		Address: rc.Frame.Callee,
		Topics:  topics,
		Data:    append([]byte(nil), data...),
	})
}

// Selfdestruct is the "selfdestruct" syscall: transfers the executing
// contract's entire balance to beneficiary and records beneficiary for the
// call-frame handler to finish the account deletion on commit (spec.md §9
// "the journal... whether the artifact cache participates" is a separate
// question; this one is answered directly by spec.md §4.4's "the next gas
// check... routes to the shared halt block" pattern reused here for the
// static check).
func (rc *RuntimeContext) Selfdestruct(beneficiary primitives.Address) {
	if rc.Frame.Static {
		rc.SetHalt(primitives.HaltStateChangeDuringStaticcall)
		return
	}
	bal := rc.Balance(rc.Frame.Callee)
	if rc.FatalErr != nil {
		return
	}
	if err := rc.VM.Journal.SetBalance(rc.Frame.Callee, primitives.ZeroWord()); err != nil {
		rc.SetFatal(err)
		return
	}
	if beneficiary != rc.Frame.Callee {
		benBal := rc.Balance(beneficiary)
		if rc.FatalErr != nil {
			return
		}
		sum := new(uint256.Int).Add(benBal, bal)
		if err := rc.VM.Journal.SetBalance(beneficiary, sum); err != nil {
			rc.SetFatal(err)
			return
		}
	}
	b := beneficiary
	rc.SelfdestructBeneficiary = &b
}

// Call dispatches a CALL/CALLCODE/DELEGATECALL/STATICCALL sub-call through
// the VMContext's CallHandler (spec.md §4.5, §6). gasReq is forwarded to the
// callee unchanged: interp's dispatchCall has already applied the 63/64
// gas-forwarding rule and the call stipend before calling it.
func (rc *RuntimeContext) Call(kind FrameKind, gasReq uint64, addr primitives.Address, value *primitives.Word, argsOff, argsSize, retOff, retSize uint64) bool {
	if rc.Frame.Depth+1 >= primitives.MaxCallDepth {
		rc.SetHalt(primitives.HaltCallTooDeep)
		return false
	}
	static := rc.Frame.Static || kind == FrameStaticCall
	if kind == FrameCall && value != nil && !value.IsZero() && rc.Frame.Static {
		rc.SetHalt(primitives.HaltCallNotAllowedInsideStatic)
		return false
	}
	input := rc.Memory.GetCopy(int64(argsOff), int64(argsSize))

	caller := rc.Frame.Callee
	callee := addr
	if kind == FrameDelegateCall || kind == FrameCallCode {
		callee = rc.Frame.Callee // code executes in this frame's storage context for DELEGATECALL
	}
	_, code, codeHash := rc.account(addr)
	if rc.FatalErr != nil {
		return false
	}

	if value != nil && !value.IsZero() {
		bal := rc.Balance(rc.Frame.Callee)
		if bal.Lt(value) {
			rc.ReturnData = nil
			return false
		}
	}

	f := Frame{
		Code: code, CodeHash: codeHash,
		Caller: caller, Callee: callee,
		Value: value, Input: input,
		GasLimit: gasReq, Depth: rc.Frame.Depth + 1, Static: static, Kind: kind,
	}
	if kind == FrameDelegateCall {
		f.Caller = rc.Frame.Caller
		f.Value = rc.Frame.Value
	}

	result, _, err := rc.VM.Handler.Execute(f)
	if err != nil {
		rc.SetFatal(err)
		return false
	}
	rc.ReturnData = result.Output
	rc.Memory.Set(retOff, minU64(retSize, uint64(len(result.Output))), result.Output)
	rc.GasMeter.Charge(result.GasUsed)
	// result.GasRefunded is the transaction-wide refund counter as of when
	// the callee finished (see interp's result()), not a per-frame delta —
	// the refund itself was already applied directly to the shared journal
	// wherever the SSTORE happened, so it must not be re-added here.
	return result.IsSuccess()
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Create / Create2 dispatch contract-creation sub-calls; the new address is
// computed the standard Ethereum way (RLP(sender,nonce) or
// keccak(0xff,sender,salt,keccak(initcode))).
func (rc *RuntimeContext) Create(kind FrameKind, value *primitives.Word, off, size uint64, salt *primitives.Word) (primitives.Address, bool) {
	if rc.Frame.Depth+1 >= primitives.MaxCallDepth {
		rc.SetHalt(primitives.HaltCallTooDeep)
		return primitives.Address{}, false
	}
	if rc.Frame.Static {
		rc.SetHalt(primitives.HaltStateChangeDuringStaticcall)
		return primitives.Address{}, false
	}
	if size > primitives.MaxInitcodeSize {
		rc.SetHalt(primitives.HaltCreateContractSizeLimit)
		return primitives.Address{}, false
	}
	initcode := rc.Memory.GetCopy(int64(off), int64(size))

	acc, ok, err := rc.VM.DB.GetAccount(rc.Frame.Callee)
	if err != nil {
		rc.SetFatal(err)
		return primitives.Address{}, false
	}
	nonce := uint64(0)
	if ok {
		nonce = acc.Nonce
	}
	var newAddr primitives.Address
	if kind == FrameCreate2 {
		newAddr = crypto.CreateAddress2(rc.Frame.Callee, salt.Bytes32(), crypto.Keccak256(initcode))
	} else {
		newAddr = crypto.CreateAddress(rc.Frame.Callee, nonce)
	}
	if err := rc.VM.Journal.SetNonce(rc.Frame.Callee, nonce+1); err != nil {
		rc.SetFatal(err)
		return primitives.Address{}, false
	}
	if existing, ok, _ := rc.VM.DB.GetAccount(newAddr); ok && (len(existing.Code) > 0 || existing.Nonce > 0) {
		rc.SetHalt(primitives.HaltCreateCollision)
		return primitives.Address{}, false
	}

	f := Frame{
		Code: initcode, Caller: rc.Frame.Callee, Callee: newAddr,
		Value: value, GasLimit: rc.GasMeter.Remaining(), Depth: rc.Frame.Depth + 1,
		Kind: kind, Salt: salt, IsEOFInit: rc.Frame.IsEOFInit,
	}
	result, _, err := rc.VM.Handler.Execute(f)
	if err != nil {
		rc.SetFatal(err)
		return primitives.Address{}, false
	}
	rc.ReturnData = result.Output
	rc.GasMeter.Charge(result.GasUsed)
	if !result.IsSuccess() {
		return primitives.Address{}, false
	}
	return newAddr, true
}
