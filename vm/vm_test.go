// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vm_test

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmlayer/engine/environment"
	"github.com/vmlayer/engine/gas"
	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/state"
	"github.com/vmlayer/engine/vm"
)

func newEVM(t *testing.T, code string) (*vm.EVM, primitives.Address, *state.MemDB) {
	t.Helper()
	b, err := hex.DecodeString(code)
	require.NoError(t, err)
	db := state.NewMemDB()
	callee := common.Address{0xc0}
	require.NoError(t, db.SetAccount(callee, state.Account{Code: b}))
	block := environment.BlockContext{GetHash: func(uint64) primitives.Hash { return primitives.Hash{} }}
	return vm.New(db, block, vm.Config{SpecID: gas.Prague}), callee, db
}

func call(t *testing.T, e *vm.EVM, callee primitives.Address, gasLimit uint64) primitives.ExecutionResult {
	t.Helper()
	tx := environment.TxContext{Origin: common.Address{0x0e}, GasPrice: uint256.NewInt(1), ChainID: uint256.NewInt(1)}
	result, _, _ := e.Call(tx, &callee, uint256.NewInt(0), nil, gasLimit)
	return result
}

// PUSH1 1; PUSH1 1; ADD — spec.md §8 scenario 1.
func TestAddScenario(t *testing.T) {
	e, callee, _ := newEVM(t, "6001600101")
	result := call(t, e, callee, 1_000_000)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, uint64(9), result.GasUsed)
}

// PUSH1 0xFF; PUSH1 0; MSTORE; PUSH1 1; PUSH1 0x1F; RETURN — scenario 2.
func TestReturnScenario(t *testing.T) {
	e, callee, _ := newEVM(t, "60FF6000526001601FF3")
	result := call(t, e, callee, 1_000_000)
	require.True(t, result.IsSuccess())
	assert.Equal(t, []byte{0xFF}, []byte(result.Output))
}

// PUSH1 0; PUSH1 0; DIV — division by zero never traps — scenario 3.
func TestDivByZeroScenario(t *testing.T) {
	e, callee, _ := newEVM(t, "600060000401")
	result := call(t, e, callee, 1_000_000)
	assert.True(t, result.IsSuccess())
}

// JUMPDEST; JUMP with no operand on the stack — scenario 4.
func TestJumpUnderflowScenario(t *testing.T) {
	e, callee, _ := newEVM(t, "5B56")
	result := call(t, e, callee, 1_000_000)
	require.True(t, result.IsHalt())
	assert.Equal(t, primitives.HaltStackUnderflow, result.HaltReason)
}

// PUSH1 3; PUSH1 0; REVERT — scenario 5.
func TestRevertScenario(t *testing.T) {
	e, callee, _ := newEVM(t, "60036000FD")
	result := call(t, e, callee, 1_000_000)
	require.True(t, result.IsRevert())
	assert.Equal(t, 3, len(result.Output))
	assert.Equal(t, []byte{0, 0, 0}, []byte(result.Output))
}

// PUSH1 0 (salt); PUSH1 0 (size); PUSH1 0 (offset); PUSH1 0 (value); CREATE2
// with an empty initcode — legal, and deploys an empty-code account.
func TestCreate2Scenario(t *testing.T) {
	e, callee, _ := newEVM(t, "6000600060006000F5")
	result := call(t, e, callee, 1_000_000)
	assert.True(t, result.IsSuccess())
}

// PUSH1 0 (size); PUSH1 0 (offset); PUSH1 0 (destOffset); RETURNDATACOPY
// copies zero bytes from an empty return-data buffer — legal, and a no-op
// on memory.
func TestReturnDataCopyEmptyBuffer(t *testing.T) {
	e, callee, _ := newEVM(t, "6000600060003E")
	result := call(t, e, callee, 1_000_000)
	assert.True(t, result.IsSuccess())
}

// PUSH1 0xAB; PUSH1 0; TSTORE; PUSH1 0; TLOAD — a value written to transient
// storage is visible to a TLOAD in the same call.
func TestTransientStorageRoundTrip(t *testing.T) {
	e, callee, _ := newEVM(t, "60AB60005D60005C")
	result := call(t, e, callee, 1_000_000)
	assert.True(t, result.IsSuccess())
}

// PUSH1 0xCD; PUSH1 0; MSTORE8; PUSH1 1 (size); PUSH1 0 (src); PUSH1 0 (dst);
// MCOPY; PUSH1 1; PUSH1 0; RETURN — MCOPY duplicates byte 0 to offset 0 (a
// no-op copy here) and the result is returned to confirm it round-trips.
func TestMCopyScenario(t *testing.T) {
	e, callee, _ := newEVM(t, "60CD6000536001600060005E60016000F3")
	result := call(t, e, callee, 1_000_000)
	require.True(t, result.IsSuccess())
	assert.Equal(t, []byte{0xCD}, []byte(result.Output))
}

// An out-of-gas CALL halts the frame rather than panicking.
func TestOutOfGasHalts(t *testing.T) {
	// PUSH1 1; PUSH1 1; ADD, run with a gas limit too small to pay for it.
	e, callee, _ := newEVM(t, "6001600101")
	result := call(t, e, callee, 2)
	require.True(t, result.IsHalt())
	assert.Equal(t, result.GasLimit, result.GasUsed)
}

func TestCreateDeploysCode(t *testing.T) {
	db := state.NewMemDB()
	block := environment.BlockContext{GetHash: func(uint64) primitives.Hash { return primitives.Hash{} }}
	e := vm.New(db, block, vm.Config{SpecID: gas.Prague})
	tx := environment.TxContext{Origin: common.Address{0x0e}, GasPrice: uint256.NewInt(1), ChainID: uint256.NewInt(1)}

	// Initcode: PUSH1 1; PUSH1 0; MSTORE8; PUSH1 1; PUSH1 0; RETURN — deploys
	// a single byte of runtime code (0x01).
	initcode, err := hex.DecodeString("600160005360016000F3")
	require.NoError(t, err)

	result, deployed, _ := e.Call(tx, nil, uint256.NewInt(0), initcode, 1_000_000)
	require.True(t, result.IsSuccess())
	assert.NotEqual(t, primitives.Address{}, deployed)

	acc, ok, err := db.GetAccount(deployed)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01}, acc.Code)
}
