// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"github.com/holiman/uint256"

	"github.com/vmlayer/engine/environment"
	"github.com/vmlayer/engine/gas"
	"github.com/vmlayer/engine/journal"
	"github.com/vmlayer/engine/metrics"
	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/state"
)

// FrameKind distinguishes the sub-call opcode that produced a Frame:
// CALL/CALLCODE/DELEGATECALL/STATICCALL move value and code context
// differently, and CREATE/CREATE2 carry no callee address yet (spec.md
// §4.1 "Sub-call").
type FrameKind int

const (
	FrameCall FrameKind = iota
	FrameCallCode
	FrameDelegateCall
	FrameStaticCall
	FrameCreate
	FrameCreate2
)

// Frame is spec.md §3's "Contract frame": {code bytes, code hash, caller,
// callee, call-value, input data, gas limit, depth, static flag, is-eof-init
// flag}, extended with enough routing information (Kind, Salt) for the
// call-frame handler to tell CALL apart from CREATE2.
type Frame struct {
	Code      []byte
	CodeHash  primitives.Hash
	Caller    primitives.Address
	Callee    primitives.Address
	Value     *primitives.Word
	Input     []byte
	GasLimit  uint64
	Depth     int
	Static    bool
	IsEOFInit bool
	Kind      FrameKind
	Salt      *primitives.Word // only meaningful for FrameCreate2
}

// CallHandler is the call-frame handler's interface as seen from inside a
// running frame. A tier-3 CALL/CREATE syscall invokes it to dispatch a
// nested Frame (spec.md §4.5); defining the interface here rather than in
// callframe lets RuntimeContext hold a back-reference without an import
// cycle — callframe.Handler is the only implementation.
type CallHandler interface {
	// Execute runs f to completion and returns its result plus, for
	// FrameCreate/FrameCreate2, the address the new code was installed
	// under (the zero address otherwise).
	Execute(f Frame) (primitives.ExecutionResult, primitives.Address, error)
}

// VMContext is the state shared by every frame in one transaction's call
// tree: the database, block/tx environment, journal, call-frame handler and
// selected spec id (spec.md §3 "Ownership & lifecycle": "RuntimeContext...
// holds a back-reference (non-owning) to the VMContext, which owns the
// database, environment, journal, and handler.").
type VMContext struct {
	DB      state.Database
	Block   environment.BlockContext
	Tx      environment.TxContext
	Journal *journal.Journal
	Handler CallHandler
	SpecID  gas.SpecID
	Gas     *gas.Table
	Metrics *metrics.Metrics
}

// RuntimeContext is the per-frame object every host syscall emitted by
// tier-3 lowering is implicitly called against (spec.md §4.4): it owns
// memory, the shadow operand stack, the gas counter and the return-data
// buffer, and holds a non-owning back-reference to the VMContext.
type RuntimeContext struct {
	VM    *VMContext
	Frame Frame

	Memory   *Memory
	memWords MemoryWords
	stack    *stack
	GasMeter *GasMeter

	ReturnData []byte

	// Halted/HaltReason record the first halt condition any syscall or the
	// lowering's own gas/stack checks hit; subsequent checks are no-ops so
	// the first failure wins, matching spec.md §4.4's "the next gas check,
	// or an explicit trampoline block, routes to the shared halt block".
	Halted     bool
	HaltReason primitives.HaltReason

	// FatalErr is set by a failed Database call — an external error, not an
	// EVM halt (spec.md §7): it unwinds the whole transaction rather than
	// just this frame.
	FatalErr error

	// SelfdestructBeneficiary is set by Selfdestruct; the call-frame
	// handler performs the actual account deletion at commit time (journal
	// undo for account *deletion* is intentionally not modeled — see
	// journal.go's kindSelfdestruct comment and DESIGN.md).
	SelfdestructBeneficiary *primitives.Address

	checkpoint int
}

// NewRuntimeContext builds the RuntimeContext for one activation of f
// against vm, per spec.md §4.5 step 3.
func NewRuntimeContext(vm *VMContext, f Frame) *RuntimeContext {
	return &RuntimeContext{
		VM:       vm,
		Frame:    f,
		Memory:   NewMemory(),
		stack:    newstack(),
		GasMeter: NewGasMeter(f.GasLimit),
	}
}

// Release returns pooled resources (the shadow stack) once the frame has
// finished executing.
func (rc *RuntimeContext) Release() { returnStack(rc.stack) }

// --- shadow-stack helpers; these are what tier-2's StackPush/Pop/Peek/
// PeekN/Exchange compile down to when interp executes them. ---

func (rc *RuntimeContext) Push(v *uint256.Int) { rc.stack.push(v) }
func (rc *RuntimeContext) Pop() uint256.Int     { return rc.stack.pop() }
func (rc *RuntimeContext) Peek() *uint256.Int   { return rc.stack.peek() }
func (rc *RuntimeContext) PeekN(n int) *uint256.Int {
	return rc.stack.Back(n)
}
func (rc *RuntimeContext) Exchange(a, b int) {
	sa, sb := rc.stack.Back(a), rc.stack.Back(b)
	*sa, *sb = *sb, *sa
}
func (rc *RuntimeContext) StackLen() int { return rc.stack.len() }

// SetHalt records reason as this frame's halt outcome. Idempotent: the
// first halt wins.
func (rc *RuntimeContext) SetHalt(reason primitives.HaltReason) {
	if !rc.Halted {
		rc.Halted = true
		rc.HaltReason = reason
	}
}

// SetFatal records an external error (database failure, artifact-build
// failure). Idempotent for the same reason as SetHalt.
func (rc *RuntimeContext) SetFatal(err error) {
	if rc.FatalErr == nil {
		rc.FatalErr = err
	}
}

// ChargeMemory grows Memory to cover [offset, offset+size), charging the
// incremental quadratic expansion cost first (spec.md §4.3 point 3). It is
// a no-op (and always ok) when size is zero, matching EVM semantics where a
// zero-length access never touches memory.
func (rc *RuntimeContext) ChargeMemory(offset, size uint64) bool {
	if rc.Halted || size == 0 {
		return !rc.Halted
	}
	newSize := offset + size
	if newSize < offset {
		rc.SetHalt(primitives.HaltOutOfGasInvalidOperand)
		return false
	}
	need := gas.WordCount(newSize) * 32
	if !rc.memWords.Charge(rc.GasMeter, uint64(rc.Memory.Len()), need) {
		rc.SetHalt(primitives.HaltOutOfGasMemory)
		return false
	}
	rc.Memory.Resize(need)
	return true
}
