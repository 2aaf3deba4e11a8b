package primitives

import "fmt"

// HaltReason is the closed set of ways execution can halt, reproduced from
// dora-runtime/src/result.rs. A Halt burns the frame's entire remaining gas;
// a Revert (below) does not and is not a HaltReason.
type HaltReason int

const (
	HaltOutOfGasBasic HaltReason = iota
	HaltOutOfGasMemory
	HaltOutOfGasMemoryLimit
	HaltOutOfGasPrecompile
	HaltOutOfGasCreate
	HaltOutOfGasInvalidOperand
	HaltOpcodeNotFound
	HaltInvalidFEOpcode
	HaltInvalidJump
	HaltNotActivated
	HaltStackUnderflow
	HaltStackOverflow
	HaltOutOfOffset
	HaltCreateCollision
	HaltPrecompileError
	HaltNonceOverflow
	HaltCreateContractSizeLimit
	HaltCreateContractStartingWithEF
	HaltCreateInitcodeSizeLimit
	HaltOverflowPayment
	HaltStateChangeDuringStaticcall
	HaltCallNotAllowedInsideStatic
	HaltOutOfFunds
	HaltCallTooDeep
	HaltEofAuxDataOverflow
	HaltEofAuxDataTooSmall
	HaltInvalidEofSubcontainerKind
	HaltInvalidEofTarget
)

var haltReasonNames = [...]string{
	"OutOfGas(Basic)", "OutOfGas(Memory)", "OutOfGas(MemoryLimit)",
	"OutOfGas(Precompile)", "OutOfGas(Create)", "OutOfGas(InvalidOperand)",
	"OpcodeNotFound", "InvalidFEOpcode", "InvalidJump", "NotActivated",
	"StackUnderflow", "StackOverflow", "OutOfOffset", "CreateCollision",
	"PrecompileError", "NonceOverflow", "CreateContractSizeLimit",
	"CreateContractStartingWithEF", "CreateInitcodeSizeLimit", "OverflowPayment",
	"StateChangeDuringStaticcall", "CallNotAllowedInsideStatic", "OutOfFunds",
	"CallTooDeep", "EofAuxDataOverflow", "EofAuxDataTooSmall",
	"InvalidEofSubcontainerKind", "InvalidEofTarget",
}

func (h HaltReason) String() string {
	if int(h) < 0 || int(h) >= len(haltReasonNames) {
		return fmt.Sprintf("HaltReason(%d)", int(h))
	}
	return haltReasonNames[h]
}

// SuccessReason distinguishes the ways a frame can finish without reverting.
type SuccessReason int

const (
	SuccessStop SuccessReason = iota
	SuccessReturn
	SuccessSelfdestruct
	SuccessEofReturnContract
)

func (s SuccessReason) String() string {
	switch s {
	case SuccessStop:
		return "Stop"
	case SuccessReturn:
		return "Return"
	case SuccessSelfdestruct:
		return "Selfdestruct"
	case SuccessEofReturnContract:
		return "EofReturnContract"
	default:
		return fmt.Sprintf("SuccessReason(%d)", int(s))
	}
}

// Outcome is the discriminant of ExecutionResult's tagged variant.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRevert
	OutcomeHalt
	OutcomeFatalExternalError
)

// ExecutionResult is the tagged variant returned by a completed frame:
// Success{reason, gas_used, gas_refunded, output, logs} | Revert{gas_used,
// output} | Halt{reason, gas_limit, gas_used} | FatalExternalError. It is a
// value, never a Go error — §7 of the spec is explicit that these flow
// through the call chain as data, not exceptions.
type ExecutionResult struct {
	Outcome Outcome

	// Success fields.
	SuccessReason SuccessReason
	GasRefunded   uint64
	Logs          []Log

	// Halt fields.
	HaltReason HaltReason
	GasLimit   uint64

	// Shared by Success/Revert/Halt.
	GasUsed uint64
	Output  Bytes

	// FatalExternalError fields.
	Err error
}

func (r ExecutionResult) IsSuccess() bool { return r.Outcome == OutcomeSuccess }
func (r ExecutionResult) IsRevert() bool  { return r.Outcome == OutcomeRevert }
func (r ExecutionResult) IsHalt() bool    { return r.Outcome == OutcomeHalt }
func (r ExecutionResult) IsFatal() bool   { return r.Outcome == OutcomeFatalExternalError }

// GasRemaining satisfies invariant 1 in spec.md §8: gas_used + gas_remaining
// equals gas_limit, with gas_remaining == 0 on Halt.
func (r ExecutionResult) GasRemaining() uint64 {
	if r.Outcome == OutcomeHalt {
		return 0
	}
	if r.GasLimit < r.GasUsed {
		return 0
	}
	return r.GasLimit - r.GasUsed
}

func Success(reason SuccessReason, gasLimit, gasUsed, gasRefunded uint64, output Bytes, logs []Log) ExecutionResult {
	return ExecutionResult{
		Outcome: OutcomeSuccess, SuccessReason: reason,
		GasLimit: gasLimit, GasUsed: gasUsed, GasRefunded: gasRefunded,
		Output: output, Logs: logs,
	}
}

func Revert(gasLimit, gasUsed uint64, output Bytes) ExecutionResult {
	return ExecutionResult{Outcome: OutcomeRevert, GasLimit: gasLimit, GasUsed: gasUsed, Output: output}
}

// Halt burns the frame's entire remaining gas: gas_used == gas_limit.
func Halt(reason HaltReason, gasLimit uint64) ExecutionResult {
	return ExecutionResult{Outcome: OutcomeHalt, HaltReason: reason, GasLimit: gasLimit, GasUsed: gasLimit}
}

func FatalError(err error) ExecutionResult {
	return ExecutionResult{Outcome: OutcomeFatalExternalError, Err: err}
}

// Log is a single emitted event record (LOG0..LOG4).
type Log struct {
	Address Address
	Topics  []Hash
	Data    Bytes
}

// ErrMaxCodeSizeExceeded is the error the call-frame handler's deploy step
// returns when deployed code is larger than MaxCodeSize.
var ErrMaxCodeSizeExceeded = fmt.Errorf("evm: max code size exceeded")

// ErrMaxInitCodeSizeExceeded is the EIP-3860 counterpart for initcode.
var ErrMaxInitCodeSizeExceeded = fmt.Errorf("evm: max initcode size exceeded")

// ErrDepth names a CALL/CREATE that would exceed MaxCallDepth. The engine
// itself does not return it: runtime reports that case as HaltCallTooDeep.
var ErrDepth = fmt.Errorf("evm: max call depth exceeded")

// ErrInsufficientBalance names a value-bearing call whose caller cannot
// cover the transferred value. The engine itself does not return it:
// runtime.RuntimeContext.Call reports that case by returning false.
var ErrInsufficientBalance = fmt.Errorf("evm: insufficient balance for transfer")

// ErrExecutionReverted wraps a Revert outcome as a Go error for callers that
// want the traditional error-returning call shape (see vm.EVM.Call).
var ErrExecutionReverted = fmt.Errorf("evm: execution reverted")
