// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package callframe

import (
	"bytes"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/evmfront"
	"github.com/vmlayer/engine/evmlower"
	"github.com/vmlayer/engine/interp"
	"github.com/vmlayer/engine/metrics"
	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/runtime"
	"github.com/vmlayer/engine/wasmfront"
)

// wasmMagic is the 4-byte header every WASM module starts with ("\0asm"),
// used to pick the front-end the way spec.md §4.5 step 2 says to ("select
// the front-end by bytecode kind (EVM vs. WASM)").
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// Handler is spec.md §4.5's call-frame handler: the runtime.CallHandler
// every tier-3 CALL/CREATE syscall and the top-level vm.EVM.Call dispatch
// through. It owns no state of its own beyond the artifact cache — the
// journal, database and environment it drives all live on the VMContext it
// is wired into.
type Handler struct {
	VM    *runtime.VMContext
	Cache *ArtifactCache

	callsTotal  metrics.CounterMeter
	gasUsedHist metrics.HistogramMeter
}

// NewHandler builds a Handler with its own artifact cache of the given
// size. Callers must set h.VM before the first Execute call — VMContext and
// Handler reference each other, so one of the two has to be constructed
// first and patched in (see vm.New).
func NewHandler(cacheSize int) *Handler {
	return &Handler{
		Cache:       NewArtifactCache(cacheSize),
		callsTotal:  metrics.Counter("calls_executed_total"),
		gasUsedHist: metrics.Histogram("call_gas_used", []float64{21000, 50000, 100000, 250000, 500000, 1000000, 5000000}),
	}
}

// Execute runs f to completion per spec.md §4.5's five-step algorithm,
// returning the deployed address for FrameCreate/FrameCreate2 (the zero
// address otherwise).
func (h *Handler) Execute(f runtime.Frame) (primitives.ExecutionResult, primitives.Address, error) {
	h.callsTotal.Add(1)
	checkpoint := h.VM.Journal.Snapshot()

	artifact, err := h.buildOrFetch(f)
	if err != nil {
		return primitives.FatalError(err), primitives.Address{}, err
	}

	rc := runtime.NewRuntimeContext(h.VM, f)
	defer rc.Release()

	result := interp.Run(artifact.Module, rc)
	h.gasUsedHist.Observe(int64(result.GasUsed))

	deployed := primitives.Address{}
	switch {
	case result.IsSuccess():
		if f.Kind == runtime.FrameCreate || f.Kind == runtime.FrameCreate2 {
			deployed, err = h.deploy(f, result.Output)
			if err != nil {
				h.VM.Journal.RevertToSnapshot(checkpoint)
				return primitives.FatalError(err), primitives.Address{}, err
			}
		}
		if err := h.finishSelfdestruct(rc); err != nil {
			h.VM.Journal.RevertToSnapshot(checkpoint)
			return primitives.FatalError(err), primitives.Address{}, err
		}
		h.VM.Journal.Commit(checkpoint)
	case result.IsRevert(), result.IsHalt():
		if rerr := h.VM.Journal.RevertToSnapshot(checkpoint); rerr != nil {
			return primitives.FatalError(rerr), primitives.Address{}, rerr
		}
	case result.IsFatal():
		h.VM.Journal.RevertToSnapshot(checkpoint)
		return result, primitives.Address{}, result.Err
	}
	return result, deployed, nil
}

// buildOrFetch is spec.md §4.5 step 2: look up the artifact for f.CodeHash,
// building (and caching) one if absent. CREATE/CREATE2 frames carry initcode
// that was never persisted under a code hash, so they are content-hashed
// here rather than trusting the (zero-valued) Frame.CodeHash.
func (h *Handler) buildOrFetch(f runtime.Frame) (*Artifact, error) {
	hash := f.CodeHash
	if f.Kind == runtime.FrameCreate || f.Kind == runtime.FrameCreate2 {
		hash = crypto.Keccak256Hash(f.Code)
	}
	return h.Cache.GetOrBuild(h.VM.DB, hash, func() (*Artifact, error) {
		if bytes.HasPrefix(f.Code, wasmMagic) {
			wmod, err := wasmfront.Decode(f.Code)
			if err != nil {
				return nil, errors.Wrap(err, "callframe: decoding WASM code")
			}
			mod, err := wasmfront.Lower(wmod)
			if err != nil {
				return nil, errors.Wrap(err, "callframe: lowering WASM code")
			}
			return &Artifact{Module: mod}, nil
		}
		prog := evmfront.Decode(f.Code)
		mod, err := evmlower.Lower(prog, h.VM.Gas)
		if err != nil {
			return nil, errors.Wrap(err, "callframe: lowering EVM code")
		}
		return &Artifact{Module: mod, IsEOF: prog.IsEOF}, nil
	})
}

// deploy installs a successful CREATE/CREATE2 frame's return data as the new
// contract's code, applying the EIP-170/EIP-3541 size and prefix checks
// (spec.md §4.6's "max code size" invariant, restated in SPEC_FULL.md §4's
// constants supplement).
func (h *Handler) deploy(f runtime.Frame, code []byte) (primitives.Address, error) {
	if len(code) > primitives.MaxCodeSize {
		return primitives.Address{}, primitives.ErrMaxCodeSizeExceeded
	}
	if len(code) > 0 && code[0] == 0xEF {
		return primitives.Address{}, errors.New("callframe: deployed code starts with the EOF prefix byte 0xef, which legacy CREATE may not produce")
	}
	hash := primitives.Hash{}
	if len(code) > 0 {
		hash = crypto.Keccak256Hash(code)
	}
	if err := h.VM.Journal.SetCode(f.Callee, code, hash); err != nil {
		return primitives.Address{}, err
	}
	return f.Callee, nil
}

// finishSelfdestruct applies the account deletion a successful frame's
// Selfdestruct syscall recorded (runtime.RuntimeContext.SelfdestructBeneficiary):
// the balance transfer already happened through the journal, so only the
// executing account's removal remains, performed here (at commit time, not
// inside the syscall) per journal.go's kindSelfdestruct comment.
func (h *Handler) finishSelfdestruct(rc *runtime.RuntimeContext) error {
	if rc.SelfdestructBeneficiary == nil {
		return nil
	}
	return h.VM.DB.DeleteAccount(rc.Frame.Callee)
}

var _ runtime.CallHandler = (*Handler)(nil)
