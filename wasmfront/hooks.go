// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package wasmfront

import (
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/ir"
	evmtier "github.com/vmlayer/engine/ir/evm"
)

// hostHook lowers one WASM `call` to an imported host function into the
// shared tier-3 builder, given the already-popped argument values in WASM's
// declared parameter order. It returns the values to push back, in WASM
// result order.
type hostHook func(e *evmtier.Builder, args []ir.Value) ([]ir.Value, error)

// hostHooks is spec.md §4.6's "small, fixed host-hook set roughly mirroring
// the EVM syscall surface": sload/sstore, call/delegatecall/staticcall,
// block-info getters, keccak256, return-data ops, log. Every hook is
// implemented by reusing ir/evm's Builder directly — the same tier-3 ops
// EVM lowering emits, and the same opcodes interp's execEVM dispatches —
// so a WASM contract reading storage or making a sub-call observes exactly
// the gas/journal/halt semantics an EVM contract would.
var hostHooks = map[string]hostHook{
	"sload": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		return []ir.Value{e.SLoad(a[0])}, nil
	},
	"sstore": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		e.SStore(a[0], a[1])
		return nil, nil
	},
	"tload": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		return []ir.Value{e.TLoad(a[0])}, nil
	},
	"tstore": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		e.TStore(a[0], a[1])
		return nil, nil
	},
	"call": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		if len(a) != 7 {
			return nil, errors.New("wasmfront: call hook expects (gas, addr, value, argsOff, argsSize, retOff, retSize)")
		}
		return []ir.Value{e.Call(a[0], a[1], a[2], a[3], a[4], a[5], a[6])}, nil
	},
	"delegatecall": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		if len(a) != 6 {
			return nil, errors.New("wasmfront: delegatecall hook expects (gas, addr, argsOff, argsSize, retOff, retSize)")
		}
		return []ir.Value{e.DelegateCall(a[0], a[1], a[2], a[3], a[4], a[5])}, nil
	},
	"staticcall": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		if len(a) != 6 {
			return nil, errors.New("wasmfront: staticcall hook expects (gas, addr, argsOff, argsSize, retOff, retSize)")
		}
		return []ir.Value{e.StaticCall(a[0], a[1], a[2], a[3], a[4], a[5])}, nil
	},
	"keccak256": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		if len(a) != 2 {
			return nil, errors.New("wasmfront: keccak256 hook expects (off, size)")
		}
		return []ir.Value{e.Keccak256(a[0], a[1])}, nil
	},
	"returndatasize": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		return []ir.Value{e.ReturnDataSize()}, nil
	},
	"returndatacopy": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		if len(a) != 3 {
			return nil, errors.New("wasmfront: returndatacopy hook expects (destOff, off, size)")
		}
		e.ReturnDataCopy(a[0], a[1], a[2])
		return nil, nil
	},
	"blocknumber": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		return []ir.Value{e.Number()}, nil
	},
	"timestamp": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		return []ir.Value{e.Timestamp()}, nil
	},
	"coinbase": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		return []ir.Value{e.Coinbase()}, nil
	},
	"gaslimit": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		return []ir.Value{e.GasLimit()}, nil
	},
	"basefee": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) {
		return []ir.Value{e.BaseFee()}, nil
	},
	"log0": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) { return logHook(e, 0, a) },
	"log1": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) { return logHook(e, 1, a) },
	"log2": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) { return logHook(e, 2, a) },
	"log3": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) { return logHook(e, 3, a) },
	"log4": func(e *evmtier.Builder, a []ir.Value) ([]ir.Value, error) { return logHook(e, 4, a) },
}

// logHook shares the off/size/topics... -> e.Log(n, ...) translation across
// the log0..log4 hooks; a's layout is (off, size, topic_0, ..., topic_{n-1}).
func logHook(e *evmtier.Builder, n int, a []ir.Value) ([]ir.Value, error) {
	if len(a) != 2+n {
		return nil, errors.Errorf("wasmfront: log%d hook expects (off, size, %d topics)", n, n)
	}
	e.Log(n, a[0], a[1], a[2:]...)
	return nil, nil
}
