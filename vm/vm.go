// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package vm is the engine's external-facing facade: it wires a
// state.Database, an environment.BlockContext/TxContext, a journal.Journal
// and a callframe.Handler into one EVM value and exposes the single
// operation an embedder actually needs — Call — per spec.md §6's external
// interfaces.
package vm

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/callframe"
	"github.com/vmlayer/engine/environment"
	"github.com/vmlayer/engine/gas"
	"github.com/vmlayer/engine/journal"
	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/runtime"
	"github.com/vmlayer/engine/state"
)

// Config selects the engine's tunable knobs: the hard-fork/spec id that
// fixes the active gas table and halt-reason set, and the artifact cache's
// capacity (spec.md §9 "Artifact cache... content-addressed... insert-if-
// absent").
type Config struct {
	SpecID        gas.SpecID
	ArtifactCache int // entries; <= 0 defaults to 1024 (see callframe.NewArtifactCache)
}

// EVM is one transaction-scoped execution engine: a fresh Journal and
// RuntimeContext tree are created per transaction, but the Handler's
// artifact cache lives as long as the EVM value and is reused by every Call
// made on it (spec.md §5 "the artifact cache is the only cross-frame shared
// mutable state"). Separate EVM values do not share a cache.
type EVM struct {
	db      state.Database
	block   environment.BlockContext
	cfg     Config
	handler *callframe.Handler
}

// New builds an EVM bound to db and cfg, with its own artifact cache. Reuse
// one EVM across every transaction in a block (or more) to keep the cache
// warm — constructing a new EVM per call throws the cache away.
func New(db state.Database, block environment.BlockContext, cfg Config) *EVM {
	return &EVM{
		db:      db,
		block:   block,
		cfg:     cfg,
		handler: callframe.NewHandler(cfg.ArtifactCache),
	}
}

// Call executes a top-level CALL against callee (or, if callee is nil, a
// CREATE using input as initcode), returning the execution result and — for
// a CREATE — the deployed address. State changes are committed directly to
// db on success and left untouched on revert/halt/fatal error, since the
// top-level call has no enclosing frame to roll back into.
func (e *EVM) Call(tx environment.TxContext, callee *primitives.Address, value *primitives.Word, input []byte, gasLimit uint64) (primitives.ExecutionResult, primitives.Address, error) {
	j := journal.New(e.db)
	vmCtx := &runtime.VMContext{
		DB:      e.db,
		Block:   e.block,
		Tx:      tx,
		Journal: j,
		Handler: e.handler,
		SpecID:  e.cfg.SpecID,
		Gas:     gas.NewTable(e.cfg.SpecID),
	}
	e.handler.VM = vmCtx

	kind := runtime.FrameCall
	target := primitives.Address{}
	code := []byte(nil)
	codeHash := primitives.Hash{}
	if callee == nil {
		kind = runtime.FrameCreate
		acc, ok, err := e.db.GetAccount(tx.Origin)
		if err != nil {
			return primitives.FatalError(err), primitives.Address{}, err
		}
		nonce := uint64(0)
		if ok {
			nonce = acc.Nonce
		}
		target = crypto.CreateAddress(tx.Origin, nonce)
		code = input
	} else {
		target = *callee
		acc, ok, err := e.db.GetAccount(target)
		if err != nil {
			return primitives.FatalError(err), primitives.Address{}, err
		}
		if ok {
			code, codeHash = acc.Code, acc.CodeHash
		}
	}

	f := runtime.Frame{
		Code: code, CodeHash: codeHash,
		Caller: tx.Origin, Callee: target,
		Value: value, Input: input,
		GasLimit: gasLimit, Depth: 0, Kind: kind,
	}

	result, deployed, err := e.handler.Execute(f)
	if err != nil {
		return result, primitives.Address{}, err
	}
	if result.IsRevert() {
		return result, deployed, errors.Wrap(primitives.ErrExecutionReverted, string(result.Output))
	}
	return result, deployed, nil
}
