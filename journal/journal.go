// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package journal is the undo log behind every call frame's state changes
// (spec.md §3 "Ownership & lifecycle": "The journal owns a stack of
// checkpoints; each sub-call pushes one, commit drops it, revert pops and
// reverses."). It is modeled on the checkpoint-stack pattern the retrieval
// pack's vm/snapshot and vm/state packages exercised (AddSnapshot/Fullback,
// Snapshot/RevertToSnapshot), generalized to a typed undo-record log instead
// of whole-state copies.
package journal

import (
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/state"
)

// entryKind tags what kind of change an entry undoes.
type entryKind int

const (
	kindBalance entryKind = iota
	kindNonce
	kindCode
	kindStorage
	kindTransientStorage
	kindRefund
	kindLog
	kindAccountCreated
	kindSelfdestruct
)

// entry is one undo record: enough state to restore the prior value of
// whatever field changed, without needing a full account snapshot.
type entry struct {
	kind    entryKind
	addr    primitives.Address
	key     primitives.Hash
	prev    primitives.Hash
	prevWord *primitives.Word
	prevU64 uint64
	prevCode []byte
	prevCodeHash primitives.Hash
	logIndex int
}

// Journal wraps a state.Database with checkpoint/commit/revert semantics.
// Every sub-call pushes a checkpoint before mutating state; on success the
// call-frame handler commits (drops the checkpoint, keeping the changes),
// on revert/halt it calls RevertToSnapshot (undoes every entry back to the
// checkpoint), per spec.md §4.5's final step.
type Journal struct {
	db          state.Database
	entries     []entry
	checkpoints []int // each checkpoint is an index into entries
	refund      uint64
	logs        []primitives.Log
}

func New(db state.Database) *Journal {
	return &Journal{db: db}
}

// Snapshot pushes a new checkpoint and returns its id (the checkpoint
// stack's current depth), mirroring vm/snapshot's AddSnapshot/vm/state's
// Snapshot() numbering.
func (j *Journal) Snapshot() int {
	id := len(j.checkpoints)
	j.checkpoints = append(j.checkpoints, len(j.entries))
	return id
}

// Commit drops the checkpoint at id and everything above it, keeping all
// recorded changes (they become part of the enclosing frame's own
// checkpoint, or final if id was the outermost one).
func (j *Journal) Commit(id int) {
	if id >= len(j.checkpoints) {
		return
	}
	j.checkpoints = j.checkpoints[:id]
}

// RevertToSnapshot undoes every entry recorded since checkpoint id, in
// reverse order, then drops the checkpoint.
func (j *Journal) RevertToSnapshot(id int) error {
	if id >= len(j.checkpoints) {
		return errors.Errorf("journal: no such checkpoint %d", id)
	}
	mark := j.checkpoints[id]
	for i := len(j.entries) - 1; i >= mark; i-- {
		if err := j.undo(j.entries[i]); err != nil {
			return errors.Wrap(err, "journal: revert")
		}
	}
	j.entries = j.entries[:mark]
	j.checkpoints = j.checkpoints[:id]
	return nil
}

func (j *Journal) undo(e entry) error {
	switch e.kind {
	case kindBalance:
		acc, ok, err := j.db.GetAccount(e.addr)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		acc.Balance = e.prevWord
		return j.db.SetAccount(e.addr, acc)
	case kindNonce:
		acc, ok, err := j.db.GetAccount(e.addr)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		acc.Nonce = e.prevU64
		return j.db.SetAccount(e.addr, acc)
	case kindCode:
		acc, ok, err := j.db.GetAccount(e.addr)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		acc.Code = e.prevCode
		acc.CodeHash = e.prevCodeHash
		return j.db.SetAccount(e.addr, acc)
	case kindStorage:
		return j.db.SetStorage(e.addr, e.key, e.prev)
	case kindTransientStorage:
		j.db.SetTransientStorage(e.addr, e.key, e.prev)
		return nil
	case kindRefund:
		j.refund = e.prevU64
		return nil
	case kindLog:
		j.logs = j.logs[:e.logIndex]
		return nil
	case kindAccountCreated:
		return j.db.DeleteAccount(e.addr)
	case kindSelfdestruct:
		// Selfdestruct's account deletion is applied at frame-commit time by
		// the call-frame handler, not here; reverting it only needs to undo
		// the balance transfer, already recorded as a separate kindBalance
		// entry pair.
		return nil
	}
	return nil
}

// --- Mutators: every state change a tier-3 syscall can cause goes through
// one of these, so it is automatically undoable. ---

func (j *Journal) SetBalance(addr primitives.Address, balance *primitives.Word) error {
	acc, ok, err := j.db.GetAccount(addr)
	if err != nil {
		return err
	}
	prev := primitives.ZeroWord()
	created := !ok
	if ok {
		prev = acc.Balance
	}
	j.entries = append(j.entries, entry{kind: kindBalance, addr: addr, prevWord: prev})
	if created {
		j.entries = append(j.entries, entry{kind: kindAccountCreated, addr: addr})
	}
	acc.Balance = balance
	return j.db.SetAccount(addr, acc)
}

func (j *Journal) SetNonce(addr primitives.Address, nonce uint64) error {
	acc, ok, err := j.db.GetAccount(addr)
	if err != nil {
		return err
	}
	prev := uint64(0)
	if ok {
		prev = acc.Nonce
	}
	j.entries = append(j.entries, entry{kind: kindNonce, addr: addr, prevU64: prev})
	acc.Nonce = nonce
	return j.db.SetAccount(addr, acc)
}

func (j *Journal) SetCode(addr primitives.Address, code []byte, codeHash primitives.Hash) error {
	acc, ok, err := j.db.GetAccount(addr)
	if err != nil {
		return err
	}
	var prevCode []byte
	var prevHash primitives.Hash
	if ok {
		prevCode, prevHash = acc.Code, acc.CodeHash
	}
	j.entries = append(j.entries, entry{kind: kindCode, addr: addr, prevCode: prevCode, prevCodeHash: prevHash})
	acc.Code, acc.CodeHash = code, codeHash
	return j.db.SetAccount(addr, acc)
}

func (j *Journal) SetStorage(addr primitives.Address, key, value primitives.Hash) error {
	prev, err := j.db.GetStorage(addr, key)
	if err != nil {
		return err
	}
	if prev == value {
		return nil
	}
	j.entries = append(j.entries, entry{kind: kindStorage, addr: addr, key: key, prev: prev})
	return j.db.SetStorage(addr, key, value)
}

func (j *Journal) SetTransientStorage(addr primitives.Address, key, value primitives.Hash) {
	prev := j.db.GetTransientStorage(addr, key)
	if prev == value {
		return
	}
	j.entries = append(j.entries, entry{kind: kindTransientStorage, addr: addr, key: key, prev: prev})
	j.db.SetTransientStorage(addr, key, value)
}

// AddRefund accumulates a gas refund (SSTORE clears, per EIP-3529); refunds
// are undone like everything else on revert.
func (j *Journal) AddRefund(amount uint64) {
	j.entries = append(j.entries, entry{kind: kindRefund, prevU64: j.refund})
	j.refund += amount
}

func (j *Journal) Refund() uint64 { return j.refund }

// AddLog appends a log entry emitted by LOG0..LOG4; reverted along with
// everything else recorded after the same checkpoint.
func (j *Journal) AddLog(log primitives.Log) {
	j.entries = append(j.entries, entry{kind: kindLog, logIndex: len(j.logs)})
	j.logs = append(j.logs, log)
}

func (j *Journal) Logs() []primitives.Log { return j.logs }

func (j *Journal) Database() state.Database { return j.db }
