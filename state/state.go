// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state is the durable-storage boundary the journal checkpoints
// against: account balances/nonces/code, per-account storage, transient
// storage, and the compiled-artifact cache (spec.md §3 "Artifact",
// "Ownership & lifecycle").
package state

import (
	"github.com/pkg/errors"

	"github.com/vmlayer/engine/primitives"
)

// Account is one contract or EOA's durable fields. CodeHash is the
// content-address the call-frame handler's artifact cache is keyed by.
type Account struct {
	Nonce    uint64
	Balance  *primitives.Word
	CodeHash primitives.Hash
	Code     []byte
}

// IsEmpty reports EIP-161 emptiness: zero nonce, zero balance, no code.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && len(a.Code) == 0
}

// Database is the fallible storage boundary beneath the journal. A
// database-read failure (as opposed to "key not found", which is reported
// via the ok bool) is always wrapped with github.com/pkg/errors so a
// FatalExternalError retains a causal chain back to the origin (spec.md §7).
type Database interface {
	GetAccount(addr primitives.Address) (Account, bool, error)
	SetAccount(addr primitives.Address, acc Account) error
	DeleteAccount(addr primitives.Address) error

	GetStorage(addr primitives.Address, key primitives.Hash) (primitives.Hash, error)
	SetStorage(addr primitives.Address, key, value primitives.Hash) error

	GetTransientStorage(addr primitives.Address, key primitives.Hash) primitives.Hash
	SetTransientStorage(addr primitives.Address, key, value primitives.Hash)

	GetBlockHash(number uint64) (primitives.Hash, error)

	// Artifact caching: content-addressed by code hash, so the call-frame
	// handler can memoize compilation (spec.md §4.5 point 2).
	GetArtifact(codeHash primitives.Hash) (any, bool)
	SetArtifact(codeHash primitives.Hash, artifact any)
}

// ErrAccountNotFound is returned by callers that need a hard failure where
// Database's (Account, false, nil) "doesn't exist" result isn't appropriate.
var ErrAccountNotFound = errors.New("state: account not found")
