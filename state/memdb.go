// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"sync"

	"github.com/vmlayer/engine/primitives"
)

// MemDB is a reference, in-memory Database implementation: the engine's
// embedders are expected to bring their own trie/KV-backed Database, but
// this one is enough to drive the engine standalone (cmd/evmdebug) and to
// exercise callframe/journal in tests without a real storage backend.
type MemDB struct {
	mu         sync.RWMutex
	accounts   map[primitives.Address]Account
	storage    map[primitives.Address]map[primitives.Hash]primitives.Hash
	transient  map[primitives.Address]map[primitives.Hash]primitives.Hash
	blockHashes map[uint64]primitives.Hash
	artifacts  map[primitives.Hash]any
}

func NewMemDB() *MemDB {
	return &MemDB{
		accounts:    make(map[primitives.Address]Account),
		storage:     make(map[primitives.Address]map[primitives.Hash]primitives.Hash),
		transient:   make(map[primitives.Address]map[primitives.Hash]primitives.Hash),
		blockHashes: make(map[uint64]primitives.Hash),
		artifacts:   make(map[primitives.Hash]any),
	}
}

func (db *MemDB) GetAccount(addr primitives.Address) (Account, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	acc, ok := db.accounts[addr]
	return acc, ok, nil
}

func (db *MemDB) SetAccount(addr primitives.Address, acc Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.accounts[addr] = acc
	return nil
}

func (db *MemDB) DeleteAccount(addr primitives.Address) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.accounts, addr)
	delete(db.storage, addr)
	return nil
}

func (db *MemDB) GetStorage(addr primitives.Address, key primitives.Hash) (primitives.Hash, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.storage[addr][key], nil
}

func (db *MemDB) SetStorage(addr primitives.Address, key, value primitives.Hash) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.storage[addr]
	if !ok {
		m = make(map[primitives.Hash]primitives.Hash)
		db.storage[addr] = m
	}
	if value == (primitives.Hash{}) {
		delete(m, key)
		return nil
	}
	m[key] = value
	return nil
}

func (db *MemDB) GetTransientStorage(addr primitives.Address, key primitives.Hash) primitives.Hash {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.transient[addr][key]
}

func (db *MemDB) SetTransientStorage(addr primitives.Address, key, value primitives.Hash) {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.transient[addr]
	if !ok {
		m = make(map[primitives.Hash]primitives.Hash)
		db.transient[addr] = m
	}
	m[key] = value
}

func (db *MemDB) GetBlockHash(number uint64) (primitives.Hash, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.blockHashes[number], nil
}

// SetBlockHash lets embedders/tests seed the lookback window; production
// embedders would instead resolve this from their own chain index.
func (db *MemDB) SetBlockHash(number uint64, hash primitives.Hash) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.blockHashes[number] = hash
}

func (db *MemDB) GetArtifact(codeHash primitives.Hash) (any, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	a, ok := db.artifacts[codeHash]
	return a, ok
}

func (db *MemDB) SetArtifact(codeHash primitives.Hash, artifact any) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.artifacts[codeHash] = artifact
}

var _ Database = (*MemDB)(nil)
