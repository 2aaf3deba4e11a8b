// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime holds the RuntimeContext a single call frame executes
// against: memory, the shadow stack, the gas counter, the return-data
// buffer, and the host syscalls tier-3 IR lowers into (spec.md §4.4).
package runtime

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Memory is the EVM's byte-addressable, word-expandable scratch buffer
// (spec.md §3 "Memory"). It never expands implicitly: every accessor
// requires the caller to have already called Resize up to the required
// length, the same contract vm.Memory exercised in the retrieval pack —
// expansion gas is charged at run time by RuntimeContext.ChargeMemory before
// the memory op runs, and Resize is the only place that actually grows the
// buffer.
type Memory struct {
	store       []byte
	lastGasCost uint64 // high-water total fee already charged, for the delta calculation in gas.MemoryExpansionCost
}

// NewMemory returns an empty Memory ready to be Resize'd.
func NewMemory() *Memory { return &Memory{} }

// Resize grows the buffer to size bytes if it is currently smaller. It never
// shrinks: EVM memory is monotonically non-decreasing within a frame.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

// Set writes value into store[offset:offset+size]. Panics if the memory has
// not already been resized to cover the range — callers must charge and
// apply expansion before ever calling Set, matching the contract the
// retrieval pack's memory tests assert (TestSetPanic).
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	if offset+size > uint64(len(m.store)) {
		panic(fmt.Sprintf("runtime: memory Set out of bounds: offset %d size %d store len %d", offset, size, len(m.store)))
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes val as a 32-byte big-endian word at offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	if offset+32 > uint64(len(m.store)) {
		panic(fmt.Sprintf("runtime: memory Set32 out of bounds: offset %d store len %d", offset, len(m.store)))
	}
	b := val.Bytes32()
	copy(m.store[offset:offset+32], b[:])
}

// GetPtr returns a slice aliasing the underlying store — callers must not
// retain it across a later Resize, which may reallocate.
func (m *Memory) GetPtr(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// GetCopy returns an independent copy of store[offset:offset+size].
func (m *Memory) GetCopy(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	cp := make([]byte, size)
	copy(cp, m.store[offset:offset+size])
	return cp
}

// Len returns the current logical size in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Data returns the whole backing buffer.
func (m *Memory) Data() []byte { return m.store }

// Print dumps the memory contents in 32-byte rows, for interactive
// debugging.
func (m *Memory) Print() {
	fmt.Println("### mem ###")
	if len(m.store) == 0 {
		fmt.Println("-- empty --")
	}
	for i := 0; i+32 <= len(m.store); i += 32 {
		fmt.Printf("%03d: % x\n", i/32, m.store[i:i+32])
	}
	fmt.Println("###########")
}
