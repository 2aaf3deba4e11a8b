// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import "github.com/vmlayer/engine/gas"

// GasMeter is the frame's remaining-gas counter (spec.md §3 "Gas counter"):
// it only ever decreases (refunds are counted on the journal, not here), and
// detects out-of-gas the moment a charge would take it negative.
type GasMeter struct {
	limit     uint64
	remaining uint64
}

func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{limit: limit, remaining: limit}
}

// Charge deducts amount from the remaining gas. ok is false if that would
// have taken the counter below zero, in which case remaining is left
// unchanged and the caller is expected to branch to the halt block with
// OutOfGas.
func (g *GasMeter) Charge(amount uint64) (ok bool) {
	if amount > g.remaining {
		return false
	}
	g.remaining -= amount
	return true
}

func (g *GasMeter) Remaining() uint64 { return g.remaining }
func (g *GasMeter) Limit() uint64     { return g.limit }
func (g *GasMeter) Used() uint64      { return g.limit - g.remaining }

// MemoryWords reports the number of 32-byte words currently paid for,
// tracking the high-water mark gas.MemoryExpansionCost needs for its delta
// calculation.
type MemoryWords struct {
	paid uint64
}

// Charge computes and applies the incremental cost of expanding memory to
// newSize bytes, charging it against g. Returns ok=false on overflow or
// insufficient gas.
func (m *MemoryWords) Charge(g *GasMeter, currentSize, newSize uint64) bool {
	fee, paidWords, err := gas.MemoryExpansionCost(currentSize, newSize)
	if err != nil {
		return false
	}
	m.paid = paidWords
	return g.Charge(fee)
}
