// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package environment is the block- and transaction-scoped context every
// frame in a call tree reads from (spec.md §6 "External interfaces").
package environment

import (
	"github.com/vmlayer/engine/primitives"
)

// BlockContext is the portion of external state that is constant for every
// transaction within one block: COINBASE, NUMBER, TIMESTAMP, PREVRANDAO,
// GASLIMIT, BASEFEE, BLOBBASEFEE and the BLOCKHASH lookback window.
type BlockContext struct {
	Coinbase    primitives.Address
	Number      uint64
	Timestamp   uint64
	GasLimit    uint64
	Difficulty  *primitives.Word // pre-Merge PoW difficulty; zero post-Paris
	Prevrandao  primitives.Hash  // post-Paris RANDAO output
	BaseFee     *primitives.Word
	BlobBaseFee *primitives.Word
	BlobHashes  []primitives.Hash

	// GetHash resolves BLOCKHASH for the most recent primitives.BlockHashLookback
	// blocks; returns the zero hash outside that window, matching EVM semantics.
	GetHash func(number uint64) primitives.Hash
}

// TxContext is constant for the duration of one top-level transaction:
// ORIGIN, GASPRICE, and the chain id CHAINID reads.
type TxContext struct {
	Origin   primitives.Address
	GasPrice *primitives.Word
	ChainID  *primitives.Word
}
