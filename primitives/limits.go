// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package primitives holds the fixed-width value types, addresses, log
// records and error enumerations shared by every other package in the
// engine.
package primitives

// Resource limits fixed by the spec, reproduced from dora-runtime/src/constants.rs.
const (
	MaxStackDepth     = 1024
	MaxCallDepth      = 1024
	MaxCodeSize       = 0x6000
	MaxInitcodeSize   = 0x6000 * 2
	BlockHashLookback = 256
	WordSize          = 32
)
