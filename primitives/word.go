package primitives

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Word is a 256-bit unsigned integer, the native EVM value type. The engine
// never uses math/big on the hot path; uint256 carries fixed four-limb
// arithmetic the way dora-runtime's value representation does.
type Word = uint256.Int

// Address and Hash are 20/32-byte identifiers. Reusing go-ethereum's types
// keeps the engine interoperable with the rest of the ecosystem (ABI
// encoders, RPC layers, block explorers) without reinventing hex codecs.
type Address = common.Address
type Hash = common.Hash

// Bytes is an opaque byte payload: calldata, return data, code, log data.
type Bytes = []byte

// ZeroWord returns a fresh zero-valued word. Kept as a function rather than
// a package-level var so callers never alias a shared mutable zero.
func ZeroWord() *Word { return new(uint256.Int) }

// WordFromUint64 builds a Word from a small integer.
func WordFromUint64(v uint64) *Word { return uint256.NewInt(v) }

// WordFromBytes builds a Word from a big-endian byte slice, left-padding or
// truncating to 32 bytes as uint256.SetBytes does.
func WordFromBytes(b []byte) *Word { return new(uint256.Int).SetBytes(b) }
