// Copyright 2017 The go-ethereum Authors
// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package evmfront

// bitvec is a bit vector of push-data positions within code, one bit per
// byte of code, least-significant bit first: a set bit means "this byte is
// PUSH-immediate data" — see codeBitmap. Opcode bytes, JUMPDEST included,
// are left unset.
type bitvec []byte

const (
	set2BitsMask = uint16(0b11)
	set3BitsMask = uint16(0b111)
	set4BitsMask = uint16(0b1111)
	set5BitsMask = uint16(0b1_1111)
	set6BitsMask = uint16(0b11_1111)
	set7BitsMask = uint16(0b111_1111)
)

func (bits bitvec) set1(pos uint64) {
	bits[pos/8] |= 1 << (pos % 8)
}

func (bits bitvec) setN(flag uint16, pos uint64) {
	a := flag << (pos % 8)
	bits[pos/8] |= byte(a)
	if b := byte(a >> 8); b != 0 {
		bits[pos/8+1] = b
	}
}

func (bits bitvec) set8(pos uint64) {
	a := byte(0xFF << (pos % 8))
	bits[pos/8] |= a
	bits[pos/8+1] = ^a
}

func (bits bitvec) set16(pos uint64) {
	a := byte(0xFF << (pos % 8))
	bits[pos/8] |= a
	bits[pos/8+1] = 0xFF
	bits[pos/8+2] = ^a
}

// codeSegment checks if the position is in a code segment (i.e. not
// PUSH-immediate data).
func (bits bitvec) codeSegment(pos uint64) bool {
	return (bits[pos/8]>>(pos%8))&1 == 0
}

// codeBitmap collects the positions of bytes that are PUSH-data within the
// given code, reproduced byte-for-byte from the jumpdest analysis the
// teacher's test suite exercises (vm/analysis_test.go). A PUSH<N>'s N
// immediate bytes can never be a valid jump destination even if their value
// happens to equal the JUMPDEST opcode.
func codeBitmap(code []byte) bitvec {
	bits := make(bitvec, len(code)/8+1+4)
	return codeBitmapInternal(code, bits)
}

// codeBitmapInternal is the bitmap-computation part of codeBitmap, exposed
// as a separate function so callers can re-use a pre-allocated buffer
// (benchmarked by the teacher's BenchmarkJumpdestOpAnalysis).
func codeBitmapInternal(code, bits bitvec) bitvec {
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		pc++
		if op < PUSH1 || op > PUSH32 {
			continue
		}
		numbits := op - PUSH1 + 1
		if numbits >= 8 {
			for ; numbits >= 16; numbits -= 16 {
				bits.set16(pc)
				pc += 16
			}
			for ; numbits >= 8; numbits -= 8 {
				bits.set8(pc)
				pc += 8
			}
		}
		switch numbits {
		case 1:
			bits.set1(pc)
			pc += 1
		case 2:
			bits.setN(set2BitsMask, pc)
			pc += 2
		case 3:
			bits.setN(set3BitsMask, pc)
			pc += 3
		case 4:
			bits.setN(set4BitsMask, pc)
			pc += 4
		case 5:
			bits.setN(set5BitsMask, pc)
			pc += 5
		case 6:
			bits.setN(set6BitsMask, pc)
			pc += 6
		case 7:
			bits.setN(set7BitsMask, pc)
			pc += 7
		}
	}
	return bits
}

// JumpDests is the set of valid jump destinations for a Program: offsets
// whose opcode is JUMPDEST and which are not classified as push-data by the
// bitmap above.
type JumpDests struct {
	bits bitvec
	code []byte
}

func newJumpDests(code []byte) JumpDests {
	return JumpDests{bits: codeBitmap(code), code: code}
}

// IsValid reports whether dest is a valid JUMP/JUMPI target: in-bounds, a
// code byte (not PUSH-immediate data), and equal to JUMPDEST.
func (j JumpDests) IsValid(dest uint64) bool {
	if dest >= uint64(len(j.code)) {
		return false
	}
	if OpCode(j.code[dest]) != JUMPDEST {
		return false
	}
	return j.bits.codeSegment(dest)
}

// All returns every valid jump destination offset, ascending, used by the
// lowering pass to build the dynamic-jump switch table (spec.md §4.3).
func (j JumpDests) All() []uint64 {
	var out []uint64
	for pc := uint64(0); pc < uint64(len(j.code)); pc++ {
		if OpCode(j.code[pc]) == JUMPDEST && j.bits.codeSegment(pc) {
			out = append(out, pc)
		}
	}
	return out
}
