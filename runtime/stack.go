// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/vmlayer/engine/primitives"
)

var stackPool = sync.Pool{
	New: func() any {
		return &stack{data: make([]uint256.Int, 0, 16)}
	},
}

// stack is the 1024-deep word stack every EVM opcode operates on (spec.md
// §3 "Stack"). Callers are responsible for the push-into-full /
// pop-from-empty bounds checks the lowering pass already performs before
// emitting the op; this type itself only panics, the same way the
// reference implementation it's grounded on trusted its caller.
type stack struct {
	data []uint256.Int
}

func newstack() *stack {
	return stackPool.Get().(*stack)
}

func returnStack(s *stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

func (s *stack) push(v *uint256.Int) {
	if len(s.data) >= primitives.MaxStackDepth {
		panic("runtime: stack overflow")
	}
	s.data = append(s.data, *v)
}

func (s *stack) pop() uint256.Int {
	n := len(s.data) - 1
	v := s.data[n]
	s.data = s.data[:n]
	return v
}

func (s *stack) peek() *uint256.Int {
	return &s.data[len(s.data)-1]
}

// Back returns the n-th item from the top (0-indexed), without popping.
func (s *stack) Back(n int) *uint256.Int {
	return &s.data[len(s.data)-1-n]
}

func (s *stack) swap(n int) {
	top := len(s.data) - 1
	s.data[top], s.data[top-n+1] = s.data[top-n+1], s.data[top]
}

func (s *stack) dup(n int) {
	s.push(&s.data[len(s.data)-n])
}

func (s *stack) len() int { return len(s.data) }

func (s *stack) Print() {
	fmt.Println("### stack ###")
	if len(s.data) == 0 {
		fmt.Println("-- empty --")
	}
	for i, v := range s.data {
		fmt.Printf("%-3d  %v\n", i, v.Hex())
	}
	fmt.Println("#############")
}
