package evmfront

// Instruction is one decoded opcode plus, for PUSH ops, its immediate value.
type Instruction struct {
	PC        uint64
	Op        OpCode
	Immediate []byte // only set for PUSH1..PUSH32
}

// Block is a basic block: a half-open PC range [Start, End) of the
// underlying code, ending at (but including) a terminator instruction,
// unless the block runs off the end of the code (implicit STOP).
type Block struct {
	Start, End uint64 // End is one past the final instruction's last immediate byte
	IsJumpDest bool
}

// Program is the EVM front-end's output: decoded instructions, the
// valid-jumpdest set and the derived basic-block partition (spec.md §3).
type Program struct {
	Code         []byte
	Instructions []Instruction
	JumpDests    JumpDests
	Blocks       []Block
	IsEOF        bool // always false for legacy code; see SPEC_FULL.md §4
}

// Decode scans raw code bytes into a Program. Decoding never fails: a
// trailing PUSH whose immediate runs past the end of the code reads the
// missing bytes as zeros, so its Immediate always holds the full N bytes.
func Decode(code []byte) *Program {
	p := &Program{Code: code, JumpDests: newJumpDests(code)}
	p.decodeInstructions()
	p.partitionBlocks()
	return p
}

func (p *Program) decodeInstructions() {
	code := p.Code
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		inst := Instruction{PC: pc, Op: op}
		pc++
		if n := op.PushSize(); n > 0 {
			end := pc + uint64(n)
			if end > uint64(len(code)) {
				imm := make([]byte, n)
				copy(imm, code[pc:])
				inst.Immediate = imm
			} else {
				inst.Immediate = code[pc:end]
			}
			pc = pc + uint64(n)
		}
		p.Instructions = append(p.Instructions, inst)
	}
}

// partitionBlocks splits the instruction stream into basic blocks: a new
// block starts at each JUMPDEST and immediately after each terminator
// (spec.md §4.3 "Basic-block boundaries").
func (p *Program) partitionBlocks() {
	if len(p.Instructions) == 0 {
		return
	}
	start := p.Instructions[0].PC
	startIsJumpDest := p.Instructions[0].Op == JUMPDEST && p.JumpDests.IsValid(start)
	for i, inst := range p.Instructions {
		isLast := i == len(p.Instructions)-1
		nextStartsBlock := false
		if !isLast {
			next := p.Instructions[i+1]
			if next.Op == JUMPDEST && p.JumpDests.IsValid(next.PC) {
				nextStartsBlock = true
			}
		}
		if inst.Op.IsTerminator() || isLast || nextStartsBlock {
			end := inst.PC + 1 + uint64(len(inst.Immediate))
			p.Blocks = append(p.Blocks, Block{Start: start, End: end, IsJumpDest: startIsJumpDest})
			if !isLast {
				start = p.Instructions[i+1].PC
				startIsJumpDest = p.Instructions[i+1].Op == JUMPDEST && p.JumpDests.IsValid(start)
			}
		}
	}
}

// InstructionAt returns the decoded instruction beginning at pc, and
// whether one exists there (pc might point into PUSH-immediate data or past
// the end of code).
func (p *Program) InstructionAt(pc uint64) (Instruction, bool) {
	// Instructions are stored in ascending PC order; a linear scan is fine
	// for the code sizes this engine bounds (MaxCodeSize = 0x6000).
	for _, inst := range p.Instructions {
		if inst.PC == pc {
			return inst, true
		}
		if inst.PC > pc {
			break
		}
	}
	return Instruction{}, false
}
