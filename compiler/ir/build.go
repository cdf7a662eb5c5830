package ir

// The New* helpers build a free-standing *Instruction (not yet owned by
// any block); the caller appends/inserts it with the BasicBlock API.

func NewNop() *Instruction {
	return &Instruction{Op: Nop}
}

func NewAssign(dst Register, src Operand) *Instruction {
	return &Instruction{Op: Assign, Dst: dst, HasDst: true, Operands: []Operand{src}}
}

func NewBinary(op BinOp, dst Register, a, b Operand) *Instruction {
	return &Instruction{Op: Binary, BinOp: op, Dst: dst, HasDst: true, Operands: []Operand{a, b}}
}

func NewJmp(target *BasicBlock) *Instruction {
	return &Instruction{Op: Jmp, Succs: []*BasicBlock{target}}
}

// NewJnz's successor order is [trueTarget, falseTarget].
func NewJnz(cond Operand, trueTarget, falseTarget *BasicBlock) *Instruction {
	return &Instruction{Op: Jnz, Operands: []Operand{cond}, Succs: []*BasicBlock{trueTarget, falseTarget}}
}

func NewCall(dst Register, name string, args ...Operand) *Instruction {
	return &Instruction{Op: Call, Dst: dst, HasDst: true, Name: name, Operands: args}
}

func NewCallVoid(name string, args ...Operand) *Instruction {
	return &Instruction{Op: CallVoid, Name: name, Operands: args}
}

func NewRet(v Operand) *Instruction {
	return &Instruction{Op: Ret, Operands: []Operand{v}}
}

func NewRetVoid() *Instruction {
	return &Instruction{Op: RetVoid}
}

func NewArrayNew(dst Register, size Operand) *Instruction {
	return &Instruction{Op: ArrayNew, Dst: dst, HasDst: true, Operands: []Operand{size}}
}

func NewArrayLoad(dst Register, array, index Operand) *Instruction {
	return &Instruction{Op: ArrayLoad, Dst: dst, HasDst: true, Operands: []Operand{array, index}}
}

func NewArrayStore(array, index, value Operand) *Instruction {
	return &Instruction{Op: ArrayStore, Operands: []Operand{array, index, value}}
}

func NewLoadLabel(dst Register, label string) *Instruction {
	return &Instruction{Op: LoadLabel, Dst: dst, HasDst: true, Name: label}
}
