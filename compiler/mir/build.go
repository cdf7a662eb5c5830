package mir

// The New* helpers build a free-standing *Instruction; callers append it
// to a Block's Instrs slice directly (machine blocks have no intrusive
// list discipline to enforce).

func NewMov(dst, src Operand) *Instruction {
	return &Instruction{Op: Mov, Dst: dst, HasDst: true, Src: []Operand{src}}
}

// NewArith builds a two-operand accumulator instruction (Add/Sub/IMul/Or/
// Xor/And): dst = dst <op> src.
func NewArith(op Op, dst, src Operand) *Instruction {
	return &Instruction{Op: op, Dst: dst, HasDst: true, ReadsDst: true, Src: []Operand{src}}
}

// NewCmp and NewTest read both operands and write only flags.
func NewCmp(a, b Operand) *Instruction {
	return &Instruction{Op: Cmp, Src: []Operand{a, b}}
}

func NewTest(a, b Operand) *Instruction {
	return &Instruction{Op: Test, Src: []Operand{a, b}}
}

func NewIDiv(divisor Operand) *Instruction {
	return &Instruction{Op: IDiv, Src: []Operand{divisor}}
}

func NewCqo() *Instruction {
	return &Instruction{Op: Cqo}
}

func NewCMov(cc Cond, dst, src Operand) *Instruction {
	return &Instruction{Op: CMov, Cond: cc, Dst: dst, HasDst: true, ReadsDst: true, Src: []Operand{src}}
}

func NewJmp(target *Block) *Instruction {
	return &Instruction{Op: Jmp, Succs: []*Block{target}}
}

func NewJcc(cc Cond, trueTarget, falseTarget *Block) *Instruction {
	return &Instruction{Op: Jcc, Cond: cc, Succs: []*Block{trueTarget, falseTarget}}
}

func NewRet() *Instruction {
	return &Instruction{Op: Ret}
}

func NewPush(src Operand) *Instruction {
	return &Instruction{Op: Push, Src: []Operand{src}}
}

func NewPop(dst Operand) *Instruction {
	return &Instruction{Op: Pop, Dst: dst, HasDst: true}
}

func NewCall(name string) *Instruction {
	return &Instruction{Op: Call, Name: name}
}

func NewLea(dst Operand, label string) *Instruction {
	return &Instruction{Op: Lea, Dst: dst, HasDst: true, Name: label}
}
