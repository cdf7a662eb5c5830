package regalloc

import "github.com/marche147/klang/compiler/mir"

// int32 magnitude bound for the "immediate exceeds signed 32-bit" rule.
const (
	maxInt32 = 1<<31 - 1
	minInt32 = -(1 << 31)
)

func isMem(op mir.Operand) bool {
	_, ok := op.(mir.Mem)
	return ok
}

func oversizedImm(op mir.Operand) (mir.Imm, bool) {
	imm, ok := op.(mir.Imm)
	if !ok {
		return 0, false
	}
	if int64(imm) > maxInt32 || int64(imm) < minInt32 {
		return imm, true
	}
	return 0, false
}

// fixupOperandForms legalizes x86 forms the allocator's direct
// substitution may have produced.
func fixupOperandForms(order []*mir.Block) {
	before := map[*mir.Instruction][]*mir.Instruction{}
	after := map[*mir.Instruction][]*mir.Instruction{}

	for _, b := range order {
		for _, in := range b.Instrs {
			fixupOne(in, before, after)
		}
	}

	insertAround(order, before, after)
}

func fixupOne(in *mir.Instruction, before, after map[*mir.Instruction][]*mir.Instruction) {
	switch {
	case in.Op == mir.CMov:
		fixupCMov(in, before, after)

	case in.HasDst && in.ReadsDst && len(in.Src) == 1:
		// Accumulator-form two-operand arithmetic: dst = dst <op> src.
		fixupTwoOperand(in, before)

	case in.Op == mir.Mov && in.HasDst && len(in.Src) == 1:
		fixupMov(in, before)

	case (in.Op == mir.Cmp || in.Op == mir.Test) && len(in.Src) == 2:
		fixupCmpTest(in, before)
	}
}

// fixupTwoOperand handles rule (a) (both operands in memory) and rule (b)
// (immediate source too wide) for Add/Sub/IMul/Or/Xor/And.
func fixupTwoOperand(in *mir.Instruction, before map[*mir.Instruction][]*mir.Instruction) {
	src := in.Src[0]

	if isMem(in.Dst) && isMem(src) {
		before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RAX), src))
		in.Src[0] = mir.MReg(mir.RAX)
		return
	}
	if imm, ok := oversizedImm(src); ok {
		before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RAX), imm))
		in.Src[0] = mir.MReg(mir.RAX)
	}
}

// fixupMov handles rule (c) (any immediate into memory routes through RAX)
// and rules (a)/(b) for the remaining Mov shapes.
func fixupMov(in *mir.Instruction, before map[*mir.Instruction][]*mir.Instruction) {
	src := in.Src[0]

	if isMem(in.Dst) {
		if imm, ok := src.(mir.Imm); ok {
			before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RAX), imm))
			in.Src[0] = mir.MReg(mir.RAX)
			return
		}
		if isMem(src) {
			before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RAX), src))
			in.Src[0] = mir.MReg(mir.RAX)
			return
		}
	}

	if imm, ok := oversizedImm(src); ok {
		before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RAX), imm))
		in.Src[0] = mir.MReg(mir.RAX)
	}
}

// fixupCmpTest handles rule (a) for Cmp/Test (both reads in memory) and rule
// (b) for an oversized immediate right-hand operand. Lowering never leaves
// the left operand of a Cmp/Test as an immediate (lowering's
// swap-and-invert rule), so only Src[1] is checked for the immediate case.
func fixupCmpTest(in *mir.Instruction, before map[*mir.Instruction][]*mir.Instruction) {
	a, b := in.Src[0], in.Src[1]

	if isMem(a) && isMem(b) {
		before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RAX), a))
		in.Src[0] = mir.MReg(mir.RAX)
		return
	}
	if imm, ok := oversizedImm(b); ok {
		before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RAX), imm))
		in.Src[1] = mir.MReg(mir.RAX)
	}
}

// fixupCMov rewrites an immediate source (cmov has no immediate form) and a
// memory destination (cmov has no memory destination) via RAX/RDX, per rule
// (d).
func fixupCMov(in *mir.Instruction, before, after map[*mir.Instruction][]*mir.Instruction) {
	src := in.Src[0]
	if imm, ok := src.(mir.Imm); ok {
		before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RAX), imm))
		src = mir.MReg(mir.RAX)
		in.Src[0] = src
	}

	if isMem(in.Dst) {
		dstMem := in.Dst
		before[in] = append(before[in], mir.NewMov(mir.MReg(mir.RDX), dstMem))
		in.Dst = mir.MReg(mir.RDX)
		after[in] = append(after[in], mir.NewMov(dstMem, mir.MReg(mir.RDX)))
	}
}
