package opt

import "github.com/marche147/klang/compiler/ir"

type cseKey struct {
	op   ir.BinOp
	a, b ir.Operand
}

type cseEntry struct {
	first *ir.Instruction // the original, not-yet-split definition
	tmp   ir.Register
	split bool
}

// immutableOperand reports whether op's value cannot change between two
// points in the same block: an immediate or a function parameter is
// always a sufficient (if not exhaustive) condition.
func immutableOperand(op ir.Operand) bool {
	switch op.(type) {
	case ir.Immediate, ir.Parameter:
		return true
	default:
		return false
	}
}

// localCSE finds repeated Binary computations over immutable operands
// within a single block. The first occurrence is left alone until a
// second one actually appears, at which point it is split into a fresh
// temporary plus an Assign restoring its original destination, and every
// later occurrence (including the second) is rewritten to reuse the
// temporary.
func localCSE(f *ir.Function) bool {
	changed := false

	for _, b := range f.Blocks {
		seen := map[cseKey]*cseEntry{}

		b.ForEach(func(in *ir.Instruction) bool {
			if in.Op != ir.Binary || !immutableOperand(in.Operands[0]) || !immutableOperand(in.Operands[1]) {
				return true
			}

			key := cseKey{op: in.BinOp, a: in.Operands[0], b: in.Operands[1]}

			e, ok := seen[key]
			if !ok {
				seen[key] = &cseEntry{first: in}
				return true
			}

			if !e.split {
				tmp := f.NewRegister()
				oldDst := e.first.Dst
				e.first.Dst = tmp
				b.InsertAfter(e.first, ir.NewAssign(oldDst, tmp))
				e.tmp = tmp
				e.split = true
			}

			b.Replace(in, ir.NewAssign(in.Dst, e.tmp))
			changed = true

			return true
		})
	}

	return changed
}
