package opt

import (
	"github.com/marche147/klang/compiler/df"
	"github.com/marche147/klang/compiler/ir"
)

// dce runs the five dead-code sub-passes once and reports whether any
// of them changed the function.
func dce(f *ir.Function) bool {
	changed := false
	changed = foldConstants(f) || changed
	changed = collapseConstJnz(f) || changed
	changed = removeUnreachableBlocks(f) || changed
	changed = removeTrivialInstructions(f) || changed
	changed = eliminateDeadRegisters(f) || changed
	return changed
}

// (a) constant folding of Binary with two immediate operands.
func foldConstants(f *ir.Function) bool {
	changed := false

	for _, b := range f.Blocks {
		b.ForEach(func(in *ir.Instruction) bool {
			if in.Op != ir.Binary {
				return true
			}

			a, aok := asImmediate(in.Operands[0])
			bb, bok := asImmediate(in.Operands[1])
			if !aok || !bok {
				return true
			}

			v, ok := eval(in.BinOp, a, bb)
			if !ok {
				return true
			}

			b.Replace(in, ir.NewAssign(in.Dst, ir.Immediate(v)))
			changed = true

			return true
		})
	}

	return changed
}

// (b) collapse a Jnz with a constant condition into an unconditional Jmp.
func collapseConstJnz(f *ir.Function) bool {
	changed := false

	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil || term.Op != ir.Jnz {
			continue
		}

		v, ok := asImmediate(term.Operands[0])
		if !ok {
			continue
		}

		target := term.Succs[1]
		if v != 0 {
			target = term.Succs[0]
		}

		b.Replace(term, ir.NewJmp(target))
		changed = true
	}

	return changed
}

// (c) remove blocks unreachable from entry after (a) and (b) may have
// pruned edges.
func removeUnreachableBlocks(f *ir.Function) bool {
	reachable := make(map[*ir.BasicBlock]bool, len(f.Blocks))
	for _, b := range ir.ReversePostOrder(f) {
		reachable[b] = true
	}

	var dead []*ir.BasicBlock
	entry := f.Entry()
	for _, b := range f.Blocks {
		if b != entry && !reachable[b] {
			dead = append(dead, b)
		}
	}

	for _, b := range dead {
		f.RemoveBlock(b)
	}

	return len(dead) > 0
}

// (d) remove trivial Assign r, r and Nop instructions.
func removeTrivialInstructions(f *ir.Function) bool {
	changed := false

	for _, b := range f.Blocks {
		b.ForEach(func(in *ir.Instruction) bool {
			if in.Op == ir.Nop {
				b.Remove(in)
				changed = true
				return true
			}

			if in.Op == ir.Assign && in.HasDst {
				if r, ok := in.Operands[0].(ir.Register); ok && r == in.Dst {
					b.Remove(in)
					changed = true
				}
			}

			return true
		})
	}

	return changed
}

// liveSet is the backward "is this register used again" lattice used by
// (e). Missing from the map means not live; join (Meet) is set union, the
// standard "may still be used on some path" combination.
type liveSet map[ir.Register]bool

func (s liveSet) Clone() liveSet {
	c := make(liveSet, len(s))
	for r := range s {
		c[r] = true
	}
	return c
}

func (s liveSet) Meet(other liveSet) {
	for r := range other {
		s[r] = true
	}
}

func (s liveSet) Equal(other liveSet) bool {
	if len(s) != len(other) {
		return false
	}
	for r := range s {
		if !other[r] {
			return false
		}
	}
	return true
}

func livenessTransfer(in *ir.Instruction, s liveSet) {
	for _, r := range in.Outs() {
		delete(s, r)
	}
	for _, op := range in.Ins() {
		if r, ok := op.(ir.Register); ok {
			s[r] = true
		}
	}
}

// (e) dead-variable elimination: a side-effect-free instruction whose
// destination register is not live immediately after it is removed.
// Side-effectful instructions (Call, CallVoid, ArrayStore, terminators)
// are always kept and their operand registers seeded as roots.
func eliminateDeadRegisters(f *ir.Function) bool {
	res := df.Solve(f, df.Pass[liveSet]{
		Direction: df.Backward,
		Empty:     func(f *ir.Function) liveSet { return liveSet{} },
		Transfer:  livenessTransfer,
	})

	changed := false

	for _, b := range f.Blocks {
		live := res.Out[b].Clone()

		b.ForEachReverse(func(in *ir.Instruction) bool {
			if !in.HasSideEffects() && in.HasDst && !live[in.Dst] {
				b.Remove(in)
				changed = true
				return true
			}

			livenessTransfer(in, live)
			return true
		})
	}

	return changed
}
