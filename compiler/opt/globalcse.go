package opt

import (
	"github.com/marche147/klang/compiler/df"
	"github.com/marche147/klang/compiler/ir"
)

// exprState is the "set of available expressions" lattice for global
// CSE, represented as a map from expression to the register that
// currently holds its value so a redundant site can be rewritten to
// reuse it. init plays the same "uninitialised = top" bootstrap role as
// copyState's.
type exprState struct {
	init bool
	m    map[cseKey]ir.Register
}

func (s *exprState) Clone() *exprState {
	c := &exprState{init: s.init}
	if s.init {
		c.m = make(map[cseKey]ir.Register, len(s.m))
		for k, v := range s.m {
			c.m[k] = v
		}
	}
	return c
}

func (s *exprState) Meet(other *exprState) {
	if !other.init {
		return
	}
	if !s.init {
		*s = *other.Clone()
		return
	}
	for k, v := range s.m {
		if ov, ok := other.m[k]; !ok || ov != v {
			delete(s.m, k)
		}
	}
}

func (s *exprState) Equal(other *exprState) bool {
	if s.init != other.init {
		return false
	}
	if !s.init {
		return true
	}
	if len(s.m) != len(other.m) {
		return false
	}
	for k, v := range s.m {
		if other.m[k] != v {
			return false
		}
	}
	return true
}

func (s *exprState) lookup(k cseKey) (ir.Register, bool) {
	if !s.init {
		return 0, false
	}
	v, ok := s.m[k]
	return v, ok
}

func exprTransfer(in *ir.Instruction, s *exprState) {
	if !s.init {
		s.init = true
		s.m = map[cseKey]ir.Register{}
	}

	for _, r := range in.Outs() {
		for k, v := range s.m {
			if v == r || k.a == ir.Operand(r) || k.b == ir.Operand(r) {
				delete(s.m, k)
			}
		}
	}

	if in.Op == ir.Binary {
		key := cseKey{op: in.BinOp, a: in.Operands[0], b: in.Operands[1]}
		if _, ok := s.m[key]; !ok {
			s.m[key] = in.Dst
		}
	}
}

// globalCSE reuses a Binary result already available at a block's entry
// instead of recomputing it. It does not retroactively rewrite the earlier
// definition to a shared register the way a full partial-redundancy pass
// would; it only exploits redundancy already available at entry.
func globalCSE(f *ir.Function) bool {
	res := df.Solve(f, df.Pass[*exprState]{
		Direction: df.Forward,
		Empty:     func(f *ir.Function) *exprState { return &exprState{} },
		Transfer:  exprTransfer,
	})

	changed := false

	for _, b := range f.Blocks {
		local := res.In[b].Clone()

		b.ForEach(func(in *ir.Instruction) bool {
			cur := in

			if in.Op == ir.Binary {
				key := cseKey{op: in.BinOp, a: in.Operands[0], b: in.Operands[1]}
				if reg, ok := local.lookup(key); ok && reg != in.Dst {
					newInst := ir.NewAssign(in.Dst, reg)
					b.Replace(in, newInst)
					changed = true
					cur = newInst
				}
			}

			exprTransfer(cur, local)
			return true
		})
	}

	return changed
}
