package opt

import (
	"github.com/marche147/klang/compiler/df"
	"github.com/marche147/klang/compiler/ir"
)

// copyState is the partial map reg -> reg of the copy-propagation
// lattice. init distinguishes "no predecessor has reported a value yet"
// (the lattice top, identity for intersection) from "the intersection so
// far is the empty map" (bottom), exactly as Global CSE's bootstrap flag
// does below.
type copyState struct {
	init bool
	m    map[ir.Register]ir.Register
}

func emptyCopyState() copyState { return copyState{} }

func (s *copyState) Clone() *copyState {
	c := copyState{init: s.init}
	if s.init {
		c.m = make(map[ir.Register]ir.Register, len(s.m))
		for k, v := range s.m {
			c.m[k] = v
		}
	}
	return &c
}

func (s *copyState) Meet(other *copyState) {
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

func (s *copyState) Equal(other *copyState) bool {
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

func (s *copyState) lookup(r ir.Register) (ir.Register, bool) {
	if !s.init {
		return 0, false
	}
	v, ok := s.m[r]
	return v, ok
}

func copyTransfer(in *ir.Instruction, s *copyState) {
	if !s.init {
		s.init = true
		s.m = map[ir.Register]ir.Register{}
	}

	for _, r := range in.Outs() {
		delete(s.m, r)
	}

	if in.Op == ir.Assign {
		if src, ok := in.Operands[0].(ir.Register); ok {
			s.m[in.Dst] = src
		}
	}
}

// copyProp runs copy propagation to a local fixed point.
func copyProp(f *ir.Function) bool {
	res := df.Solve(f, df.Pass[*copyState]{
		Direction: df.Forward,
		Empty:     func(f *ir.Function) *copyState { s := emptyCopyState(); return &s },
		Transfer:  copyTransfer,
	})

	changed := false

	for _, b := range f.Blocks {
		local := res.In[b].Clone()

		b.ForEach(func(in *ir.Instruction) bool {
			for i, op := range in.Operands {
				r, ok := op.(ir.Register)
				if !ok {
					continue
				}
				if src, ok := local.lookup(r); ok {
					in.Operands[i] = src
					changed = true
				}
			}
			copyTransfer(in, local)
			return true
		})
	}

	return changed
}
