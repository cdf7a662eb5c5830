package opt

import (
	"github.com/marche147/klang/compiler/df"
	"github.com/marche147/klang/compiler/ir"
)

// constKind is a register's position in the three-element lattice
// Undet < Constant(v) < NonConstant.
type constKind uint8

const (
	ckUndet constKind = iota
	ckConst
	ckNonConst
)

type constVal struct {
	kind constKind
	v    int64
}

func (a constVal) join(b constVal) constVal {
	switch {
	case a.kind == ckUndet:
		return b
	case b.kind == ckUndet:
		return a
	case a.kind == ckNonConst || b.kind == ckNonConst:
		return constVal{kind: ckNonConst}
	case a.v == b.v:
		return a
	default:
		return constVal{kind: ckNonConst}
	}
}

// constState is one Value[constState] per block: a dense per-register
// snapshot of the constant-propagation lattice, indexed by register id.
type constState []constVal

func (s constState) Clone() constState {
	c := make(constState, len(s))
	copy(c, s)
	return c
}

func (s constState) Meet(other constState) {
	for r := range s {
		s[r] = s[r].join(other[r])
	}
}

func (s constState) Equal(other constState) bool {
	if len(s) != len(other) {
		return false
	}
	for r := range s {
		if s[r] != other[r] {
			return false
		}
	}
	return true
}

func (s constState) resolve(op ir.Operand) constVal {
	switch o := op.(type) {
	case ir.Immediate:
		return constVal{kind: ckConst, v: int64(o)}
	case ir.Register:
		return s[o]
	default: // Parameter: value unknown at compile time
		return constVal{kind: ckNonConst}
	}
}

func constTransfer(in *ir.Instruction, s constState) {
	if !in.HasDst {
		return
	}

	switch in.Op {
	case ir.Assign:
		s[in.Dst] = s.resolve(in.Operands[0])
	case ir.Binary:
		a, b := s.resolve(in.Operands[0]), s.resolve(in.Operands[1])
		if a.kind == ckConst && b.kind == ckConst {
			if v, ok := eval(in.BinOp, a.v, b.v); ok {
				s[in.Dst] = constVal{kind: ckConst, v: v}
				return
			}
		}
		if a.kind == ckNonConst || b.kind == ckNonConst {
			s[in.Dst] = constVal{kind: ckNonConst}
			return
		}
		s[in.Dst] = constVal{kind: ckUndet}
	default: // Call, ArrayNew, ArrayLoad, LoadLabel
		s[in.Dst] = constVal{kind: ckNonConst}
	}
}

// constProp runs constant propagation to a local fixed point and reports
// whether it changed the function.
func constProp(f *ir.Function) bool {
	res := df.Solve(f, df.Pass[constState]{
		Direction: df.Forward,
		Empty:     func(f *ir.Function) constState { return make(constState, f.NumRegisters()) },
		Transfer:  constTransfer,
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
				if cv := local[r]; cv.kind == ckConst {
					in.Operands[i] = ir.Immediate(cv.v)
					changed = true
				}
			}
			constTransfer(in, local)
			return true
		})
	}

	return changed
}
