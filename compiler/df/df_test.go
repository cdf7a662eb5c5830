package df_test

import (
	"sort"
	"testing"

	"github.com/marche147/klang/compiler/df"
	"github.com/marche147/klang/compiler/ir"
)

// regSet is a minimal df.Value used only by this test to exercise the
// solver with a backward "live registers" analysis.
type regSet map[ir.Register]bool

func (s regSet) Clone() regSet {
	c := make(regSet, len(s))
	for r := range s {
		c[r] = true
	}
	return c
}

func (s regSet) Meet(other regSet) {
	for r := range other {
		s[r] = true
	}
}

func (s regSet) Equal(other regSet) bool {
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

func sorted(s regSet) []int {
	var out []int
	for r := range s {
		out = append(out, int(r))
	}
	sort.Ints(out)
	return out
}

func TestSolveBackwardLiveness(t *testing.T) {
	// bb0: r0 = 1; r1 = 2; jnz r0, bb1, bb2
	// bb1: ret r1
	// bb2: ret r0
	f := ir.NewFunction("f", 0)
	bb0 := f.NewBlock()
	bb1 := f.NewBlock()
	bb2 := f.NewBlock()

	r0 := f.NewRegister()
	r1 := f.NewRegister()

	bb0.Append(ir.NewAssign(r0, ir.Immediate(1)))
	bb0.Append(ir.NewAssign(r1, ir.Immediate(2)))
	bb0.Append(ir.NewJnz(r0, bb1, bb2))

	bb1.Append(ir.NewRet(r1))
	bb2.Append(ir.NewRet(r0))

	res := df.Solve(f, df.Pass[regSet]{
		Direction: df.Backward,
		Empty:     func(*ir.Function) regSet { return regSet{} },
		Transfer: func(in *ir.Instruction, v regSet) {
			for _, reg := range in.Outs() {
				delete(v, reg)
			}
			for _, op := range in.Ins() {
				if r, ok := op.(ir.Register); ok {
					v[r] = true
				}
			}
		},
	})

	// r1 is live into bb1 and r0 into bb2; liveness meets successors by
	// union, so OUT[bb0] holds both even though each is used on only one
	// branch.
	if got := sorted(res.Out[bb0]); len(got) != 2 || got[0] != int(r0) || got[1] != int(r1) {
		t.Fatalf("OUT[bb0] = %v, want [r0 r1]", got)
	}

	if got := sorted(res.In[bb1]); len(got) != 1 || got[0] != int(r1) {
		t.Fatalf("IN[bb1] = %v, want [r1]", got)
	}

	if got := sorted(res.In[bb2]); len(got) != 1 || got[0] != int(r0) {
		t.Fatalf("IN[bb2] = %v, want [r0]", got)
	}
}
