package regalloc

import (
	"github.com/marche147/klang/compiler/bitmap"
	"github.com/marche147/klang/compiler/mir"
)

// liveSet is the lattice value for the allocator's backward liveness: the
// set of virtual registers live at a program point, represented as a
// bitmap.Big indexed by mir.VirtReg (a dense per-function integer id,
// the property every bitmap.Big use site relies on). compiler/df's
// solver is hardcoded to
// compiler/ir's block/function types (its Pass.Transfer takes an
// *ir.Instruction), so this is a small hand-rolled worklist specialised to
// compiler/mir rather than a second instantiation of that solver — the
// algorithm itself (backward, union meet, fixed point over a
// finite-height lattice) is the same one compiler/df implements.
type liveSet struct {
	bits bitmap.Big
}

func newLiveSet() liveSet { return liveSet{bits: bitmap.Make()} }

func (s liveSet) has(v mir.VirtReg) bool { return s.bits.IsSet(int(v)) }
func (s liveSet) set(v mir.VirtReg)      { s.bits.Set(int(v)) }
func (s liveSet) clear(v mir.VirtReg)    { s.bits.Clear(int(v)) }

func (s liveSet) clone() liveSet { return liveSet{bits: s.bits.Copy()} }

// equal compares two sets by mutual subset check, since bitmap.Big has no
// direct equality primitive; both are small per-block bit-vectors so the
// extra pass costs nothing that matters.
func (s liveSet) equal(other liveSet) bool {
	a := s.bits.AndNotCopy(other.bits)
	b := other.bits.AndNotCopy(s.bits)
	return a.Size() == 0 && b.Size() == 0
}

func (s liveSet) union(other liveSet) liveSet { return liveSet{bits: s.bits.OrCopy(other.bits)} }

func (s liveSet) forEach(f func(mir.VirtReg)) {
	s.bits.Range(func(i int) bool {
		f(mir.VirtReg(i))
		return true
	})
}

// livenessTransfer adds read virtual operands to the live set after
// removing written ones. Jumps/branches/calls/rets never
// touch a virtual register directly (calling-convention values move
// through Push/Pop/RAX, which do).
func livenessTransfer(in *mir.Instruction, live liveSet) {
	for _, op := range in.Outs() {
		if v, ok := mir.VirtRegOf(op); ok {
			live.clear(v)
		}
	}
	for _, op := range in.Ins() {
		if v, ok := mir.VirtRegOf(op); ok {
			live.set(v)
		}
	}
}

// liveness runs the backward worklist to a fixed point and returns the
// per-block IN/OUT sets.
func liveness(f *mir.Function) (in, out map[*mir.Block]liveSet) {
	order := mir.ReversePostOrder(f)
	preds := mir.Predecessors(f)

	in = make(map[*mir.Block]liveSet, len(order))
	out = make(map[*mir.Block]liveSet, len(order))
	for _, b := range order {
		in[b] = newLiveSet()
		out[b] = newLiveSet()
	}

	queue := append([]*mir.Block{}, order...)
	queued := make(map[*mir.Block]bool, len(order))
	for _, b := range order {
		queued[b] = true
	}

	successorsOf := func(b *mir.Block) []*mir.Block {
		term := b.Terminator()
		if term == nil {
			return nil
		}
		return term.Succs
	}

	visited := make(map[*mir.Block]bool, len(order))

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		queued[b] = false

		input := newLiveSet()
		for _, s := range successorsOf(b) {
			input = input.union(in[s])
		}

		if visited[b] && out[b].equal(input) {
			continue
		}
		visited[b] = true
		out[b] = input

		work := input.clone()
		for i := len(b.Instrs) - 1; i >= 0; i-- {
			livenessTransfer(b.Instrs[i], work)
		}

		if in[b].equal(work) {
			continue
		}
		in[b] = work

		for _, p := range preds[b] {
			if !queued[p] {
				queued[p] = true
				queue = append(queue, p)
			}
		}
	}

	return in, out
}
