// Package df implements a generic iterative dataflow solver: one
// worklist algorithm parameterised by a lattice value type and a
// direction, shared by the optimizer's dataflow passes. The register
// allocator's liveness analysis runs its own copy of the same algorithm
// over machine blocks.
package df

import "github.com/marche147/klang/compiler/ir"

// Direction selects which neighbour set feeds a block's input and which
// instruction order the transfer function runs in.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Value is a dataflow lattice value. Meet combines another value into the
// receiver in place — callers pick the monotone combination appropriate to
// their lattice (join for a "may" analysis, intersection for a "must"
// analysis); both directions call it uniformly. Equal is
// structural equality used to detect fixed point. Clone returns an
// independent copy so the solver can keep one value per block per
// iteration without aliasing.
type Value[T any] interface {
	Meet(other T)
	Equal(other T) bool
	Clone() T
}

// Pass bundles the two functions a concrete analysis must supply: a fresh
// bottom/top element for a function, and a transfer function that mutates
// a lattice value in place to reflect running past one instruction.
type Pass[T Value[T]] struct {
	Direction Direction
	Empty     func(f *ir.Function) T
	Transfer  func(in *ir.Instruction, v T)
}

// Result holds the solved per-block IN and OUT maps.
type Result[T Value[T]] struct {
	In  map[*ir.BasicBlock]T
	Out map[*ir.BasicBlock]T
}

// Solve runs p to a fixed point over f and returns the per-block IN/OUT
// values. Termination is guaranteed because every lattice used by this
// compiler has finite height.
func Solve[T Value[T]](f *ir.Function, p Pass[T]) Result[T] {
	order := ir.ReversePostOrder(f)
	if p.Direction == Backward {
		order = reversed(order)
	}

	in := make(map[*ir.BasicBlock]T, len(order))
	out := make(map[*ir.BasicBlock]T, len(order))

	for _, b := range order {
		in[b] = p.Empty(f)
		out[b] = p.Empty(f)
	}

	queue := append([]*ir.BasicBlock{}, order...)
	queued := make(map[*ir.BasicBlock]bool, len(order))
	for _, b := range order {
		queued[b] = true
	}

	visited := make(map[*ir.BasicBlock]bool, len(order))

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		queued[b] = false

		input := p.Empty(f)
		for _, n := range neighborsIn(p.Direction, b) {
			input.Meet(neighborValue(p.Direction, in, out, n))
		}

		if prev, ok := currentInput(p.Direction, in, out, b); ok && visited[b] && prev.Equal(input) {
			continue
		}
		visited[b] = true
		setInput(p.Direction, in, out, b, input.Clone())

		work := input.Clone()
		insts := b.Instructions()
		if p.Direction == Backward {
			insts = reversedInsts(insts)
		}
		for _, ins := range insts {
			p.Transfer(ins, work)
		}

		if prevOut, ok := currentOutput(p.Direction, in, out, b); ok && prevOut.Equal(work) {
			continue
		}
		setOutput(p.Direction, in, out, b, work)

		for _, o := range neighborsOut(p.Direction, b) {
			if !queued[o] {
				queued[o] = true
				queue = append(queue, o)
			}
		}
	}

	return Result[T]{In: in, Out: out}
}

// neighborsIn returns the blocks whose value feeds b's input: predecessors
// for a forward analysis, successors for a backward one.
func neighborsIn(dir Direction, b *ir.BasicBlock) []*ir.BasicBlock {
	if dir == Forward {
		return b.Predecessors()
	}
	return successors(b)
}

// neighborsOut returns the blocks to re-enqueue when b's output changes.
func neighborsOut(dir Direction, b *ir.BasicBlock) []*ir.BasicBlock {
	if dir == Forward {
		return successors(b)
	}
	return b.Predecessors()
}

func neighborValue[T Value[T]](dir Direction, in, out map[*ir.BasicBlock]T, n *ir.BasicBlock) T {
	if dir == Forward {
		return out[n]
	}
	return in[n]
}

func currentInput[T Value[T]](dir Direction, in, out map[*ir.BasicBlock]T, b *ir.BasicBlock) (T, bool) {
	if dir == Forward {
		v, ok := in[b]
		return v, ok
	}
	v, ok := out[b]
	return v, ok
}

func setInput[T Value[T]](dir Direction, in, out map[*ir.BasicBlock]T, b *ir.BasicBlock, v T) {
	if dir == Forward {
		in[b] = v
		return
	}
	out[b] = v
}

func currentOutput[T Value[T]](dir Direction, in, out map[*ir.BasicBlock]T, b *ir.BasicBlock) (T, bool) {
	if dir == Forward {
		v, ok := out[b]
		return v, ok
	}
	v, ok := in[b]
	return v, ok
}

func setOutput[T Value[T]](dir Direction, in, out map[*ir.BasicBlock]T, b *ir.BasicBlock, v T) {
	if dir == Forward {
		out[b] = v
		return
	}
	in[b] = v
}

func successors(b *ir.BasicBlock) []*ir.BasicBlock {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	return term.Succs
}

func reversed(bs []*ir.BasicBlock) []*ir.BasicBlock {
	out := make([]*ir.BasicBlock, len(bs))
	for i, b := range bs {
		out[len(bs)-1-i] = b
	}
	return out
}

func reversedInsts(is []*ir.Instruction) []*ir.Instruction {
	out := make([]*ir.Instruction, len(is))
	for i, in := range is {
		out[len(is)-1-i] = in
	}
	return out
}
