package regalloc

import "github.com/marche147/klang/compiler/mir"

// numbering is a dense instruction index 0..N over f's blocks in
// reverse-post-order, the total order every later step relies on.
type numbering struct {
	order   []*mir.Block
	index   map[*mir.Instruction]int
	flat    []*mir.Instruction
	blockOf map[*mir.Instruction]*mir.Block

	blockStart map[*mir.Block]int
	blockEnd   map[*mir.Block]int
}

func number(f *mir.Function) *numbering {
	order := mir.ReversePostOrder(f)

	n := &numbering{
		order:      order,
		index:      map[*mir.Instruction]int{},
		blockOf:    map[*mir.Instruction]*mir.Block{},
		blockStart: map[*mir.Block]int{},
		blockEnd:   map[*mir.Block]int{},
	}

	idx := 0
	for _, b := range order {
		n.blockStart[b] = idx
		for _, in := range b.Instrs {
			n.index[in] = idx
			n.blockOf[in] = b
			n.flat = append(n.flat, in)
			idx++
		}
		n.blockEnd[b] = idx - 1
	}

	return n
}

func (n *numbering) at(idx int) *mir.Instruction { return n.flat[idx] }
