package mir

// PostOrder returns f's blocks in DFS post-order from the entry block
// (f.Blocks[0]), mirroring compiler/ir.PostOrder for the machine-IR block
// graph the register allocator's linear numbering needs.
func PostOrder(f *Function) []*Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	entry := f.Blocks[0]

	visited := make(map[*Block]bool, len(f.Blocks))
	var order []*Block

	var walk func(b *Block)
	walk = func(b *Block) {
		if visited[b] {
			return
		}
		visited[b] = true

		if term := b.Terminator(); term != nil {
			for _, s := range term.Succs {
				walk(s)
			}
		}

		order = append(order, b)
	}

	walk(entry)

	return order
}

// ReversePostOrder returns f's blocks in RPO.
func ReversePostOrder(f *Function) []*Block {
	po := PostOrder(f)

	rpo := make([]*Block, len(po))
	for i, b := range po {
		rpo[len(po)-1-i] = b
	}

	return rpo
}

// Predecessors computes each block's predecessors by scanning every other
// block's terminator successors, mirroring compiler/ir.BasicBlock's
// on-demand Predecessors.
func Predecessors(f *Function) map[*Block][]*Block {
	preds := make(map[*Block][]*Block, len(f.Blocks))

	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for _, s := range term.Succs {
			preds[s] = append(preds[s], b)
		}
	}

	return preds
}
