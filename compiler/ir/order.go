package ir

// PostOrder returns the function's reachable blocks in DFS post-order: a
// block is appended to the result only after all of its successors have
// been visited. Entry is visited first.
func PostOrder(f *Function) []*BasicBlock {
	entry := f.Entry()
	if entry == nil {
		return nil
	}

	visited := make(map[*BasicBlock]bool, len(f.Blocks))
	var order []*BasicBlock

	var walk func(b *BasicBlock)
	walk = func(b *BasicBlock) {
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

// ReversePostOrder returns the function's reachable blocks in RPO, the
// order required wherever forward iteration must respect control flow
// (dataflow, linear numbering).
func ReversePostOrder(f *Function) []*BasicBlock {
	po := PostOrder(f)

	rpo := make([]*BasicBlock, len(po))
	for i, b := range po {
		rpo[len(po)-1-i] = b
	}

	return rpo
}
