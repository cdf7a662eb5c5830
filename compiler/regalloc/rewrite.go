package regalloc

import "github.com/marche147/klang/compiler/mir"

// insertAround splices extra instructions immediately before/after specific
// anchor instructions across every block of order, without disturbing any
// index-based bookkeeping computed earlier (it works purely off instruction
// identity, not position).
func insertAround(order []*mir.Block, before, after map[*mir.Instruction][]*mir.Instruction) {
	if len(before) == 0 && len(after) == 0 {
		return
	}
	for _, b := range order {
		out := make([]*mir.Instruction, 0, len(b.Instrs))
		for _, in := range b.Instrs {
			out = append(out, before[in]...)
			out = append(out, in)
			out = append(out, after[in]...)
		}
		b.Instrs = out
	}
}

// rewrite replaces every VirtReg operand with either its assigned
// physical register or (for the spilled sub-range) its spill slot,
// inserting the spill-out Mov where an interval transitions from
// register to memory.
func rewrite(n *numbering, intervals []*Interval) {
	before := map[*mir.Instruction][]*mir.Instruction{}

	for _, iv := range intervals {
		if !iv.Spilled {
			for idx := iv.Start; idx <= iv.End; idx++ {
				mir.ReplaceOperand(n.at(idx), iv.VReg, mir.MReg(iv.Assigned))
			}
			continue
		}

		if iv.HasAssigned {
			for idx := iv.Start; idx < iv.SpillAt; idx++ {
				mir.ReplaceOperand(n.at(idx), iv.VReg, mir.MReg(iv.Assigned))
			}

			anchor := n.at(iv.SpillAt)
			mov := mir.NewMov(iv.SpillSlot, mir.MReg(iv.Assigned))
			before[anchor] = append(before[anchor], mov)
		}

		for idx := iv.SpillAt; idx <= iv.End; idx++ {
			mir.ReplaceOperand(n.at(idx), iv.VReg, iv.SpillSlot)
		}
	}

	insertAround(n.order, before, nil)
}
