package regalloc

import "github.com/marche147/klang/compiler/mir"

// callFixup saves/restores around a Call every register live across it,
// since the runtime ABI makes no caller-save guarantees of its own.
func callFixup(f *mir.Function, n *numbering, intervals []*Interval) {
	before := map[*mir.Instruction][]*mir.Instruction{}
	after := map[*mir.Instruction][]*mir.Instruction{}

	for _, in := range n.flat {
		if in.Op != mir.Call {
			continue
		}
		callIdx := n.index[in]

		for _, iv := range intervals {
			if !iv.HasAssigned {
				continue
			}
			realEnd := iv.End
			if iv.Spilled {
				realEnd = iv.SpillAt
			}
			if !(iv.Start <= callIdx && callIdx <= realEnd) {
				continue
			}

			slot := f.NewSpillSlot()
			before[in] = append(before[in], mir.NewMov(slot, mir.MReg(iv.Assigned)))
			after[in] = append(after[in], mir.NewMov(mir.MReg(iv.Assigned), slot))
		}
	}

	insertAround(n.order, before, after)
}
