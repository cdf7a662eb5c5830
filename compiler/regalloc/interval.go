package regalloc

import "github.com/marche147/klang/compiler/mir"

// Interval is the allocator's per-virtual-register live range.
type Interval struct {
	VReg  mir.VirtReg
	Start int
	End   int

	Spilled     bool
	SpillAt     int
	SpillSlot   mir.Mem
	HasAssigned bool
	Assigned    mir.PhysReg
}

// buildIntervals computes one [start,end] per virtual register touched
// anywhere in f, then extends each per block: live-out of a block
// extends end to the block's last instruction, live-in extends start to
// its first.
func buildIntervals(n *numbering, in, out map[*mir.Block]liveSet) []*Interval {
	byReg := map[mir.VirtReg]*Interval{}

	touch := func(v mir.VirtReg, idx int) {
		iv, ok := byReg[v]
		if !ok {
			byReg[v] = &Interval{VReg: v, Start: idx, End: idx}
			return
		}
		if idx < iv.Start {
			iv.Start = idx
		}
		if idx > iv.End {
			iv.End = idx
		}
	}

	for idx, ins := range n.flat {
		for _, op := range ins.Ins() {
			if v, ok := mir.VirtRegOf(op); ok {
				touch(v, idx)
			}
		}
		for _, op := range ins.Outs() {
			if v, ok := mir.VirtRegOf(op); ok {
				touch(v, idx)
			}
		}
	}

	for _, b := range n.order {
		start, end := n.blockStart[b], n.blockEnd[b]
		if end < start {
			continue // empty block
		}
		out[b].forEach(func(v mir.VirtReg) {
			if iv, ok := byReg[v]; ok && end > iv.End {
				iv.End = end
			}
		})
		in[b].forEach(func(v mir.VirtReg) {
			if iv, ok := byReg[v]; ok && start < iv.Start {
				iv.Start = start
			}
		})
	}

	intervals := make([]*Interval, 0, len(byReg))
	for _, iv := range byReg {
		intervals = append(intervals, iv)
	}
	return intervals
}
