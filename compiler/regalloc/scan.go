package regalloc

import (
	"sort"

	"github.com/marche147/klang/compiler/mir"
)

// linearScan assigns registers greedily by ascending start point.
// intervals is mutated in place: every interval
// ends up either Assigned (with HasAssigned set for its whole range) or
// Spilled (with SpillAt/SpillSlot set, and HasAssigned/Assigned describing
// whatever register it held before spilling, if any).
func linearScan(f *mir.Function, intervals []*Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].Start != intervals[j].Start {
			return intervals[i].Start < intervals[j].Start
		}
		return intervals[i].VReg < intervals[j].VReg
	})

	inUse := make([]bool, len(mir.Allocatable))
	var active []*Interval // sorted by ascending End

	pickFree := func() (mir.PhysReg, int, bool) {
		for i, used := range inUse {
			if !used {
				return mir.Allocatable[i], i, true
			}
		}
		return mir.NoReg, -1, false
	}

	insertActive := func(iv *Interval) {
		i := 0
		for i < len(active) && active[i].End <= iv.End {
			i++
		}
		active = append(active, nil)
		copy(active[i+1:], active[i:])
		active[i] = iv
	}

	slotOf := func(reg mir.PhysReg) int {
		for i, r := range mir.Allocatable {
			if r == reg {
				return i
			}
		}
		return -1
	}

	for _, iv := range intervals {
		// 1. Expire.
		remaining := active[:0]
		for _, a := range active {
			if a.End < iv.Start {
				inUse[slotOf(a.Assigned)] = false
				continue
			}
			remaining = append(remaining, a)
		}
		active = remaining

		if len(active) < len(mir.Allocatable) {
			// 2. Assign a free register.
			reg, slot, ok := pickFree()
			if !ok {
				panic("regalloc: free register accounting is inconsistent")
			}
			inUse[slot] = true
			iv.Assigned = reg
			iv.HasAssigned = true
			insertActive(iv)
			continue
		}

		// 3. Active is full: compare against the longest-lived active
		// interval.
		last := active[len(active)-1]
		if last.End > iv.End {
			reg := last.Assigned

			// Evict last, reassign its register to iv.
			active = active[:len(active)-1]

			last.Spilled = true
			last.SpillAt = iv.Start
			last.SpillSlot = f.NewSpillSlot()

			iv.Assigned = reg
			iv.HasAssigned = true
			insertActive(iv)
			continue
		}

		iv.Spilled = true
		iv.SpillAt = iv.Start
		iv.SpillSlot = f.NewSpillSlot()
	}
}
