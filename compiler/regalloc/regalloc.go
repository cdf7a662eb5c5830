// Package regalloc implements a linear-scan register allocator:
// numbering, liveness, interval construction, scan-with-spill, operand
// rewrite, x86 operand-form legalization, call fixup, and
// prologue/epilogue insertion.
package regalloc

import "github.com/marche147/klang/compiler/mir"

// Allocate runs the full eight-step pipeline over f in place, replacing
// every mir.VirtReg operand with a physical register or stack slot and
// leaving f ready for compiler/emit.
func Allocate(f *mir.Function) {
	n := number(f)
	in, out := liveness(f)
	intervals := buildIntervals(n, in, out)

	linearScan(f, intervals)
	rewrite(n, intervals)
	fixupOperandForms(n.order)
	callFixup(f, n, intervals)
	addPrologueEpilogue(f)
}

// AllocateModule runs Allocate over every function in mod.
func AllocateModule(mod *mir.Module) {
	for _, f := range mod.Functions {
		Allocate(f)
	}
}
