// Package opt implements the TAC-IR optimizer: constant propagation,
// copy propagation, local and global common-subexpression elimination,
// and dead-code elimination, iterated to a fixed point. Constant and copy
// propagation, global CSE and dead-register elimination use the
// compiler/df generic dataflow solver; local CSE and the remaining
// dead-code sub-passes work block by block. All of them edit through
// compiler/ir's mutable block API.
package opt

import (
	"tlog.app/go/tlog"

	"github.com/marche147/klang/compiler/ir"
)

// Optimize runs all five passes over f, repeating the whole sequence
// until none of them reports a change. Pass order affects convergence
// speed, not the final result.
func Optimize(f *ir.Function) {
	for round := 0; ; round++ {
		changed := false

		changed = constProp(f) || changed
		changed = copyProp(f) || changed
		changed = localCSE(f) || changed
		changed = globalCSE(f) || changed
		changed = dce(f) || changed

		tlog.V("opt").Printw("optimizer round", "func", f.Name, "round", round, "changed", changed)

		if !changed {
			return
		}
	}
}
