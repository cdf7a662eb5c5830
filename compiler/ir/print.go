package ir

import "tlog.app/go/tlog"

// Dump logs the function's current form with tlog.Printw, one line per
// instruction. Guard calls at the V("dump") verbosity so routine builds
// stay quiet.
func Dump(f *Function) {
	tlog.Printw("function", "name", f.Name, "params", f.NumParams, "blocks", len(f.Blocks))

	for _, b := range f.Blocks {
		b.ForEach(func(in *Instruction) bool {
			tlog.Printw("code", "block", b.Index(), "op", in.Op, "val", in.String())
			return true
		})
	}
}
