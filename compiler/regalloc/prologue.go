package regalloc

import "github.com/marche147/klang/compiler/mir"

// addPrologueEpilogue inserts the frame setup and teardown code.
func addPrologueEpilogue(f *mir.Function) {
	if len(f.Blocks) == 0 {
		return
	}

	entry := f.Blocks[0]
	prologue := []*mir.Instruction{
		mir.NewPush(mir.MReg(mir.RBP)),
		mir.NewMov(mir.MReg(mir.RBP), mir.MReg(mir.RSP)),
	}
	if f.SpillSlots > 0 {
		prologue = append(prologue, mir.NewArith(mir.Sub, mir.MReg(mir.RSP), mir.Imm(8*int64(f.SpillSlots))))
	}
	entry.Instrs = append(prologue, entry.Instrs...)

	for _, b := range f.Blocks {
		var out []*mir.Instruction
		for _, in := range b.Instrs {
			if in.Op == mir.Ret {
				out = append(out,
					mir.NewMov(mir.MReg(mir.RSP), mir.MReg(mir.RBP)),
					mir.NewPop(mir.MReg(mir.RBP)),
				)
			}
			out = append(out, in)
		}
		b.Instrs = out
	}
}
