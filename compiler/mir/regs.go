package mir

// VirtRegOf reports the VirtReg an operand names directly (not via a Mem
// base/index, which are always physical).
func VirtRegOf(op Operand) (VirtReg, bool) {
	v, ok := op.(VirtReg)
	return v, ok
}

// AddressRegs returns the physical registers an operand's address
// computation reads: a Mem's base and (if present) index, or, for a bare
// MReg, itself. Immediates and virtual registers contribute nothing.
func AddressRegs(op Operand) []PhysReg {
	switch o := op.(type) {
	case Mem:
		if o.Index != NoReg {
			return []PhysReg{o.Base, o.Index}
		}
		return []PhysReg{o.Base}
	case MReg:
		return []PhysReg{PhysReg(o)}
	default:
		return nil
	}
}

// VirtRegsTouched collects every VirtReg referenced anywhere in ops
// (including a Mem doesn't carry virtual registers by construction, so
// this only needs to look at top-level operands).
func VirtRegsTouched(ops []Operand) []VirtReg {
	var out []VirtReg
	for _, op := range ops {
		if v, ok := VirtRegOf(op); ok {
			out = append(out, v)
		}
	}
	return out
}

// ReplaceOperand rewrites every occurrence of old with new across an
// instruction's Dst and Src, used by the register allocator's rewrite
// step and its operand-form fixups.
func ReplaceOperand(in *Instruction, old, new Operand) {
	if in.HasDst && in.Dst == old {
		in.Dst = new
	}
	for i, op := range in.Src {
		if op == old {
			in.Src[i] = new
		}
	}
}
