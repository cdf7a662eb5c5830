// Package lower translates optimized TAC-IR (compiler/ir) into a
// two-operand machine IR (compiler/mir), one function at a time.
package lower

import (
	"fmt"

	"github.com/marche147/klang/compiler/ir"
	"github.com/marche147/klang/compiler/mir"
)

// Module lowers every function of mod. Calls to names mod itself defines
// are prefixed K_, to avoid colliding with the C runtime; calls to names
// mod only declares as externs (the runtime ABI) are left bare.
func Module(mod *ir.Module) *mir.Module {
	userFuncs := make(map[string]bool, len(mod.Functions))
	for _, f := range mod.Functions {
		userFuncs[f.Name] = true
	}

	strings := mir.NewStringTable()

	mm := &mir.Module{Strings: strings}
	for _, f := range mod.Functions {
		mm.Functions = append(mm.Functions, Function(f, userFuncs, strings))
	}

	return mm
}

type ctx struct {
	f         *mir.Function
	regs      map[ir.Register]mir.VirtReg
	blocks    map[*ir.BasicBlock]*mir.Block
	strings   *mir.StringTable
	userFuncs map[string]bool
}

// Function lowers a single TAC-IR function. userFuncs/strings may be nil
// for ad-hoc single-function lowering (tests); Module always supplies
// them.
func Function(f *ir.Function, userFuncs map[string]bool, strings *mir.StringTable) *mir.Function {
	if userFuncs == nil {
		userFuncs = map[string]bool{}
	}
	if strings == nil {
		strings = mir.NewStringTable()
	}

	mf := mir.NewFunction(f.Name)
	c := &ctx{
		f:         mf,
		regs:      map[ir.Register]mir.VirtReg{},
		blocks:    map[*ir.BasicBlock]*mir.Block{},
		strings:   strings,
		userFuncs: userFuncs,
	}

	for _, b := range f.Blocks {
		c.blocks[b] = mf.NewBlock(blockName(f.Name, b.Index()))
	}
	for _, b := range f.Blocks {
		c.lowerBlock(b)
	}

	return mf
}

func blockName(fn string, idx int) string {
	return fmt.Sprintf("_%s_bb%d", fn, idx)
}

func (c *ctx) callName(name string) string {
	if c.userFuncs[name] {
		return "K_" + name
	}
	return name
}

func (c *ctx) vreg(r ir.Register) mir.VirtReg {
	if v, ok := c.regs[r]; ok {
		return v
	}
	v := c.f.NewVirtReg()
	c.regs[r] = v
	return v
}

func (c *ctx) operand(op ir.Operand) mir.Operand {
	switch o := op.(type) {
	case ir.Register:
		return c.vreg(o)
	case ir.Immediate:
		return mir.Imm(int64(o))
	case ir.Parameter:
		// One word for the saved RBP, one for the return address.
		return mir.Mem{Base: mir.RBP, Disp: int64(int(o)+2) * 8}
	default:
		panic(fmt.Sprintf("lower: unhandled ir.Operand %T", op))
	}
}

func condFor(op ir.BinOp) mir.Cond {
	switch op {
	case ir.Lt:
		return mir.CondL
	case ir.Le:
		return mir.CondLE
	case ir.Gt:
		return mir.CondG
	case ir.Ge:
		return mir.CondGE
	case ir.Eq:
		return mir.CondE
	case ir.Ne:
		return mir.CondNE
	default:
		panic(fmt.Sprintf("lower: %v is not a comparison", op))
	}
}

func arithOp(op ir.BinOp) mir.Op {
	switch op {
	case ir.Add:
		return mir.Add
	case ir.Sub:
		return mir.Sub
	case ir.And:
		return mir.And
	case ir.Or:
		return mir.Or
	case ir.Xor:
		return mir.Xor
	default:
		panic(fmt.Sprintf("lower: %v is not a simple arithmetic op", op))
	}
}

func (c *ctx) lowerBlock(b *ir.BasicBlock) {
	mb := c.blocks[b]

	b.ForEach(func(in *ir.Instruction) bool {
		c.lowerInst(mb, in)
		return true
	})
}

func (c *ctx) emit(mb *mir.Block, in *mir.Instruction) {
	mb.Instrs = append(mb.Instrs, in)
}

func (c *ctx) lowerInst(mb *mir.Block, in *ir.Instruction) {
	switch in.Op {
	case ir.Assign:
		c.emit(mb, mir.NewMov(c.vreg(in.Dst), c.operand(in.Operands[0])))

	case ir.Binary:
		c.lowerBinary(mb, in)

	case ir.Jmp:
		c.emit(mb, mir.NewJmp(c.blocks[in.Succs[0]]))

	case ir.Jnz:
		cond := c.operand(in.Operands[0])
		c.emit(mb, mir.NewTest(cond, cond))
		c.emit(mb, mir.NewJcc(mir.CondNE, c.blocks[in.Succs[0]], c.blocks[in.Succs[1]]))

	case ir.Ret:
		c.emit(mb, mir.NewMov(mir.MReg(mir.RAX), c.operand(in.Operands[0])))
		c.emit(mb, mir.NewRet())

	case ir.RetVoid:
		c.emit(mb, mir.NewRet())

	case ir.Call:
		dst := c.vreg(in.Dst)
		c.lowerCall(mb, in.Name, in.Operands, &dst)

	case ir.CallVoid:
		c.lowerCall(mb, in.Name, in.Operands, nil)

	case ir.ArrayNew:
		dst := c.vreg(in.Dst)
		c.lowerCall(mb, "array_new", in.Operands, &dst)

	case ir.ArrayLoad:
		dst := c.vreg(in.Dst)
		c.lowerCall(mb, "array_load", in.Operands, &dst)

	case ir.ArrayStore:
		c.lowerCall(mb, "array_store", in.Operands, nil)

	case ir.LoadLabel:
		label := c.strings.Intern(in.Name)
		c.emit(mb, mir.NewLea(c.vreg(in.Dst), label))

	case ir.Nop:
		// nothing to lower

	default:
		panic(fmt.Sprintf("lower: unhandled ir.Op %v", in.Op))
	}
}

func (c *ctx) lowerBinary(mb *mir.Block, in *ir.Instruction) {
	dst := c.vreg(in.Dst)
	a, b := in.Operands[0], in.Operands[1]

	switch {
	case in.BinOp == ir.Mul:
		c.emit(mb, mir.NewMov(dst, c.operand(a)))
		bOp := c.operand(b)
		if imm, ok := bOp.(mir.Imm); ok {
			c.emit(mb, mir.NewMov(mir.MReg(mir.RAX), imm))
			c.emit(mb, mir.NewArith(mir.IMul, dst, mir.MReg(mir.RAX)))
		} else {
			c.emit(mb, mir.NewArith(mir.IMul, dst, bOp))
		}

	case in.BinOp == ir.Div || in.BinOp == ir.Mod:
		c.emit(mb, mir.NewMov(mir.MReg(mir.RAX), c.operand(a)))
		c.emit(mb, mir.NewCqo())

		divisor := c.operand(b)
		if imm, ok := divisor.(mir.Imm); ok {
			tmp := c.f.NewVirtReg()
			c.emit(mb, mir.NewMov(tmp, imm))
			divisor = tmp
		}
		c.emit(mb, mir.NewIDiv(divisor))

		if in.BinOp == ir.Div {
			c.emit(mb, mir.NewMov(dst, mir.MReg(mir.RAX)))
		} else {
			c.emit(mb, mir.NewMov(dst, mir.MReg(mir.RDX)))
		}

	case in.BinOp.IsComparison():
		cc := condFor(in.BinOp)
		left, right := a, b
		if _, ok := a.(ir.Immediate); ok {
			left, right = b, a
			cc = cc.Swap()
		}

		c.emit(mb, mir.NewArith(mir.Xor, dst, dst))
		c.emit(mb, mir.NewCmp(c.operand(left), c.operand(right)))
		c.emit(mb, mir.NewCMov(cc, dst, mir.Imm(1)))

	default: // Add, Sub, And, Or, Xor
		c.emit(mb, mir.NewMov(dst, c.operand(a)))
		c.emit(mb, mir.NewArith(arithOp(in.BinOp), dst, c.operand(b)))
	}
}

// lowerCall lowers a Call/CallVoid/ArrayNew/ArrayLoad/ArrayStore-shaped
// instruction: push args right to left, call, restore RSP, and (if dst is
// non-nil) move the result out of RAX.
func (c *ctx) lowerCall(mb *mir.Block, name string, args []ir.Operand, dst *mir.VirtReg) {
	for i := len(args) - 1; i >= 0; i-- {
		c.emit(mb, mir.NewPush(c.operand(args[i])))
	}

	c.emit(mb, mir.NewCall(c.callName(name)))

	if len(args) > 0 {
		c.emit(mb, mir.NewArith(mir.Add, mir.MReg(mir.RSP), mir.Imm(8*int64(len(args)))))
	}

	if dst != nil {
		c.emit(mb, mir.NewMov(*dst, mir.MReg(mir.RAX)))
	}
}
