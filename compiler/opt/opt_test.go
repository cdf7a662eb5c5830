package opt_test

import (
	"testing"

	"github.com/marche147/klang/compiler/ir"
	"github.com/marche147/klang/compiler/opt"
)

func countInstructions(f *ir.Function) int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Instructions())
	}
	return n
}

func TestConstantFoldingAndPropagation(t *testing.T) {
	// r0 = 2; r1 = 3; r2 = r0 + r1; ret r2  =>  should fold to ret #5.
	f := ir.NewFunction("f", 0)
	bb := f.NewBlock()

	r0 := f.NewRegister()
	r1 := f.NewRegister()
	r2 := f.NewRegister()

	bb.Append(ir.NewAssign(r0, ir.Immediate(2)))
	bb.Append(ir.NewAssign(r1, ir.Immediate(3)))
	bb.Append(ir.NewBinary(ir.Add, r2, r0, r1))
	bb.Append(ir.NewRet(r2))

	opt.Optimize(f)

	if err := ir.Verify(f); err != nil {
		t.Fatalf("verify after optimize: %v", err)
	}

	ret := f.Entry().Last()
	if ret.Op != ir.Ret {
		t.Fatalf("expected last instruction to remain Ret, got %v", ret)
	}

	imm, ok := ret.Operands[0].(ir.Immediate)
	if !ok || imm != 5 {
		t.Fatalf("expected ret to fold to #5, got %v", ret.Operands[0])
	}
}

func TestDeadCodeElimination(t *testing.T) {
	// r0 = 1; r1 = 2 (dead); ret r0  =>  constant propagation resolves the
	// Ret operand directly, after which both assignments are dead.
	f := ir.NewFunction("f", 0)
	bb := f.NewBlock()

	r0 := f.NewRegister()
	r1 := f.NewRegister()

	bb.Append(ir.NewAssign(r0, ir.Immediate(1)))
	bb.Append(ir.NewAssign(r1, ir.Immediate(2)))
	bb.Append(ir.NewRet(r0))

	opt.Optimize(f)

	if err := ir.Verify(f); err != nil {
		t.Fatalf("verify after optimize: %v", err)
	}

	if n := countInstructions(f); n != 1 {
		t.Fatalf("expected both assignments eliminated (1 instruction left), got %d", n)
	}

	ret := f.Entry().Last()
	if imm, ok := ret.Operands[0].(ir.Immediate); !ok || imm != 1 {
		t.Fatalf("expected ret to fold to #1, got %v", ret.Operands[0])
	}
}

func TestConstantJnzCollapseAndUnreachablePrune(t *testing.T) {
	// bb0: jnz #1, bb1, bb2 => collapses to jmp bb1, bb2 becomes unreachable.
	f := ir.NewFunction("f", 0)
	bb0 := f.NewBlock()
	bb1 := f.NewBlock()
	bb2 := f.NewBlock()

	bb0.Append(ir.NewJnz(ir.Immediate(1), bb1, bb2))
	bb1.Append(ir.NewRetVoid())
	bb2.Append(ir.NewRetVoid())

	opt.Optimize(f)

	if err := ir.Verify(f); err != nil {
		t.Fatalf("verify after optimize: %v", err)
	}

	if len(f.Blocks) != 2 {
		t.Fatalf("expected unreachable block pruned, got %d blocks", len(f.Blocks))
	}

	term := f.Entry().Terminator()
	if term.Op != ir.Jmp {
		t.Fatalf("expected entry to end in Jmp after collapse, got %v", term.Op)
	}
}

func TestLocalCSEReusesRepeatedImmediateExpression(t *testing.T) {
	// r0 = 1 + 2; r1 = 1 + 2; ret r1  =>  second reuses the first's value.
	f := ir.NewFunction("f", 0)
	bb := f.NewBlock()

	r0 := f.NewRegister()
	r1 := f.NewRegister()

	bb.Append(ir.NewBinary(ir.Add, r0, ir.Immediate(1), ir.Immediate(2)))
	bb.Append(ir.NewBinary(ir.Add, r1, ir.Immediate(1), ir.Immediate(2)))
	bb.Append(ir.NewCallVoid("printi", r0))
	bb.Append(ir.NewCallVoid("printi", r1))
	bb.Append(ir.NewRetVoid())

	opt.Optimize(f)

	if err := ir.Verify(f); err != nil {
		t.Fatalf("verify after optimize: %v", err)
	}

	// After constant folding both are just #3; either way the two prints
	// must still observe the same value.
	var vals []ir.Operand
	f.Entry().ForEach(func(in *ir.Instruction) bool {
		if in.Op == ir.CallVoid {
			vals = append(vals, in.Operands[0])
		}
		return true
	})

	if len(vals) != 2 || vals[0] != vals[1] {
		t.Fatalf("expected both prints to see the same value, got %v", vals)
	}
}

func TestCopyPropagationSubstitutesAtUse(t *testing.T) {
	// r0 = p0; r1 = r0; ret r1  =>  copy propagation rewrites Ret's operand
	// to r0 directly, after which r1's now-dead definition is eliminated.
	f := ir.NewFunction("f", 1)
	bb := f.NewBlock()

	r0 := f.NewRegister()
	r1 := f.NewRegister()

	bb.Append(ir.NewAssign(r0, ir.Parameter(0)))
	bb.Append(ir.NewAssign(r1, r0))
	bb.Append(ir.NewRet(r1))

	opt.Optimize(f)

	if err := ir.Verify(f); err != nil {
		t.Fatalf("verify after optimize: %v", err)
	}

	if n := countInstructions(f); n != 2 {
		t.Fatalf("expected r1's copy eliminated (2 instructions left), got %d", n)
	}

	ret := f.Entry().Last()
	if ret.Op != ir.Ret {
		t.Fatalf("expected Ret, got %v", ret.Op)
	}
	if reg, ok := ret.Operands[0].(ir.Register); !ok || reg != r0 {
		t.Fatalf("expected Ret to reference r0 directly, got %v", ret.Operands[0])
	}
}
