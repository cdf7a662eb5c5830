package ir_test

import (
	"testing"

	"github.com/marche147/klang/compiler/ir"
)

// buildDiamond builds:
//
//	bb0: r0 = p0; jnz r0, bb1, bb2
//	bb1: r1 = 1; jmp bb3
//	bb2: r1 = 2; jmp bb3
//	bb3: ret r1
func buildDiamond() *ir.Function {
	f := ir.NewFunction("diamond", 1)

	bb0 := f.NewBlock()
	bb1 := f.NewBlock()
	bb2 := f.NewBlock()
	bb3 := f.NewBlock()

	r0 := f.NewRegister()
	r1 := f.NewRegister()

	bb0.Append(ir.NewAssign(r0, ir.Parameter(0)))
	bb0.Append(ir.NewJnz(r0, bb1, bb2))

	bb1.Append(ir.NewAssign(r1, ir.Immediate(1)))
	bb1.Append(ir.NewJmp(bb3))

	bb2.Append(ir.NewAssign(r1, ir.Immediate(2)))
	bb2.Append(ir.NewJmp(bb3))

	bb3.Append(ir.NewRet(r1))

	return f
}

func TestVerifyDiamond(t *testing.T) {
	f := buildDiamond()

	if err := ir.Verify(f); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsEmptyBlock(t *testing.T) {
	f := buildDiamond()
	f.NewBlock() // unreachable, empty

	if err := ir.Verify(f); err == nil {
		t.Fatal("expected verify to reject a dangling empty block")
	}
}

func TestVerifyRejectsMissingTerminator(t *testing.T) {
	f := ir.NewFunction("bad", 0)
	bb := f.NewBlock()
	bb.Append(ir.NewAssign(f.NewRegister(), ir.Immediate(1)))

	if err := ir.Verify(f); err == nil {
		t.Fatal("expected verify to reject a block with no terminator")
	}
}

func TestReversePostOrder(t *testing.T) {
	f := buildDiamond()

	rpo := ir.ReversePostOrder(f)
	if len(rpo) != 4 {
		t.Fatalf("expected 4 reachable blocks, got %d", len(rpo))
	}

	if rpo[0] != f.Entry() {
		t.Fatalf("expected entry first in RPO")
	}

	pos := map[*ir.BasicBlock]int{}
	for i, b := range rpo {
		pos[b] = i
	}

	if pos[f.Blocks[3]] != 3 {
		t.Fatalf("expected exit block last in RPO, got position %d", pos[f.Blocks[3]])
	}
}

func TestPredecessors(t *testing.T) {
	f := buildDiamond()

	preds := f.Blocks[3].Predecessors()
	if len(preds) != 2 {
		t.Fatalf("expected 2 predecessors of exit block, got %d", len(preds))
	}
}

func TestOperandStructuralEquality(t *testing.T) {
	var a, b ir.Operand = ir.Register(3), ir.Register(3)
	if a != b {
		t.Fatal("expected equal Registers to compare ==")
	}

	var c ir.Operand = ir.Immediate(3)
	if a == c {
		t.Fatal("Register(3) must not equal Immediate(3)")
	}
}

func TestBlockMutation(t *testing.T) {
	f := ir.NewFunction("f", 0)
	bb := f.NewBlock()

	r := f.NewRegister()
	a := ir.NewAssign(r, ir.Immediate(1))
	ret := ir.NewRet(r)

	bb.Append(a)
	bb.Append(ret)

	mid := ir.NewAssign(f.NewRegister(), ir.Immediate(2))
	bb.InsertBefore(ret, mid)

	got := bb.Instructions()
	if len(got) != 3 || got[1] != mid {
		t.Fatalf("unexpected instruction order after insert: %v", got)
	}

	bb.Remove(mid)

	got = bb.Instructions()
	if len(got) != 2 {
		t.Fatalf("expected 2 instructions after remove, got %d", len(got))
	}
}

func TestInsertAlreadyParentedPanics(t *testing.T) {
	f := ir.NewFunction("f", 0)
	bb1 := f.NewBlock()
	bb2 := f.NewBlock()

	a := ir.NewAssign(f.NewRegister(), ir.Immediate(1))
	bb1.Append(a)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic inserting an already-parented instruction")
		}
	}()

	bb2.Append(a)
}
