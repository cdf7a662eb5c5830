package sched

import (
	"testing"

	"github.com/marche147/klang/compiler/mir"
)

func indexOf(instrs []*mir.Instruction, target *mir.Instruction) int {
	for i, in := range instrs {
		if in == target {
			return i
		}
	}
	return -1
}

func TestBlockPreservesDependencyOrder(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.NewBlock("bb0")

	v0 := f.NewVirtReg()
	v1 := f.NewVirtReg()

	defV0 := mir.NewMov(v0, mir.Imm(1))
	useV0 := mir.NewArith(mir.Add, v0, mir.Imm(2))
	defV1 := mir.NewMov(v1, mir.Imm(3))
	ret := mir.NewRet()

	b.Instrs = []*mir.Instruction{defV0, defV1, useV0, ret}

	Block(b)

	if len(b.Instrs) != 4 {
		t.Fatalf("expected 4 instructions after scheduling, got %d", len(b.Instrs))
	}
	if indexOf(b.Instrs, defV0) >= indexOf(b.Instrs, useV0) {
		t.Fatalf("definition of v0 must precede its use, got order %v", b.Instrs)
	}
	if indexOf(b.Instrs, ret) != len(b.Instrs)-1 {
		t.Fatalf("barrier Ret must remain last, got order %v", b.Instrs)
	}
}

func TestBlockKeepsBarrierOrderAmongCalls(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.NewBlock("bb0")

	call1 := mir.NewCall("a")
	call2 := mir.NewCall("b")
	ret := mir.NewRet()

	b.Instrs = []*mir.Instruction{call1, call2, ret}

	Block(b)

	if indexOf(b.Instrs, call1) >= indexOf(b.Instrs, call2) {
		t.Fatalf("barriers must stay in program order, got %v", b.Instrs)
	}
	if indexOf(b.Instrs, call2) >= indexOf(b.Instrs, ret) {
		t.Fatalf("barriers must stay in program order, got %v", b.Instrs)
	}
}

func TestBlockKeepsIndependentChainsInternallyOrdered(t *testing.T) {
	f := mir.NewFunction("f")
	b := f.NewBlock("bb0")

	v0 := f.NewVirtReg()
	v1 := f.NewVirtReg()

	// Two independent Movs, each followed by a use; nothing forces a
	// specific interleaving, but both chains must stay internally ordered.
	defV0 := mir.NewMov(v0, mir.Imm(1))
	defV1 := mir.NewMov(v1, mir.Imm(2))
	useV0 := mir.NewArith(mir.Add, v0, mir.Imm(1))
	useV1 := mir.NewArith(mir.Add, v1, mir.Imm(1))

	b.Instrs = []*mir.Instruction{defV0, defV1, useV0, useV1}

	Block(b)

	if len(b.Instrs) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(b.Instrs))
	}
	if indexOf(b.Instrs, defV0) >= indexOf(b.Instrs, useV0) {
		t.Fatalf("v0 chain reordered incorrectly: %v", b.Instrs)
	}
	if indexOf(b.Instrs, defV1) >= indexOf(b.Instrs, useV1) {
		t.Fatalf("v1 chain reordered incorrectly: %v", b.Instrs)
	}
}
