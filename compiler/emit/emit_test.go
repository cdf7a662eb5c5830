package emit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/marche147/klang/compiler/mir"
)

func buildSimpleModule() *mir.Module {
	f := mir.NewFunction("main")
	b := f.NewBlock("bb0")
	b.Instrs = append(b.Instrs, mir.NewMov(mir.MReg(mir.RAX), mir.Imm(7)), mir.NewRet())

	mod := &mir.Module{Functions: []*mir.Function{f}, Strings: mir.NewStringTable()}
	return mod
}

func TestModuleEmitsGlobalDirectiveAndLabel(t *testing.T) {
	mod := buildSimpleModule()

	var buf bytes.Buffer
	if err := Module(&buf, mod); err != nil {
		t.Fatalf("Module: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, ".global K_main\n") {
		t.Fatalf("missing .global K_main directive:\n%s", out)
	}
	if !strings.Contains(out, "K_main:\n") {
		t.Fatalf("missing K_main label:\n%s", out)
	}
	if !strings.Contains(out, ".intel_syntax noprefix") {
		t.Fatalf("missing intel_syntax directive:\n%s", out)
	}
}

func TestModuleExpandsJccIntoTwoRealJumps(t *testing.T) {
	f := mir.NewFunction("branchy")
	entry := f.NewBlock("bb0")
	t1 := f.NewBlock("bb1")
	t2 := f.NewBlock("bb2")

	t1.Instrs = append(t1.Instrs, mir.NewRet())
	t2.Instrs = append(t2.Instrs, mir.NewRet())
	entry.Instrs = append(entry.Instrs, &mir.Instruction{
		Op:    mir.Jcc,
		Cond:  mir.CondL,
		Succs: []*mir.Block{t1, t2},
	})

	mod := &mir.Module{Functions: []*mir.Function{f}, Strings: mir.NewStringTable()}

	var buf bytes.Buffer
	if err := Module(&buf, mod); err != nil {
		t.Fatalf("Module: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "\tjl bb1\n\tjmp bb2\n") {
		t.Fatalf("expected expanded jl/jmp pair, got:\n%s", out)
	}
}

func TestModuleEmitsDataSectionWithByteList(t *testing.T) {
	mod := buildSimpleModule()
	mod.Strings.Intern("hi")

	var buf bytes.Buffer
	if err := Module(&buf, mod); err != nil {
		t.Fatalf("Module: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, ".data") {
		t.Fatalf("missing .data section:\n%s", out)
	}
	if !strings.Contains(out, "__str0:\n\t.byte 104, 105, 0\n") {
		t.Fatalf("expected byte-encoded string literal, got:\n%s", out)
	}
}

func TestModuleIsDeterministicAcrossRuns(t *testing.T) {
	mod := buildSimpleModule()
	mod.Strings.Intern("a")
	mod.Strings.Intern("b")

	var buf1, buf2 bytes.Buffer
	if err := Module(&buf1, mod); err != nil {
		t.Fatalf("Module (1): %v", err)
	}
	if err := Module(&buf2, mod); err != nil {
		t.Fatalf("Module (2): %v", err)
	}

	if buf1.String() != buf2.String() {
		t.Fatalf("emitter output is not stable across runs:\n--- 1 ---\n%s\n--- 2 ---\n%s", buf1.String(), buf2.String())
	}
}
