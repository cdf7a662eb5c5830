// Package ir implements the machine-independent three-address-code
// intermediate representation consumed by the optimizer and produced by
// the AST->IR translator in compiler/irgen.
package ir

import "fmt"

type (
	// Operand is a TAC-IR value: a virtual register, an immediate, or a
	// reference to one of the function's parameters. Equality is
	// structural: two Operands compare equal with == iff they have the
	// same dynamic type and value.
	Operand interface {
		isOperand()
	}

	// Register is a virtual register, dense and unique within its
	// owning Function.
	Register int

	// Immediate is a constant integer operand.
	Immediate int64

	// Parameter is a 0-based reference to one of the function's formal
	// parameters.
	Parameter int
)

func (Register) isOperand()  {}
func (Immediate) isOperand() {}
func (Parameter) isOperand() {}

func (r Register) String() string  { return fmt.Sprintf("r%d", int(r)) }
func (i Immediate) String() string { return fmt.Sprintf("#%d", int64(i)) }
func (p Parameter) String() string { return fmt.Sprintf("p%d", int(p)) }

// Op is the instruction discriminator.
type Op int

const (
	Nop Op = iota
	Assign
	Binary
	Jmp
	Jnz
	Call
	CallVoid
	Ret
	RetVoid
	ArrayNew
	ArrayLoad
	ArrayStore
	LoadLabel
)

func (op Op) String() string {
	switch op {
	case Nop:
		return "nop"
	case Assign:
		return "assign"
	case Binary:
		return "binary"
	case Jmp:
		return "jmp"
	case Jnz:
		return "jnz"
	case Call:
		return "call"
	case CallVoid:
		return "call_void"
	case Ret:
		return "ret"
	case RetVoid:
		return "ret_void"
	case ArrayNew:
		return "array_new"
	case ArrayLoad:
		return "array_load"
	case ArrayStore:
		return "array_store"
	case LoadLabel:
		return "load_label"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// BinOp is the operator carried by a Binary instruction.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr
	Lt
	Le
	Gt
	Ge
	Eq
	Ne
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	case And:
		return "&"
	case Or:
		return "|"
	case Xor:
		return "^"
	case Shl:
		return "<<"
	case Shr:
		return ">>"
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case Eq:
		return "=="
	case Ne:
		return "!="
	default:
		return fmt.Sprintf("binop(%d)", int(op))
	}
}

// IsComparison reports whether op produces a 0/1 integer result.
func (op BinOp) IsComparison() bool {
	return op >= Lt && op <= Ne
}

// Instruction is one TAC-IR statement. The zero value is a Nop.
//
// Dst is the (optional) defined register; Operands are non-destination
// read operands in source order (e.g. the two operands of a Binary, the
// call arguments, the array/index/value of ArrayStore). Succs carries the
// branch targets for terminators and is empty otherwise. Name carries the
// callee or label symbol for Call/CallVoid/LoadLabel.
type Instruction struct {
	Op    Op
	BinOp BinOp // valid when Op == Binary

	Dst      Register // valid when the opcode defines a register
	HasDst   bool
	Operands []Operand

	Name string // Call/CallVoid/LoadLabel symbol

	Succs []*BasicBlock // terminators only

	id    instID
	block *BasicBlock
	prev  instID
	next  instID
}

// Ins returns the operands this instruction reads, in the fixed per-opcode
// order used throughout the optimizer and the lowering. Dst, when present,
// is never included: Outs covers writes.
func (in *Instruction) Ins() []Operand {
	return in.Operands
}

// Outs returns the registers this instruction writes (at most one).
func (in *Instruction) Outs() []Register {
	if !in.HasDst {
		return nil
	}
	return []Register{in.Dst}
}

// IsTerminator reports whether this instruction ends a basic block.
func (in *Instruction) IsTerminator() bool {
	switch in.Op {
	case Jmp, Jnz, Ret, RetVoid:
		return true
	default:
		return false
	}
}

// HasSideEffects reports whether this instruction must be retained by
// dead-code elimination regardless of whether its result is used.
func (in *Instruction) HasSideEffects() bool {
	switch in.Op {
	case Call, CallVoid, ArrayStore:
		return true
	default:
		return in.IsTerminator()
	}
}

// Arity returns the expected operand count for the instruction's opcode,
// used by Verify.
func (in *Instruction) Arity() int {
	switch in.Op {
	case Nop, Jmp, RetVoid, LoadLabel:
		return 0
	case Assign, Ret:
		return 1
	case Jnz:
		return 1
	case Binary, ArrayLoad:
		return 2
	case ArrayStore:
		return 3
	case ArrayNew:
		return 1
	case Call, CallVoid:
		return -1 // variadic
	default:
		return -1
	}
}

func (in *Instruction) String() string {
	dst := ""
	if in.HasDst {
		dst = in.Dst.String() + " = "
	}

	switch in.Op {
	case Nop:
		return "nop"
	case Assign:
		return fmt.Sprintf("%s%v", dst, in.Operands[0])
	case Binary:
		return fmt.Sprintf("%s%v %v %v", dst, in.Operands[0], in.BinOp, in.Operands[1])
	case Jmp:
		return fmt.Sprintf("jmp bb%d", in.Succs[0].Index())
	case Jnz:
		return fmt.Sprintf("jnz %v, bb%d, bb%d", in.Operands[0], in.Succs[0].Index(), in.Succs[1].Index())
	case Call:
		return fmt.Sprintf("%s%s(%v)", dst, in.Name, in.Operands)
	case CallVoid:
		return fmt.Sprintf("%s(%v)", in.Name, in.Operands)
	case Ret:
		return fmt.Sprintf("ret %v", in.Operands[0])
	case RetVoid:
		return "ret"
	case ArrayNew:
		return fmt.Sprintf("%s%s(%v)", dst, "array_new", in.Operands[0])
	case ArrayLoad:
		return fmt.Sprintf("%s%s[%v]", dst, in.Operands[0], in.Operands[1])
	case ArrayStore:
		return fmt.Sprintf("%v[%v] = %v", in.Operands[0], in.Operands[1], in.Operands[2])
	case LoadLabel:
		return fmt.Sprintf("%slabel %s", dst, in.Name)
	default:
		return fmt.Sprintf("<%v>", in.Op)
	}
}
