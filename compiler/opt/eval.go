package opt

import "github.com/marche147/klang/compiler/ir"

// eval implements the integer evaluator shared by constant propagation and
// the dead-code eliminator's constant-folding sub-pass: the one place that
// knows how to execute a BinOp on two known int64 operands. Division and
// modulo by a constant zero are left unfolded (ok=false), leaving
// divide-by-zero a runtime concern, not a compile-time one.
func eval(op ir.BinOp, a, b int64) (v int64, ok bool) {
	switch op {
	case ir.Add:
		return a + b, true
	case ir.Sub:
		return a - b, true
	case ir.Mul:
		return a * b, true
	case ir.Div:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.Mod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case ir.And:
		return a & b, true
	case ir.Or:
		return a | b, true
	case ir.Xor:
		return a ^ b, true
	case ir.Shl:
		if b < 0 || b >= 64 {
			return 0, false
		}
		return a << uint(b), true
	case ir.Shr:
		if b < 0 || b >= 64 {
			return 0, false
		}
		return a >> uint(b), true
	case ir.Lt:
		return boolInt(a < b), true
	case ir.Le:
		return boolInt(a <= b), true
	case ir.Gt:
		return boolInt(a > b), true
	case ir.Ge:
		return boolInt(a >= b), true
	case ir.Eq:
		return boolInt(a == b), true
	case ir.Ne:
		return boolInt(a != b), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// asImmediate reports whether op is an Immediate and, if so, its value.
func asImmediate(op ir.Operand) (int64, bool) {
	imm, ok := op.(ir.Immediate)
	if !ok {
		return 0, false
	}
	return int64(imm), true
}
