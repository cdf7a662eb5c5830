package compiler

import (
	"fmt"

	"github.com/marche147/klang/compiler/emit"
	"github.com/marche147/klang/compiler/frontend"
	"github.com/marche147/klang/compiler/irgen"
)

// ParseError and SemanticError are compiler/frontend's error types,
// re-exported here so a caller of this package never needs to import
// compiler/frontend itself just to type-switch on an error it got back
// from Compile. TypeError is compiler/irgen's counterpart, covering the
// typechecks the front end leaves to the AST-to-IR translator.
type (
	ParseError    = frontend.ParseError
	SemanticError = frontend.SemanticError
	TypeError     = irgen.TypeError

	// EmitIOError is compiler/emit's error type, re-exported for the same
	// reason.
	EmitIOError = emit.IOError
)

// IRVerifyError reports a TAC-IR or machine-IR structural invariant
// violation — a back-end bug, not a malformed input program.
// Compile and CompileFunctions construct one whenever compiler/ir.Verify
// fails or compiler/lower or compiler/sched panics (their "impossible
// operand/graph" panics); a panic out of compiler/regalloc becomes an
// AllocationFailure instead. The panic/recover boundary lives in this
// package, not in the packages that panic.
type IRVerifyError struct {
	Func string
	Err  error
}

func (e *IRVerifyError) Error() string { return fmt.Sprintf("function %q: %v", e.Func, e.Err) }
func (e *IRVerifyError) Unwrap() error { return e.Err }

// AllocationFailure reports a register allocator invariant violation for
// one function (a spill or fixup step leaving the allocator unable to
// reconcile its own bookkeeping), recovered at the same boundary as
// IRVerifyError but named separately since it names a distinct pipeline
// stage.
type AllocationFailure struct {
	Func string
	Err  error
}

func (e *AllocationFailure) Error() string { return fmt.Sprintf("function %q: %v", e.Func, e.Err) }
func (e *AllocationFailure) Unwrap() error { return e.Err }
