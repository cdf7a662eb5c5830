// Package emit renders a compiler/mir.Module as GAS-syntax, Intel-mode
// x86-64 assembly: one .text section with every function
// prefixed K_, one .data section with the interned string literals.
package emit

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"tlog.app/go/errors"

	"github.com/marche147/klang/compiler/mir"
)

// IOError wraps a write failure encountered while emitting.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("emit %s: %v", e.Path, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// ToFile writes mod's assembly to path, truncating/creating it; any write
// failure is surfaced as an *IOError.
func ToFile(mod *mir.Module, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := Module(w, mod); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	// Close is safe to call twice: the deferred call will now no-op on an
	// already-closed file descriptor and its error is discarded.
	return nil
}

// Module writes mod's full assembly listing to w, in deterministic
// function/block/instruction order, for reproducible builds.
func Module(w io.Writer, mod *mir.Module) error {
	bw := &errWriter{w: w}

	fmt.Fprintln(bw, ".intel_syntax noprefix")
	fmt.Fprintln(bw, ".text")

	for _, f := range mod.Functions {
		Function(bw, f)
	}

	fmt.Fprintln(bw, ".data")
	for i, s := range mod.Strings.Entries() {
		emitStringLiteral(bw, i, s)
	}

	return bw.err
}

// Function writes one function's directive, label, and blocks.
func Function(w io.Writer, f *mir.Function) {
	fmt.Fprintf(w, ".global K_%s\n", f.Name)
	fmt.Fprintf(w, "K_%s:\n", f.Name)

	for _, b := range f.Blocks {
		Block(w, b)
	}
}

// Block writes one block's label followed by its instructions, one per
// line. A Jcc is expanded into its two real machine instructions — a
// conditional jump to the true successor, then an unconditional jump to
// the false one — since a single x86 jump can only encode one target.
func Block(w io.Writer, b *mir.Block) {
	fmt.Fprintf(w, "%s:\n", b.Name)

	for _, in := range b.Instrs {
		if in.Op == mir.Jcc {
			fmt.Fprintf(w, "\tj%s %s\n", in.Cond, in.Succs[0].Name)
			fmt.Fprintf(w, "\tjmp %s\n", in.Succs[1].Name)
			continue
		}
		fmt.Fprintf(w, "\t%s\n", in.String())
	}
}

func emitStringLiteral(w io.Writer, index int, s string) {
	fmt.Fprintf(w, "__str%d:\n\t.byte ", index)
	for _, b := range []byte(s) {
		fmt.Fprintf(w, "%d, ", b)
	}
	fmt.Fprintln(w, "0")
}

// errWriter short-circuits further writes after the first failure,
// collecting it once rather than checking every Fprintf call site, and
// surfaces the underlying cause via errors.Wrap for the caller's
// diagnostic.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = errors.Wrap(err, "write assembly output")
	}
	return n, e.err
}
