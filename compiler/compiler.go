// Package compiler wires the front end and every back-end stage into a
// single pipeline: CompileFile reads a source file and calls Compile,
// which runs parse -> typecheck+translate -> optimize -> lower ->
// schedule -> allocate -> emit and returns the resulting assembly text.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/marche147/klang/compiler/emit"
	"github.com/marche147/klang/compiler/frontend"
	"github.com/marche147/klang/compiler/ir"
	"github.com/marche147/klang/compiler/irgen"
	"github.com/marche147/klang/compiler/lower"
	"github.com/marche147/klang/compiler/mir"
	"github.com/marche147/klang/compiler/opt"
	"github.com/marche147/klang/compiler/regalloc"
	"github.com/marche147/klang/compiler/sched"
)

// CompileFile reads name and compiles it.
func CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.V("compiler").Printw("read file", "name", name, "size", len(text))

	return Compile(ctx, name, text)
}

// Compile runs the full pipeline over text (named name, for front-end
// error messages) and returns the emitted Intel-syntax assembly.
func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	mod, err := frontend.Parse(ctx, name, text)
	if err != nil {
		return nil, err
	}

	irMod, err := irgen.Generate(ctx, mod)
	if err != nil {
		return nil, err
	}

	for _, f := range irMod.Functions {
		opt.Optimize(f)
		if verr := ir.Verify(f); verr != nil {
			return nil, &IRVerifyError{Func: f.Name, Err: verr}
		}
	}

	var mirMod *mir.Module
	if perr := protect(func() { mirMod = lower.Module(irMod) }); perr != nil {
		return nil, &IRVerifyError{Func: name, Err: perr}
	}

	for _, f := range mirMod.Functions {
		if perr := protect(func() { sched.Function(f) }); perr != nil {
			return nil, &IRVerifyError{Func: f.Name, Err: perr}
		}
	}

	for _, f := range mirMod.Functions {
		if perr := protect(func() { regalloc.Allocate(f) }); perr != nil {
			return nil, &AllocationFailure{Func: f.Name, Err: perr}
		}
	}

	tlog.V("compiler").Printw("compiled module", "name", name, "functions", len(mirMod.Functions))

	var buf bytes.Buffer
	if err := emit.Module(&buf, mirMod); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// protect runs body, converting a panic (compiler/lower's, compiler/sched's,
// and compiler/regalloc's "this should be impossible" checks) into an
// error instead of letting it cross the package boundary.
func protect(body func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	body()
	return nil
}
