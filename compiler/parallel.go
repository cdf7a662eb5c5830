package compiler

import (
	"bytes"
	"context"
	"fmt"
	"sync"

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

// CompileFunctions is Compile's parallel variant: optimization,
// verification, and lowering for each function run on their own
// goroutine (a manual sync.WaitGroup fan-out with one error slot per
// function, rather than an errgroup dependency). The only state those
// goroutines share is mir.StringTable, which synchronises itself
// (compiler/mir/strings.go); scheduling and allocation run afterward,
// sequentially, since neither
// has a concurrency-shaped bottleneck to hide behind a second fan-out.
func CompileFunctions(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	mod, err := frontend.Parse(ctx, name, text)
	if err != nil {
		return nil, err
	}

	irMod, err := irgen.Generate(ctx, mod)
	if err != nil {
		return nil, err
	}

	userFuncs := make(map[string]bool, len(irMod.Functions))
	for _, f := range irMod.Functions {
		userFuncs[f.Name] = true
	}
	strings := mir.NewStringTable()

	mfs := make([]*mir.Function, len(irMod.Functions))
	errs := make([]error, len(irMod.Functions))

	var wg sync.WaitGroup
	for i, f := range irMod.Functions {
		wg.Add(1)
		go func(i int, f *ir.Function) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = &IRVerifyError{Func: f.Name, Err: asError(r)}
				}
			}()

			opt.Optimize(f)
			if verr := ir.Verify(f); verr != nil {
				errs[i] = &IRVerifyError{Func: f.Name, Err: verr}
				return
			}
			mfs[i] = lower.Function(f, userFuncs, strings)
		}(i, f)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}

	mirMod := &mir.Module{Strings: strings, Functions: mfs}

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

	var buf bytes.Buffer
	if err := emit.Module(&buf, mirMod); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func asError(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return fmt.Errorf("%v", r)
}
