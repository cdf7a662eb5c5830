package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/marche147/klang/compiler"
)

func main() {
	app := &cli.Command{
		Name:        "klang",
		Description: "klang is a tool for compiling klang source code",
		Action:      compileAct,
		Args:        cli.Args{},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func compileAct(c *cli.Command) (err error) {
	if len(c.Args) == 0 {
		return errors.New("usage: klang <input.src> [<output.S>]")
	}

	input := c.Args[0]
	output := "out.S"
	if len(c.Args) > 1 {
		output = c.Args[1]
	}

	ctx := context.Background()

	obj, err := compiler.CompileFile(ctx, input)
	if err != nil {
		return errors.Wrap(err, "compile %v", input)
	}

	if err := os.WriteFile(output, obj, 0o644); err != nil {
		return &compiler.EmitIOError{Path: output, Err: err}
	}

	tlog.V("klang").Printw("wrote output", "input", input, "output", output, "size", len(obj))

	return nil
}
