package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marche147/klang/compiler/ast"
	"github.com/marche147/klang/compiler/tp"
)

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := Parse(context.Background(), "test.src", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, mod)
	return mod
}

func TestParseArithmeticFunctionMatchesS1(t *testing.T) {
	mod := mustParse(t, `function main() -> int { return 1 + 2 * 3; }`)

	require.Len(t, mod.Functions, 1)
	main := mod.Functions[0]
	require.Equal(t, "main", main.Name)
	require.Equal(t, tp.Int, main.Return)
	require.Len(t, main.Body, 1)

	ret, ok := main.Body[0].(*ast.Return)
	require.True(t, ok)

	bin, ok := ret.Value.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.Add, bin.Op)

	rhs, ok := bin.Right.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.Mul, rhs.Op)
}

func TestParseLoopFunctionMatchesS2(t *testing.T) {
	mod := mustParse(t, `
		function main() -> int {
			var i:int, s:int;
			i = 0;
			s = 0;
			while (i < 10) {
				s = s + i;
				i = i + 1;
			}
			return s;
		}
	`)

	main := mod.Functions[0]
	require.Len(t, main.Locals, 2)
	require.Equal(t, "i", main.Locals[0].Name)
	require.Equal(t, "s", main.Locals[1].Name)

	var loop *ast.While
	for _, s := range main.Body {
		if w, ok := s.(*ast.While); ok {
			loop = w
		}
	}
	require.NotNil(t, loop)
	require.Len(t, loop.Body, 2)
}

func TestParseRecursiveFunctionMatchesS3(t *testing.T) {
	mod := mustParse(t, `
		function fib(n:int) -> int {
			if (n < 2) {
				return n;
			}
			return fib(n - 1) + fib(n - 2);
		}
		function main() -> int {
			return fib(10);
		}
	`)

	require.Len(t, mod.Functions, 2)
	fib := mod.Functions[0]
	require.Equal(t, "fib", fib.Name)
	require.Len(t, fib.Params, 1)

	ifStmt, ok := fib.Body[0].(*ast.If)
	require.True(t, ok)
	require.Nil(t, ifStmt.Else)
}

func TestParseArrayFunctionMatchesS5(t *testing.T) {
	mod := mustParse(t, `
		function main() -> int {
			var a:array;
			a = array_new(5);
			a[0] = 10;
			a[1] = 20;
			return a[0] + a[1];
		}
	`)

	main := mod.Functions[0]
	require.Equal(t, tp.Array, main.Locals[0].Type)

	assign, ok := main.Body[2].(*ast.Assign)
	require.True(t, ok)
	idx, ok := assign.Target.(*ast.Index)
	require.True(t, ok)
	lit, ok := idx.Idx.(*ast.IntLit)
	require.True(t, ok)
	require.EqualValues(t, 0, lit.Value)
}

func TestParseRejectsNestedWhileLoops(t *testing.T) {
	_, err := Parse(context.Background(), "test.src", []byte(`
		function main() -> int {
			var i:int;
			i = 0;
			while (i < 10) {
				while (i < 5) {
					i = i + 1;
				}
			}
			return i;
		}
	`))
	require.Error(t, err)
	var semErr *SemanticError
	require.ErrorAs(t, err, &semErr)
}

func TestParseRejectsModuleWithoutMain(t *testing.T) {
	_, err := Parse(context.Background(), "test.src", []byte(`
		function helper() -> int { return 1; }
	`))
	require.Error(t, err)
	var semErr *SemanticError
	require.ErrorAs(t, err, &semErr)
}

func TestParseRejectsTooManyParameters(t *testing.T) {
	_, err := Parse(context.Background(), "test.src", []byte(`
		function f(a:int, b:int, c:int, d:int) -> int { return a; }
		function main() -> int { return 0; }
	`))
	require.Error(t, err)
}

func TestParseRejectsTooManyLocals(t *testing.T) {
	_, err := Parse(context.Background(), "test.src", []byte(`
		function main() -> int {
			var a:int, b:int, c:int, d:int, e:int, f:int, g:int, h:int, i:int, j:int, k:int;
			return a;
		}
	`))
	require.Error(t, err)
}

func TestParseReportsLineNumberOnSyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), "test.src", []byte("function main() -> int {\n\treturn 1\n}"))
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, 3, parseErr.Line)
}

func TestParseRejectsCallToUndeclaredFunction(t *testing.T) {
	_, err := Parse(context.Background(), "test.src", []byte(`
		function main() -> int { return nosuch(1); }
	`))
	require.Error(t, err)
}

func TestParseRejectsAssignmentArityMismatchCall(t *testing.T) {
	_, err := Parse(context.Background(), "test.src", []byte(`
		function f(a:int) -> int { return a; }
		function main() -> int { return f(1, 2); }
	`))
	require.Error(t, err)
}

func TestParseResolvesForwardReferenceToLaterFunction(t *testing.T) {
	mod := mustParse(t, `
		function main() -> int { return later(); }
		function later() -> int { return 42; }
	`)
	require.Len(t, mod.Functions, 2)
}

func TestParseCSEShapeMatchesS6(t *testing.T) {
	mod := mustParse(t, `
		function sum2(a:int, b:int) -> int {
			var x:int, y:int;
			x = a + b;
			y = a + b;
			return x + y;
		}
		function main() -> int { return sum2(1, 2); }
	`)

	fn := mod.Functions[0]
	first, ok := fn.Body[1].(*ast.Assign)
	require.True(t, ok)
	second, ok := fn.Body[2].(*ast.Assign)
	require.True(t, ok)

	require.IsType(t, &ast.Binary{}, first.Value)
	require.IsType(t, &ast.Binary{}, second.Value)
}
