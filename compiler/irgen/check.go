// Package irgen translates an ASTModule into TAC-IR. It is split into a
// standalone Check pass and a Generate pass that assumes Check has
// already passed: Check re-derives every expression's type bottom-up and
// rejects mismatches (binary operands, call arguments, assignment,
// return, array indexing, loop/if condition types, void-typed locals, a
// function missing its final return, a return statement that is not the
// block's last statement).
package irgen

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/marche147/klang/compiler/ast"
	"github.com/marche147/klang/compiler/tp"
)

// TypeError reports a type or structural error found while checking one
// function, named by function rather than by source line: by this stage
// the source text is no longer available to compute one.
type TypeError struct {
	Func string
	Err  error
}

func (e *TypeError) Error() string { return fmt.Sprintf("function %q: %v", e.Func, e.Err) }
func (e *TypeError) Unwrap() error { return e.Err }

type typeCtx struct {
	protos map[string]ast.Prototype
	fn     *ast.Function
	vars   map[string]tp.Type
}

// Check re-typechecks mod. compiler/frontend already rejects most of
// what this duplicates (arity, undeclared names, nested loops); Check
// exists so compiler/irgen does not have to trust a caller it did not
// build itself, mirroring IRGen::Verify's independence from the parser.
func Check(mod *ast.Module) error {
	protos := prototypeTable(mod)

	for _, fn := range mod.Functions {
		if err := checkFunction(protos, fn); err != nil {
			return &TypeError{Func: fn.Name, Err: err}
		}
	}
	return nil
}

func prototypeTable(mod *ast.Module) map[string]ast.Prototype {
	protos := make(map[string]ast.Prototype, len(mod.Externs)+len(mod.Functions))
	for _, e := range mod.Externs {
		protos[e.Name] = e
	}
	for _, fn := range mod.Functions {
		params := make([]tp.Type, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type
		}
		protos[fn.Name] = ast.Prototype{Name: fn.Name, Params: params, Return: fn.Return}
	}
	return protos
}

func checkFunction(protos map[string]ast.Prototype, fn *ast.Function) error {
	for _, l := range fn.Locals {
		if l.Type == tp.Void {
			return errors.New("variable %q has void type", l.Name)
		}
	}
	if len(fn.Params) > 3 {
		return errors.New("too many parameters")
	}
	if len(fn.Locals) > 10 {
		return errors.New("too many variables")
	}
	if len(fn.Body) == 0 {
		return errors.New("missing return statement")
	}
	if _, ok := fn.Body[len(fn.Body)-1].(*ast.Return); !ok {
		return errors.New("missing return statement")
	}

	vars := make(map[string]tp.Type, len(fn.Params)+len(fn.Locals))
	for _, p := range fn.Params {
		vars[p.Name] = p.Type
	}
	for _, l := range fn.Locals {
		vars[l.Name] = l.Type
	}

	c := &typeCtx{protos: protos, fn: fn, vars: vars}
	return checkBlock(c, fn.Body)
}

// checkBlock typechecks every statement in stmts, then separately
// enforces that if stmts contains a Return at all, it is the last
// statement — the same rule applies to every nested block, not only a
// function's top-level body.
func checkBlock(c *typeCtx, stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := checkStmt(c, s); err != nil {
			return err
		}
	}
	for i, s := range stmts {
		if _, ok := s.(*ast.Return); ok && i != len(stmts)-1 {
			return errors.New("return statement is not the last statement in its block")
		}
	}
	return nil
}

func checkStmt(c *typeCtx, s ast.Stmt) error {
	switch x := s.(type) {
	case *ast.VarDecl:
		return nil

	case *ast.Assign:
		if id, ok := x.Target.(*ast.Ident); ok && isParam(c.fn, id.Name) {
			return errors.New("cannot assign to parameter %q", id.Name)
		}
		lt, err := exprType(c, x.Target)
		if err != nil {
			return err
		}
		rt, err := exprType(c, x.Value)
		if err != nil {
			return err
		}
		if lt != rt {
			return errors.New("type mismatch in assignment statement")
		}
		return nil

	case *ast.If:
		ct, err := exprType(c, x.Cond)
		if err != nil {
			return err
		}
		if ct != tp.Int {
			return errors.New("invalid condition type in if statement")
		}
		if err := checkBlock(c, x.Then); err != nil {
			return err
		}
		if x.Else != nil {
			return checkBlock(c, x.Else)
		}
		return nil

	case *ast.While:
		ct, err := exprType(c, x.Cond)
		if err != nil {
			return err
		}
		if ct != tp.Int {
			return errors.New("invalid condition type in while statement")
		}
		return checkBlock(c, x.Body)

	case *ast.Return:
		if x.Value == nil {
			if c.fn.Return != tp.Void {
				return errors.New("return statement must have a value")
			}
			return nil
		}
		rt, err := exprType(c, x.Value)
		if err != nil {
			return err
		}
		if rt != c.fn.Return {
			return errors.New("type mismatch in return statement")
		}
		return nil

	case *ast.ExprStmt:
		_, err := exprType(c, x.X)
		return err

	default:
		return errors.New("unhandled statement node %T", s)
	}
}

func exprType(c *typeCtx, e ast.Expr) (tp.Type, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return tp.Int, nil

	case *ast.StringLit:
		return tp.String, nil

	case *ast.Ident:
		t, ok := c.vars[x.Name]
		if !ok {
			return nil, errors.New("undeclared identifier %q", x.Name)
		}
		return t, nil

	case *ast.Binary:
		lt, err := exprType(c, x.Left)
		if err != nil {
			return nil, err
		}
		rt, err := exprType(c, x.Right)
		if err != nil {
			return nil, err
		}
		if lt != rt {
			return nil, errors.New("type mismatch in binary expression")
		}
		if lt != tp.Int {
			return nil, errors.New("invalid type %v in binary expression", lt)
		}
		return lt, nil

	case *ast.Call:
		proto, ok := c.protos[x.Callee]
		if !ok {
			return nil, errors.New("call to undefined function %q", x.Callee)
		}
		if len(proto.Params) != len(x.Args) {
			return nil, errors.New("call to %q passes %d arguments, expected %d", x.Callee, len(x.Args), len(proto.Params))
		}
		for i, arg := range x.Args {
			at, err := exprType(c, arg)
			if err != nil {
				return nil, err
			}
			if at != proto.Params[i] {
				return nil, errors.New("type mismatch in call to %q, argument %d", x.Callee, i)
			}
		}
		return proto.Return, nil

	case *ast.Index:
		arrIdent, ok := x.Array.(*ast.Ident)
		if !ok {
			return nil, errors.New("array access target must be a variable")
		}
		at, ok := c.vars[arrIdent.Name]
		if !ok {
			return nil, errors.New("undeclared identifier %q", arrIdent.Name)
		}
		if !tp.Indexable(at) {
			return nil, errors.New("variable %q is not an array", arrIdent.Name)
		}
		it, err := exprType(c, x.Idx)
		if err != nil {
			return nil, err
		}
		if it != tp.Int {
			return nil, errors.New("array index must be int")
		}
		return tp.Int, nil

	default:
		return nil, errors.New("unhandled expression node %T", e)
	}
}

func isParam(fn *ast.Function, name string) bool {
	for _, p := range fn.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}
