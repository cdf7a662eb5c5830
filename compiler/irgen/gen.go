package irgen

import (
	"context"

	"github.com/marche147/klang/compiler/ast"
	"github.com/marche147/klang/compiler/ir"
	"github.com/marche147/klang/compiler/tp"
)

// Generate translates mod into TAC-IR, function by function, block by
// block, statement by statement. It runs Check first and returns its
// error unchanged if mod does not typecheck. ctx is checked once up
// front, matching compiler/frontend.Parse's idiom.
func Generate(ctx context.Context, mod *ast.Module) (*ir.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := Check(mod); err != nil {
		return nil, err
	}

	out := ir.NewModule()
	for _, e := range mod.Externs {
		out.Externs = append(out.Externs, e.Name)
	}
	for _, fn := range mod.Functions {
		f := out.NewFunction(fn.Name, len(fn.Params))
		generateFunction(f, fn)
	}
	return out, nil
}

// funcCtx tracks one function's translation state: the name-to-operand
// table and the block statement generation is currently appending to
// (the builder's "insertion point").
type funcCtx struct {
	f    *ir.Function
	vars map[string]ir.Operand
	cur  *ir.BasicBlock
}

func (c *funcCtx) emit(in *ir.Instruction) *ir.Instruction {
	return c.cur.Append(in)
}

// generateFunction mirrors GenerateFunction: allocate every local's
// register up front (InitVariables), translate the body, append an
// implicit ret for a void function missing one, then prepend a
// zero-initializer for every local before the body's first instruction.
func generateFunction(f *ir.Function, fn *ast.Function) {
	c := &funcCtx{f: f, vars: map[string]ir.Operand{}}

	for i, p := range fn.Params {
		c.vars[p.Name] = ir.Parameter(i)
	}

	localRegs := make([]ir.Register, len(fn.Locals))
	for i, l := range fn.Locals {
		r := f.NewRegister()
		localRegs[i] = r
		c.vars[l.Name] = r
	}

	c.generateBlock(fn.Body)

	if !blockEndsWithReturn(fn.Body) && fn.Return == tp.Void {
		c.emit(ir.NewRetVoid())
	}

	entry := f.Entry()
	head := entry.First()
	for i := range fn.Locals {
		init := ir.NewAssign(localRegs[i], ir.Immediate(0))
		if head != nil {
			entry.InsertBefore(head, init)
		} else {
			entry.Append(init)
		}
	}
}

func blockEndsWithReturn(stmts []ast.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	_, ok := stmts[len(stmts)-1].(*ast.Return)
	return ok
}

// generateBlock creates a fresh block, makes it current, and translates
// stmts into it (and whatever further blocks its own control flow needs).
// It returns the block it created — the entry of the translated list, not
// necessarily where c.cur ends up once it returns.
func (c *funcCtx) generateBlock(stmts []ast.Stmt) *ir.BasicBlock {
	b := c.f.NewBlock()
	c.cur = b
	for _, s := range stmts {
		c.generateStmt(s)
	}
	return b
}

func (c *funcCtx) generateStmt(s ast.Stmt) {
	switch x := s.(type) {
	case *ast.VarDecl:
		// locals are pre-allocated and zero-initialized at function
		// entry; nothing to emit here.

	case *ast.Assign:
		val := c.generateExpr(x.Value, false)
		switch t := x.Target.(type) {
		case *ast.Ident:
			c.emit(ir.NewAssign(c.vars[t.Name].(ir.Register), val))
		case *ast.Index:
			arr := c.vars[t.Array.(*ast.Ident).Name]
			idx := c.generateExpr(t.Idx, false)
			c.emit(ir.NewArrayStore(arr, idx, val))
		}

	case *ast.If:
		c.generateIf(x)

	case *ast.While:
		c.generateWhile(x)

	case *ast.Return:
		if x.Value == nil {
			c.emit(ir.NewRetVoid())
		} else {
			v := c.generateExpr(x.Value, false)
			c.emit(ir.NewRet(v))
		}

	case *ast.ExprStmt:
		c.generateExpr(x.X, true)
	}
}

// generateIf evaluates the condition into the block the if-statement
// itself lives in, before either branch is generated; a plain if without
// an else falls straight through to the join block on its false edge,
// while an if/else gets a real else block that itself falls through to
// the join.
func (c *funcCtx) generateIf(x *ast.If) {
	next := c.f.NewBlock()
	cond := c.generateExpr(x.Cond, false)
	current := c.cur

	then := c.generateBlock(x.Then)
	if !blockEndsWithReturn(x.Then) {
		c.emit(ir.NewJmp(next))
	}

	elseB := next
	if x.Else != nil {
		elseB = c.generateBlock(x.Else)
		if !blockEndsWithReturn(x.Else) {
			c.emit(ir.NewJmp(next))
		}
	}

	current.Append(ir.NewJnz(cond, then, elseB))
	c.cur = next
}

// generateWhile generates the body first, with its own condition test
// and Jnz appended at its tail, and only then does the block preceding
// the loop get an unconditional jump into it. This is loop rotation: the
// conceptual header is actually the body's own tail.
func (c *funcCtx) generateWhile(x *ast.While) {
	current := c.cur
	next := c.f.NewBlock()

	loop := c.generateBlock(x.Body)
	cond := c.generateExpr(x.Cond, false)
	c.emit(ir.NewJnz(cond, loop, next))

	current.Append(ir.NewJmp(loop))
	c.cur = next
}

// generateExpr translates one expression into zero or more instructions
// appended to c.cur and returns the operand holding its value. callVoid
// selects CallVoid over Call for a bare call expression statement.
func (c *funcCtx) generateExpr(e ast.Expr, callVoid bool) ir.Operand {
	switch x := e.(type) {
	case *ast.IntLit:
		return ir.Immediate(x.Value)

	case *ast.StringLit:
		dst := c.f.NewRegister()
		c.emit(ir.NewLoadLabel(dst, x.Value))
		return dst

	case *ast.Ident:
		return c.vars[x.Name]

	case *ast.Index:
		arr := c.vars[x.Array.(*ast.Ident).Name]
		idx := c.generateExpr(x.Idx, false)
		dst := c.f.NewRegister()
		c.emit(ir.NewArrayLoad(dst, arr, idx))
		return dst

	case *ast.Call:
		return c.generateCall(x, callVoid)

	case *ast.Binary:
		lhs := c.generateExpr(x.Left, false)
		rhs := c.generateExpr(x.Right, false)
		dst := c.f.NewRegister()
		c.emit(ir.NewBinary(ir.BinOp(x.Op), dst, lhs, rhs))
		return dst
	}

	return nil
}

// generateCall special-cases the three array builtins into their
// dedicated first-class opcodes (so the optimizer and compiler/lower see
// one canonical representation regardless of whether index sugar or an
// explicit call produced it) and falls back to a generic Call/CallVoid
// otherwise.
func (c *funcCtx) generateCall(x *ast.Call, callVoid bool) ir.Operand {
	switch x.Callee {
	case "array_new":
		dst := c.f.NewRegister()
		size := c.generateExpr(x.Args[0], false)
		c.emit(ir.NewArrayNew(dst, size))
		return dst

	case "array_load":
		arr := c.generateExpr(x.Args[0], false)
		idx := c.generateExpr(x.Args[1], false)
		dst := c.f.NewRegister()
		c.emit(ir.NewArrayLoad(dst, arr, idx))
		return dst

	case "array_store":
		arr := c.generateExpr(x.Args[0], false)
		idx := c.generateExpr(x.Args[1], false)
		val := c.generateExpr(x.Args[2], false)
		c.emit(ir.NewArrayStore(arr, idx, val))
		return nil
	}

	args := make([]ir.Operand, len(x.Args))
	for i, a := range x.Args {
		args[i] = c.generateExpr(a, false)
	}
	if callVoid {
		c.emit(ir.NewCallVoid(x.Callee, args...))
		return nil
	}
	dst := c.f.NewRegister()
	c.emit(ir.NewCall(dst, x.Callee, args...))
	return dst
}
