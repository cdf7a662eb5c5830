package frontend

import (
	"tlog.app/go/errors"

	"github.com/marche147/klang/compiler/ast"
	"github.com/marche147/klang/compiler/tp"
)

// parseStmts parses statements up to end (the position of the function
// body's closing '}'), returning them in order along with the ordered
// local-variable list declared by any `var` statements encountered.
func (p *Parser) parseStmts(end int) ([]ast.Stmt, []ast.Local, error) {
	var stmts []ast.Stmt
	var locals []ast.Local

	for {
		p.skipSpace()
		if p.pos >= end {
			break
		}

		stmt, decl, err := p.parseStmt()
		if err != nil {
			return nil, nil, err
		}
		locals = append(locals, decl...)
		stmts = append(stmts, stmt)
	}
	return stmts, locals, nil
}

// parseBlock parses a brace-delimited statement list: `{ <stmts> }`.
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	p.skipSpace()
	if !p.matchConst("{") {
		return nil, errors.New("expected '{'")
	}

	var stmts []ast.Stmt
	for {
		p.skipSpace()
		if p.matchConst("}") {
			break
		}
		if p.pos >= len(p.src) {
			return nil, errors.New("unterminated block")
		}

		stmt, decl, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		_ = decl // already folded into p.locals by parseVarDecl
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// parseStmt parses one statement. decl holds the locals introduced when
// the statement is a `var` declaration (possibly more than one name),
// nil otherwise.
func (p *Parser) parseStmt() (ast.Stmt, []ast.Local, error) {
	pos := p.pos

	switch p.peekIdent() {
	case "var":
		return p.parseVarDecl(pos)
	case "if":
		s, err := p.parseIf(pos)
		return s, nil, err
	case "while":
		s, err := p.parseWhile(pos)
		return s, nil, err
	case "return":
		s, err := p.parseReturn(pos)
		return s, nil, err
	}

	s, err := p.parseSimpleStmt(pos)
	return s, nil, err
}

// parseVarDecl parses `var a:int, b:int;`, typing each declared name
// into p.locals as it is scanned and returning the full set so the
// caller can fold it into the enclosing function's local list.
func (p *Parser) parseVarDecl(pos int) (ast.Stmt, []ast.Local, error) {
	p.matchConst("var")
	p.skipSpace()

	decl := &ast.VarDecl{Base: ast.Base{Pos: pos}}
	var added []ast.Local

	for {
		name, ok := p.scanIdent()
		if !ok {
			return nil, nil, errors.New("expected variable name")
		}
		p.skipSpace()
		if !p.matchConst(":") {
			return nil, nil, errors.New("expected ':' after variable name")
		}
		p.skipSpace()
		typ, err := p.parseTypeName()
		if err != nil {
			return nil, nil, err
		}

		if _, dup := p.locals[name]; dup {
			return nil, nil, errors.New("local %q redeclared", name)
		}
		if _, dup := p.params[name]; dup {
			return nil, nil, errors.New("local %q shadows a parameter", name)
		}

		p.locals[name] = typ
		decl.Names = append(decl.Names, name)
		decl.Type = typ
		added = append(added, ast.Local{Name: name, Type: typ})

		p.skipSpace()
		if p.matchConst(",") {
			p.skipSpace()
			continue
		}
		break
	}

	p.skipSpace()
	if !p.matchConst(";") {
		return nil, nil, errors.New("expected ';' after variable declaration")
	}
	decl.End = p.pos

	return decl, added, nil
}

func (p *Parser) parseIf(pos int) (ast.Stmt, error) {
	p.matchConst("if")
	p.skipSpace()
	if !p.matchConst("(") {
		return nil, errors.New("expected '(' after 'if'")
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.matchConst(")") {
		return nil, errors.New("expected ')' after if-condition")
	}

	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var els []ast.Stmt
	save := p.pos
	p.skipSpace()
	if p.peekIdent() == "else" {
		p.matchConst("else")
		els, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	} else {
		p.pos = save
	}

	return &ast.If{Base: ast.Base{Pos: pos, End: p.pos}, Cond: cond, Then: then, Else: els}, nil
}

// parseWhile parses `while (<expr>) { <stmts> }` and rejects a while
// nested inside another while.
func (p *Parser) parseWhile(pos int) (ast.Stmt, error) {
	if p.loop {
		return nil, p.semErr(pos, errors.New("nested while loops are not allowed"))
	}

	p.matchConst("while")
	p.skipSpace()
	if !p.matchConst("(") {
		return nil, errors.New("expected '(' after 'while'")
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.matchConst(")") {
		return nil, errors.New("expected ')' after while-condition")
	}

	p.loop = true
	body, err := p.parseBlock()
	p.loop = false
	if err != nil {
		return nil, err
	}

	return &ast.While{Base: ast.Base{Pos: pos, End: p.pos}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturn(pos int) (ast.Stmt, error) {
	p.matchConst("return")
	p.skipSpace()

	if p.matchConst(";") {
		return &ast.Return{Base: ast.Base{Pos: pos, End: p.pos}}, nil
	}

	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.matchConst(";") {
		return nil, errors.New("expected ';' after return value")
	}
	return &ast.Return{Base: ast.Base{Pos: pos, End: p.pos}, Value: val}, nil
}

// parseSimpleStmt parses an assignment or a bare expression statement;
// the two share a prefix (an expression) so the distinction is made by
// what follows it.
func (p *Parser) parseSimpleStmt(pos int) (ast.Stmt, error) {
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.matchConst("=") {
		switch x.(type) {
		case *ast.Ident, *ast.Index:
		default:
			return nil, errors.New("left side of assignment must be a variable or an index expression")
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.matchConst(";") {
			return nil, errors.New("expected ';' after assignment")
		}
		return &ast.Assign{Base: ast.Base{Pos: pos, End: p.pos}, Target: x, Value: val}, nil
	}

	if !p.matchConst(";") {
		return nil, errors.New("expected ';' after expression statement")
	}
	return &ast.ExprStmt{Base: ast.Base{Pos: pos, End: p.pos}, X: x}, nil
}

// typeOfIdent resolves an identifier against locals then parameters,
// used by expr.go when it needs an identifier's type (array indexing,
// call-argument checks are left to compiler/irgen, but index legality
// is cheap enough to catch here).
func (p *Parser) typeOfIdent(name string) (tp.Type, bool) {
	if t, ok := p.locals[name]; ok {
		return t, true
	}
	if t, ok := p.params[name]; ok {
		return t, true
	}
	return nil, false
}
