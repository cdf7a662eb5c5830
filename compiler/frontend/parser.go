// Package frontend is a minimal recursive-descent lexer/parser for the
// source surface: functions, var declarations, if/while, arrays,
// calls, and the four types. It exists to give the CLI and the
// end-to-end tests a real front door onto compiler/irgen and the back
// end; front-end design is not this repository's engineering core.
//
// This parser is a conventional single recursive-descent Parser struct
// over a byte position, rather than a generic combinator framework —
// a full binary-operator set, control flow, and function syntax don't
// benefit from combinator indirection the way a single-operator toy
// grammar might.
package frontend

import (
	"context"
	stderrors "errors"
	"fmt"

	"tlog.app/go/errors"

	"github.com/marche147/klang/compiler/ast"
	"github.com/marche147/klang/compiler/tp"
)

// ParseError reports a front-end syntax or type error together with its
// source line; further compilation aborts on the first one.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// SemanticError reports a front-end check that is not a syntax error:
// wrong arity, unknown identifier, nested loops, a missing/malformed
// main.
type SemanticError struct {
	Line int
	Err  error
}

func (e *SemanticError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *SemanticError) Unwrap() error { return e.Err }

// runtimeABI is the fixed external-function list, auto-registered so
// calls to them typecheck without a user-written extern declaration.
var runtimeABI = []ast.Prototype{
	{Name: "printi", Params: []tp.Type{tp.Int}, Return: tp.Void},
	{Name: "prints", Params: []tp.Type{tp.String}, Return: tp.Void},
	{Name: "inputi", Return: tp.Int},
	{Name: "inputs", Return: tp.String},
	{Name: "random", Return: tp.Int},
	{Name: "array_new", Params: []tp.Type{tp.Int}, Return: tp.Array},
	{Name: "array_load", Params: []tp.Type{tp.Array, tp.Int}, Return: tp.Int},
	{Name: "array_store", Params: []tp.Type{tp.Array, tp.Int, tp.Int}, Return: tp.Void},
}

const (
	maxParams = 3
	maxLocals = 10
)

// header is one function's signature plus the byte range of its `{...}`
// body, produced by the first pass and consumed by the second.
type header struct {
	fn              *ast.Function
	bodyStart, body int
}

// Parser holds the full source and a scan position; this front end only
// ever parses one file at a time, so there is no multi-file source state
// to track.
type Parser struct {
	src  []byte
	pos  int
	name string

	protos map[string]ast.Prototype

	params map[string]tp.Type
	locals map[string]tp.Type
	loop   bool // inside a while already — nested loops are rejected
}

// Parse parses text (named name, for error messages) into an ast.Module.
// Two passes: a first pass collects every function's prototype (so
// forward and mutually recursive calls typecheck), a second parses
// bodies against the complete prototype table.
func Parse(ctx context.Context, name string, text []byte) (*ast.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := &Parser{src: text, name: name, protos: map[string]ast.Prototype{}}

	for _, proto := range runtimeABI {
		p.protos[proto.Name] = proto
	}

	var headers []header
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			break
		}

		h, err := p.parseHeader()
		if err != nil {
			return nil, p.wrap(err)
		}
		headers = append(headers, h)

		if _, dup := p.protos[h.fn.Name]; dup {
			return nil, p.semErr(h.bodyStart, errors.New("function %q redeclared", h.fn.Name))
		}
		p.protos[h.fn.Name] = prototypeOf(h.fn)
	}

	mod := &ast.Module{Externs: append([]ast.Prototype{}, runtimeABI...)}

	var sawMain bool
	for _, h := range headers {
		if err := p.parseBody(&h); err != nil {
			return nil, p.wrap(err)
		}
		mod.Functions = append(mod.Functions, h.fn)

		if h.fn.Name == "main" {
			sawMain = true
			if len(h.fn.Params) != 0 || h.fn.Return != tp.Int {
				return nil, p.semErr(h.fn.Pos, errors.New("main must take no parameters and return int"))
			}
		}
	}

	if !sawMain {
		return nil, p.semErr(0, errors.New("module has no main function"))
	}

	return mod, nil
}

func prototypeOf(fn *ast.Function) ast.Prototype {
	params := make([]tp.Type, len(fn.Params))
	for i, pr := range fn.Params {
		params[i] = pr.Type
	}
	return ast.Prototype{Name: fn.Name, Params: params, Return: fn.Return}
}

// parseHeader parses `function <name>(<params>) -> <type> {` and then
// scans forward (brace-balanced, string-aware) to find the matching `}`,
// without parsing the body's statements yet.
func (p *Parser) parseHeader() (header, error) {
	pos := p.pos

	if !p.matchConst("function") {
		return header{}, errors.New("expected 'function'")
	}
	p.skipSpace()

	name, ok := p.scanIdent()
	if !ok {
		return header{}, errors.New("expected function name")
	}

	p.skipSpace()
	if !p.matchConst("(") {
		return header{}, errors.New("expected '(' after function name")
	}

	var params []ast.Param
	for {
		p.skipSpace()
		if p.matchConst(")") {
			break
		}
		if len(params) > 0 {
			if !p.matchConst(",") {
				return header{}, errors.New("expected ',' or ')' in parameter list")
			}
			p.skipSpace()
		}

		pname, ok := p.scanIdent()
		if !ok {
			return header{}, errors.New("expected parameter name")
		}
		p.skipSpace()
		if !p.matchConst(":") {
			return header{}, errors.New("expected ':' after parameter name")
		}
		p.skipSpace()
		ptyp, err := p.parseTypeName()
		if err != nil {
			return header{}, err
		}
		params = append(params, ast.Param{Name: pname, Type: ptyp})
	}
	if len(params) > maxParams {
		return header{}, errors.New("function %q has %d parameters, max %d", name, len(params), maxParams)
	}

	p.skipSpace()
	if !p.matchConst("->") {
		return header{}, errors.New("expected '->' before return type")
	}
	p.skipSpace()
	ret, err := p.parseTypeName()
	if err != nil {
		return header{}, err
	}

	p.skipSpace()
	if !p.matchConst("{") {
		return header{}, errors.New("expected '{' to start function body")
	}
	bodyStart := p.pos

	end, err := p.skipBalanced()
	if err != nil {
		return header{}, err
	}

	fn := &ast.Function{
		Base:   ast.Base{Pos: pos, End: end},
		Name:   name,
		Params: params,
		Return: ret,
	}

	return header{fn: fn, bodyStart: bodyStart, body: end - 1}, nil
}

// skipBalanced assumes p.pos is just past the opening '{' and advances
// past the matching '}', respecting nested braces and string literals.
// It returns the position just past the closing '}'.
func (p *Parser) skipBalanced() (int, error) {
	depth := 1
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '"':
			if _, ok := p.scanString(); !ok {
				return 0, errors.New("unterminated string literal")
			}
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
			p.pos++
			if depth == 0 {
				return p.pos, nil
			}
			continue
		}
		p.pos++
	}
	return 0, errors.New("unterminated function body")
}

func (p *Parser) parseTypeName() (tp.Type, error) {
	name, ok := p.scanIdent()
	if !ok {
		return nil, errors.New("expected a type name")
	}
	t, ok := tp.Named(name)
	if !ok {
		return nil, errors.New("unknown type %q", name)
	}
	return t, nil
}

// parseBody parses h's statement list (the source between bodyStart and
// body) into h.fn.Body, against p.protos for call typechecking.
func (p *Parser) parseBody(h *header) error {
	sub := &Parser{
		src:    p.src[:h.body],
		pos:    h.bodyStart,
		name:   p.name,
		protos: p.protos,
		params: map[string]tp.Type{},
		locals: map[string]tp.Type{},
	}
	for _, pr := range h.fn.Params {
		sub.params[pr.Name] = pr.Type
	}

	stmts, locals, err := sub.parseStmts(h.body)
	if err != nil {
		return sub.wrap(err)
	}
	if len(locals) > maxLocals {
		return sub.semErr(h.fn.Pos, errors.New("function %q has %d locals, max %d", h.fn.Name, len(locals), maxLocals))
	}

	h.fn.Body = stmts
	h.fn.Locals = locals
	return nil
}

func (p *Parser) wrap(err error) error {
	var pe *ParseError
	var se *SemanticError
	if stderrors.As(err, &pe) || stderrors.As(err, &se) {
		return err
	}

	line := 1
	for _, c := range p.src[:p.pos] {
		if c == '\n' {
			line++
		}
	}
	return &ParseError{Line: line, Err: err}
}

func (p *Parser) semErr(pos int, err error) error {
	line := 1
	bound := pos
	if bound > len(p.src) {
		bound = len(p.src)
	}
	for _, c := range p.src[:bound] {
		if c == '\n' {
			line++
		}
	}
	return &SemanticError{Line: line, Err: err}
}
