package frontend

import (
	"tlog.app/go/errors"

	"github.com/marche147/klang/compiler/ast"
)

// opLevels holds each binary operator's surface spelling, grouped by
// precedence level from lowest to highest; longer spellings that share
// a prefix with a shorter one (==, <=, >=, !=, <<, >>) are tried first
// within their level so the scanner never mistakes "==" for "=".
var opLevels = [][]struct {
	tok string
	op  ast.BinOp
}{
	{{"|", ast.Or}},
	{{"^", ast.Xor}},
	{{"&", ast.And}},
	{{"==", ast.Eq}, {"!=", ast.Ne}},
	{{"<=", ast.Le}, {">=", ast.Ge}, {"<", ast.Lt}, {">", ast.Gt}},
	{{"<<", ast.Shl}, {">>", ast.Shr}},
	{{"+", ast.Add}, {"-", ast.Sub}},
	{{"*", ast.Mul}, {"/", ast.Div}, {"%", ast.Mod}},
}

// parseExpr parses a full expression via precedence climbing over
// opLevels, bottoming out at parseUnary.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseLevel(0)
}

func (p *Parser) parseLevel(level int) (ast.Expr, error) {
	p.skipSpace()
	pos := p.pos

	if level >= len(opLevels) {
		return p.parseUnary()
	}

	lhs, err := p.parseLevel(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		p.skipSpace()
		op, ok := p.matchOpAt(level)
		if !ok {
			return lhs, nil
		}
		rhs, err := p.parseLevel(level + 1)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binary{Base: ast.Base{Pos: pos, End: p.pos}, Op: op, Left: lhs, Right: rhs}
	}
}

func (p *Parser) matchOpAt(level int) (ast.BinOp, bool) {
	save := p.pos
	for _, spec := range opLevels[level] {
		if p.matchConst(spec.tok) {
			// opLevels lists longer spellings first within a level. "<"
			// and ">" are prefixes of "<<" and ">>" one level up, but
			// parseLevel reaches the shift level first, so a shift
			// operator is consumed there before this level looks.
			return spec.op, true
		}
	}
	p.pos = save
	return 0, false
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	p.skipSpace()
	pos := p.pos
	if p.matchConst("-") {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		zero := &ast.IntLit{Base: ast.Base{Pos: pos}, Value: 0}
		return &ast.Binary{Base: ast.Base{Pos: pos}, Op: ast.Sub, Left: zero, Right: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	p.skipSpace()
	pos := p.pos

	if p.matchConst("(") {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.matchConst(")") {
			return nil, errors.New("expected ')'")
		}
		return x, nil
	}

	if s, ok := p.scanString(); ok {
		return &ast.StringLit{Base: ast.Base{Pos: pos, End: p.pos}, Value: s}, nil
	}

	if n, ok := p.scanInt(); ok {
		return &ast.IntLit{Base: ast.Base{Pos: pos, End: p.pos}, Value: n}, nil
	}

	name, ok := p.scanIdent()
	if !ok {
		return nil, errors.New("expected an expression")
	}

	p.skipSpace()
	if p.matchConst("(") {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if proto, ok := p.protos[name]; ok && len(proto.Params) != len(args) {
			return nil, p.semErr(pos, errors.New("call to %q passes %d arguments, expected %d", name, len(args), len(proto.Params)))
		} else if !ok {
			return nil, p.semErr(pos, errors.New("call to undeclared function %q", name))
		}
		return &ast.Call{Base: ast.Base{Pos: pos, End: p.pos}, Callee: name, Args: args}, nil
	}

	if p.matchConst("[") {
		if _, known := p.typeOfIdent(name); !known {
			return nil, p.semErr(pos, errors.New("undeclared identifier %q", name))
		}
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.matchConst("]") {
			return nil, errors.New("expected ']'")
		}
		arr := &ast.Ident{Base: ast.Base{Pos: pos}, Name: name}
		return &ast.Index{Base: ast.Base{Pos: pos, End: p.pos}, Array: arr, Idx: idx}, nil
	}

	if _, known := p.typeOfIdent(name); !known {
		return nil, p.semErr(pos, errors.New("undeclared identifier %q", name))
	}
	return &ast.Ident{Base: ast.Base{Pos: pos, End: p.pos}, Name: name}, nil
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	for {
		p.skipSpace()
		if p.matchConst(")") {
			return args, nil
		}
		if len(args) > 0 {
			if !p.matchConst(",") {
				return nil, errors.New("expected ',' or ')' in argument list")
			}
			p.skipSpace()
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
}
