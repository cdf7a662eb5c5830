// Package ast is the sole front-end/back-end boundary type: a Module
// built by compiler/frontend and consumed by compiler/irgen. Node shapes
// use a Base{Pos,End}-embedding, permissive empty-interface style rather
// than a typed expression/statement hierarchy.
package ast

import "github.com/marche147/klang/compiler/tp"

type (
	// Node is any AST node; kept as an empty interface.
	Node interface{}

	// Stmt and Expr are documentation-only aliases of Node: nothing in
	// this package enforces that a Stmt field holds a statement rather
	// than an expression.
	Stmt = Node
	Expr = Node

	Base struct {
		Pos int
		End int
	}
)

// Module is the front-end/back-end boundary type: an ordered function
// list plus the external prototypes (the runtime ABI plus any
// user-declared externs) the module calls but does not define.
type Module struct {
	Functions []*Function
	Externs   []Prototype
}

// Prototype names an external function's signature, for typechecking
// calls to functions the module does not define (the runtime ABI list,
// auto-registered by compiler/frontend).
type Prototype struct {
	Name   string
	Params []tp.Type
	Return tp.Type
}

// Function is one function: name, return type, an ordered parameter
// list (at most 3), an ordered local-variable list (at most 10), and an
// ordered statement list.
type Function struct {
	Base `tlog:",embed"`

	Name   string
	Params []Param
	Locals []Local
	Return tp.Type
	Body   []Stmt
}

type Param struct {
	Name string
	Type tp.Type
}

type Local struct {
	Name string
	Type tp.Type
}

// VarDecl introduces one or more locals of the same type: `var a:int,
// b:int;`.
type VarDecl struct {
	Base `tlog:",embed"`

	Names []string
	Type  tp.Type
}

// Assign covers both `name = expr;` and `name[expr] = expr;`: Target is
// either an Ident or an Index.
type Assign struct {
	Base `tlog:",embed"`

	Target Expr
	Value  Expr
}

type If struct {
	Base `tlog:",embed"`

	Cond Expr
	Then []Stmt
	Else []Stmt // nil when there is no else clause
}

type While struct {
	Base `tlog:",embed"`

	Cond Expr
	Body []Stmt
}

// Return covers both `return expr;` and the bare `return;` of a void
// function (Value is nil in that case).
type Return struct {
	Base `tlog:",embed"`

	Value Expr
}

// ExprStmt is a bare expression statement, used for void calls:
// `printi(x);`.
type ExprStmt struct {
	Base `tlog:",embed"`

	X Expr
}

type IntLit struct {
	Base `tlog:",embed"`

	Value int64
}

type StringLit struct {
	Base `tlog:",embed"`

	Value string
}

type Ident struct {
	Base `tlog:",embed"`

	Name string
}

type Index struct {
	Base `tlog:",embed"`

	Array Expr
	Idx   Expr
}

type Call struct {
	Base `tlog:",embed"`

	Callee string
	Args   []Expr
}

// BinOp mirrors compiler/ir.BinOp's operator set and ordering exactly,
// so one converts directly to the other; kept as a separate type since
// the front end must not import compiler/ir.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr
	Lt
	Le
	Gt
	Ge
	Eq
	Ne
)

type Binary struct {
	Base `tlog:",embed"`

	Op    BinOp
	Left  Expr
	Right Expr
}
