package dsl

// Expr is the parsed representation of one DSL expression. exprKind
// discriminates which fields are meaningful, mirroring the Signal tagged
// union in internal/graph rather than using a Go interface per node kind —
// the grammar is small enough that one struct reads easier than a dozen
// single-field types.
type exprKind int

const (
	exprNumber exprKind = iota
	exprBusRef
	exprString    // a mini-notation source string
	exprBinOp     // Left <op> Right
	exprNeg       // -Operand
	exprCall      // Name(Args...) or Name Args... (space form)
	exprChain     // stages chained with >>
	exprPipeline  // Source |> transform |> transform ...
)

type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

type expr struct {
	kind exprKind

	number float64
	name   string // busRef/call name
	str    string // mini-notation source for exprString

	op          binOp
	left, right *expr

	operand *expr // exprNeg

	args []*expr // exprCall

	stages []*expr // exprChain (each stage a call/ident)

	source     *expr   // exprPipeline: the piped-in pattern
	transforms []*expr // exprPipeline: each a exprCall "transform term"
}

// stmt is one top-level DSL line.
type stmt struct {
	kind stmtKind
	name string // busBind target
	expr *expr
}

type stmtKind int

const (
	stmtBusBind stmtKind = iota
	stmtOut
	stmtTempo
)
