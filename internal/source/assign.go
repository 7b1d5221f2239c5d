package source

import (
	"github.com/NGnius/mps/internal/block"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
)

// assignOp is `let name = expr` or `let name = source(...)`: an empty
// stream whose sole effect is storing the right-hand side under name in
// the Context, performed the first (and only) time it's advanced. A
// scalar right-hand side is evaluated and stored by value; a source
// invocation is stashed un-advanced as an operator binding, so the same
// name can later drive `iter name { ... }`.
type assignOp struct {
	ops.Base
	name string
	expr block.Expr // nil when op is set
	op   ops.Op     // nil when expr is set
	done bool
}

func (a *assignOp) Advance() (ops.Result, bool) {
	if a.done {
		return ops.Result{}, false
	}
	a.done = true
	if a.op != nil {
		a.Ctx.SetVarOp(a.name, a.op)
		return ops.Result{}, false
	}
	val, err := a.expr.Eval(a.Ctx)
	if err != nil {
		if a.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(err), true
	}
	a.Ctx.SetVar(a.name, val)
	return ops.Result{}, false
}

func (a *assignOp) SizeHint() ops.SizeHint { return ops.Exactly(0) }
func (a *assignOp) IsResetable() bool      { return true }
func (a *assignOp) Reset() error           { a.done = false; return nil }
func (a *assignOp) Clone() ops.Op {
	var clonedOp ops.Op
	if a.op != nil {
		clonedOp = a.op.Clone()
	}
	return &assignOp{name: a.name, expr: a.expr, op: clonedOp}
}
func (a *assignOp) String() string {
	if a.op != nil {
		return "let " + a.name + " = " + a.op.String()
	}
	return "let " + a.name + " = " + a.expr.String()
}

// AssignFactory implements dict.AssignFactory for `let NAME = expr`.
type AssignFactory struct{}

func NewAssignFactory() *AssignFactory { return &AssignFactory{} }

func (f *AssignFactory) BuildAssign(d *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	if peekType(tokens, pos) != token.NAME {
		return nil, pos, syntaxErr(tokens, pos)
	}
	name := tokens[pos].Text
	next, err := expectEquals(tokens, pos+1)
	if err != nil {
		return nil, next, err
	}
	if looksLikeSourceCall(tokens, next) {
		op, final, err := d.ParseSource(tokens, next)
		if err != nil {
			return nil, final, err
		}
		return &assignOp{name: name, op: op}, final, nil
	}
	expr, final, err := block.ParseExpr(tokens, next)
	if err != nil {
		return nil, final, err
	}
	return &assignOp{name: name, expr: expr}, final, nil
}

// looksLikeSourceCall reports whether the tokens starting at pos are the
// unambiguous shape of a source invocation (NAME followed immediately by
// an open bracket) rather than a scalar expression, which has no
// function-call syntax of its own.
func looksLikeSourceCall(tokens []token.Token, pos int) bool {
	return peekType(tokens, pos) == token.NAME && peekType(tokens, pos+1) == token.OPEN_BRACKET
}

func expectEquals(tokens []token.Token, pos int) (int, error) {
	if peekType(tokens, pos) != token.EQUALS {
		return pos, syntaxErr(tokens, pos)
	}
	return pos + 1, nil
}
