package source

import (
	"github.com/NGnius/mps/internal/block"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// emptyOp is the `empty()` source: an already-exhausted stream.
type emptyOp struct{ ops.Base }

func (e *emptyOp) Advance() (ops.Result, bool) { return ops.Result{}, false }
func (e *emptyOp) SizeHint() ops.SizeHint      { return ops.Exactly(0) }
func (e *emptyOp) IsResetable() bool           { return true }
func (e *emptyOp) Reset() error                { return nil }
func (e *emptyOp) Clone() ops.Op               { return &emptyOp{} }
func (e *emptyOp) String() string              { return "empty()" }

// EmptyFactory recognises `empty()` and its alias `_()`.
type EmptyFactory struct{ name string }

func NewEmptyFactory() *EmptyFactory    { return &EmptyFactory{name: "empty"} }
func NewUnderscoreFactory() *EmptyFactory { return &EmptyFactory{name: "_"} }

func (f *EmptyFactory) Name() string { return f.name }

func (f *EmptyFactory) Build(_ *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	next, err := dict.ExpectClose(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	return &emptyOp{}, next, nil
}

// emptiesOp is the `empties(n)` source: n field-less items, counted
// lazily from a per-advance re-evaluated count expression.
type emptiesOp struct {
	ops.Base
	count   block.Expr
	current uint64
}

func (e *emptiesOp) Advance() (ops.Result, bool) {
	if e.Errored {
		return ops.Result{}, false
	}
	val, err := e.count.Eval(e.Ctx)
	if err != nil {
		if e.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(err), true
	}
	n, ok := val.ToU64()
	if !ok {
		if e.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(langerr.NewRuntime(e.String(), "cannot use primitive %s (%s) as count (should be UInt)", val.Kind(), val)), true
	}
	if e.current >= n {
		return ops.Result{}, false
	}
	e.current++
	return ops.Ok(value.NewItem()), true
}

func (e *emptiesOp) SizeHint() ops.SizeHint { return ops.Exactly(0) }
func (e *emptiesOp) IsResetable() bool      { return true }
func (e *emptiesOp) Reset() error           { e.current = 0; return nil }
func (e *emptiesOp) Clone() ops.Op          { return &emptiesOp{count: e.count} }
func (e *emptiesOp) String() string         { return "empties(" + e.count.String() + ")" }

// EmptiesFactory recognises `empties(count)`.
type EmptiesFactory struct{}

func NewEmptiesFactory() *EmptiesFactory { return &EmptiesFactory{} }

func (f *EmptiesFactory) Name() string { return "empties" }

func (f *EmptiesFactory) Build(_ *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	args, next, err := ParseArgs(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	countExpr, ok := Named(args, 0, "count")
	if !ok {
		return nil, next, dict.Error(tokens, pos, "empties(count) requires a count argument")
	}
	return &emptiesOp{count: countExpr}, next, nil
}
