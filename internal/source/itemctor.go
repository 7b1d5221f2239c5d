package source

import (
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// itemCtorOp is the `Item(field=expr, ...)` source: a single item built
// from its named arguments, yielded once.
type itemCtorOp struct {
	ops.Base
	args []Arg
	done bool
}

func (o *itemCtorOp) Advance() (ops.Result, bool) {
	if o.done {
		return ops.Result{}, false
	}
	o.done = true
	item := value.NewItem()
	for _, a := range o.args {
		if a.Name == "" {
			continue
		}
		val, err := a.Expr.Eval(o.Ctx)
		if err != nil {
			if o.Latch() {
				return ops.Result{}, false
			}
			return ops.Fail(err), true
		}
		item.Set(a.Name, val)
	}
	return ops.Ok(item), true
}

func (o *itemCtorOp) SizeHint() ops.SizeHint { return ops.Exactly(1) }
func (o *itemCtorOp) IsResetable() bool      { return true }
func (o *itemCtorOp) Reset() error           { o.done = false; return nil }
func (o *itemCtorOp) Clone() ops.Op          { return &itemCtorOp{args: o.args} }
func (o *itemCtorOp) String() string         { return "Item(...)" }

// ItemFactory recognises `Item(field=expr, ...)`.
type ItemFactory struct{}

func NewItemFactory() *ItemFactory { return &ItemFactory{} }

func (f *ItemFactory) Name() string { return "Item" }

func (f *ItemFactory) Build(_ *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	args, next, err := ParseArgs(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	return &itemCtorOp{args: args}, next, nil
}
