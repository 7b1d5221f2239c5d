package source

import (
	"fmt"

	"github.com/NGnius/mps/internal/block"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
)

// repeatOp replays inner in full repeatCount times (nil repeatCount
// means forever, the way an omitted count argument is documented to
// behave). inner is cloned fresh for every repetition since a drained
// operator can't simply be reset when its upstream collaborators aren't
// resetable.
type repeatOp struct {
	ops.Base
	inner       ops.Op
	count       block.Expr // nil: infinite
	cycle       int
	resolvedN   uint64
	haveN       bool
	active      ops.Op
}

func (r *repeatOp) ensureCount() error {
	if r.count == nil || r.haveN {
		return nil
	}
	val, err := r.count.Eval(r.Ctx)
	if err != nil {
		return err
	}
	n, ok := val.ToU64()
	if !ok {
		return fmt.Errorf("cannot use primitive %s as repeat count (should be UInt)", val.Kind())
	}
	r.resolvedN, r.haveN = n, true
	return nil
}

func (r *repeatOp) Advance() (ops.Result, bool) {
	if r.Errored {
		return ops.Result{}, false
	}
	if err := r.ensureCount(); err != nil {
		if r.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(err), true
	}
	for {
		if r.active == nil {
			if r.count != nil && uint64(r.cycle) >= r.resolvedN {
				return ops.Result{}, false
			}
			r.active = r.inner.Clone()
			r.active.GiveContext(r.Ctx)
		}
		res, ok := r.active.Advance()
		if ok {
			return res, true
		}
		r.active.TakeContext()
		r.active = nil
		r.cycle++
	}
}

func (r *repeatOp) SizeHint() ops.SizeHint {
	if r.count == nil {
		return ops.AtLeast(0)
	}
	return r.inner.SizeHint()
}
func (r *repeatOp) IsResetable() bool { return r.inner.IsResetable() }
func (r *repeatOp) Reset() error {
	r.cycle, r.haveN, r.active = 0, false, nil
	return r.inner.Reset()
}
func (r *repeatOp) Clone() ops.Op {
	return &repeatOp{inner: r.inner.Clone(), count: r.count}
}
func (r *repeatOp) String() string {
	if r.count == nil {
		return fmt.Sprintf("repeat(%s)", r.inner)
	}
	return fmt.Sprintf("repeat(%s, %s)", r.inner, r.count)
}

// RepeatFactory recognises `repeat(source)` and `repeat(source, count)`.
// Its first argument is itself a full nested source, so it can't use
// the scalar-only ParseArgs helper the other factories share.
type RepeatFactory struct{}

func NewRepeatFactory() *RepeatFactory { return &RepeatFactory{} }

func (f *RepeatFactory) Name() string { return "repeat" }

func (f *RepeatFactory) Build(d *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	inner, next, err := d.ParseSource(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	var countExpr block.Expr
	if peekType(tokens, next) == token.COMMA {
		countExpr, next, err = block.ParseExpr(tokens, next+1)
		if err != nil {
			return nil, next, err
		}
	}
	final, err := dict.ExpectClose(tokens, next)
	if err != nil {
		return nil, final, err
	}
	return &repeatOp{inner: inner, count: countExpr}, final, nil
}
