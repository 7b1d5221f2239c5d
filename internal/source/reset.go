package source

import (
	"fmt"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// resetOp wraps inner and makes it resetable even when inner itself
// isn't: once inner has been fully drained, its output is buffered and
// replayed on Reset; until then, Reset falls through to inner's own
// Reset (or fails the way inner would).
type resetOp struct {
	ops.Base
	inner  ops.Op
	buf    []*value.Item
	idx    int
	filled bool
}

func (r *resetOp) Advance() (ops.Result, bool) {
	if r.filled {
		if r.idx >= len(r.buf) {
			return ops.Result{}, false
		}
		item := r.buf[r.idx]
		r.idx++
		return ops.Ok(item), true
	}
	res, ok := r.inner.Advance()
	if !ok {
		r.filled = true
		return ops.Result{}, false
	}
	if res.Err == nil {
		r.buf = append(r.buf, res.Item)
		r.idx = len(r.buf)
	}
	return res, true
}

func (r *resetOp) SizeHint() ops.SizeHint { return r.inner.SizeHint() }
func (r *resetOp) IsResetable() bool      { return true }
func (r *resetOp) Reset() error {
	if r.filled {
		r.idx = 0
		return nil
	}
	r.buf = nil
	return r.inner.Reset()
}
func (r *resetOp) GiveContext(ctx *context.Context) {
	r.Base.GiveContext(ctx)
	r.inner.GiveContext(ctx)
}
func (r *resetOp) TakeContext() *context.Context {
	c := r.Base.TakeContext()
	r.inner.TakeContext()
	return c
}
func (r *resetOp) Clone() ops.Op   { return &resetOp{inner: r.inner.Clone()} }
func (r *resetOp) String() string  { return fmt.Sprintf("reset(%s)", r.inner) }

// ResetFactory recognises `reset(source)`.
type ResetFactory struct{}

func NewResetFactory() *ResetFactory { return &ResetFactory{} }

func (f *ResetFactory) Name() string { return "reset" }

func (f *ResetFactory) Build(d *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	inner, next, err := d.ParseSource(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	final, err := dict.ExpectClose(tokens, next)
	if err != nil {
		return nil, final, err
	}
	return &resetOp{inner: inner}, final, nil
}
