package source

import (
	"strings"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
)

// parseSourceList parses a comma-separated list of full nested sources
// up to and including the closing ")", the shape union/intersection
// share.
func parseSourceList(d *dict.Dictionary, tokens []token.Token, pos int) ([]ops.Op, int, error) {
	var list []ops.Op
	for {
		op, next, err := d.ParseSource(tokens, pos)
		if err != nil {
			return nil, next, err
		}
		list = append(list, op)
		pos = next
		if peekType(tokens, pos) == token.COMMA {
			pos++
			continue
		}
		break
	}
	final, err := dict.ExpectClose(tokens, pos)
	return list, final, err
}

// unionOp lazily concatenates every branch's output in order, without
// deduplicating: union(a, b) ≡ a's items followed by b's items.
type unionOp struct {
	ops.Base
	branches []ops.Op
	idx      int
}

func (u *unionOp) Advance() (ops.Result, bool) {
	for u.idx < len(u.branches) {
		res, ok := u.branches[u.idx].Advance()
		if ok {
			return res, true
		}
		u.branches[u.idx].TakeContext()
		u.idx++
		if u.idx < len(u.branches) {
			u.branches[u.idx].GiveContext(u.Ctx)
		}
	}
	return ops.Result{}, false
}

func (u *unionOp) SizeHint() ops.SizeHint {
	hint := ops.Exactly(0)
	for _, b := range u.branches {
		bh := b.SizeHint()
		hint.Lower += bh.Lower
		if hint.Upper != nil {
			if bh.Upper == nil {
				hint.Upper = nil
			} else {
				sum := *hint.Upper + *bh.Upper
				hint.Upper = &sum
			}
		}
	}
	return hint
}
func (u *unionOp) IsResetable() bool {
	for _, b := range u.branches {
		if !b.IsResetable() {
			return false
		}
	}
	return true
}
func (u *unionOp) Reset() error {
	u.idx = 0
	for _, b := range u.branches {
		if err := b.Reset(); err != nil {
			return err
		}
	}
	return nil
}
func (u *unionOp) GiveContext(ctx *context.Context) {
	u.Base.GiveContext(ctx)
	if len(u.branches) > 0 {
		u.branches[0].GiveContext(ctx)
	}
}
func (u *unionOp) TakeContext() *context.Context {
	c := u.Base.TakeContext()
	if u.idx < len(u.branches) {
		u.branches[u.idx].TakeContext()
	}
	return c
}
func (u *unionOp) Clone() ops.Op {
	cloned := make([]ops.Op, len(u.branches))
	for i, b := range u.branches {
		cloned[i] = b.Clone()
	}
	return &unionOp{branches: cloned}
}
func (u *unionOp) String() string {
	parts := make([]string, len(u.branches))
	for i, b := range u.branches {
		parts[i] = b.String()
	}
	return "union(" + strings.Join(parts, ", ") + ")"
}

// UnionFactory recognises `union(source, source, ...)`.
type UnionFactory struct{}

func NewUnionFactory() *UnionFactory { return &UnionFactory{} }

func (f *UnionFactory) Name() string { return "union" }

func (f *UnionFactory) Build(d *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	list, next, err := parseSourceList(d, tokens, pos)
	if err != nil {
		return nil, next, err
	}
	return &unionOp{branches: list}, next, nil
}
