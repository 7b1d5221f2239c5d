package source

import (
	"strings"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// intersectionOp keeps items from the first branch whose "filename"
// field also appears in every other branch, identity being keyed on
// filename (rather than full-item equality) since the same song can
// carry different play-count/tag snapshots depending on which
// collaborator produced it.
type intersectionOp struct {
	ops.Base
	first  ops.Op
	rest   []ops.Op
	keys   []map[string]bool
	filled bool
}

func (i *intersectionOp) fillRest() error {
	if i.filled {
		return nil
	}
	i.filled = true
	i.keys = make([]map[string]bool, len(i.rest))
	for idx, branch := range i.rest {
		keys := make(map[string]bool)
		branch.GiveContext(i.Ctx)
		for {
			res, ok := branch.Advance()
			if !ok {
				break
			}
			if res.Err != nil {
				branch.TakeContext()
				return res.Err
			}
			fn, _ := res.Item.Get("filename")
			keys[value.FieldKey(fn)] = true
		}
		branch.TakeContext()
		i.keys[idx] = keys
	}
	return nil
}

func (i *intersectionOp) inAllRest(key string) bool {
	for _, keys := range i.keys {
		if !keys[key] {
			return false
		}
	}
	return true
}

func (i *intersectionOp) Advance() (ops.Result, bool) {
	if err := i.fillRest(); err != nil {
		if i.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(err), true
	}
	for {
		res, ok := i.first.Advance()
		if !ok {
			return ops.Result{}, false
		}
		if res.Err != nil {
			return res, true
		}
		fn, _ := res.Item.Get("filename")
		if i.inAllRest(value.FieldKey(fn)) {
			return res, true
		}
	}
}

func (i *intersectionOp) SizeHint() ops.SizeHint { return ops.AtLeast(0) }
func (i *intersectionOp) IsResetable() bool {
	if !i.first.IsResetable() {
		return false
	}
	for _, b := range i.rest {
		if !b.IsResetable() {
			return false
		}
	}
	return true
}
func (i *intersectionOp) Reset() error {
	i.filled, i.keys = false, nil
	if err := i.first.Reset(); err != nil {
		return err
	}
	for _, b := range i.rest {
		if err := b.Reset(); err != nil {
			return err
		}
	}
	return nil
}
func (i *intersectionOp) GiveContext(ctx *context.Context) {
	i.Base.GiveContext(ctx)
	i.first.GiveContext(ctx)
}
func (i *intersectionOp) TakeContext() *context.Context {
	c := i.Base.TakeContext()
	i.first.TakeContext()
	return c
}
func (i *intersectionOp) Clone() ops.Op {
	rest := make([]ops.Op, len(i.rest))
	for idx, b := range i.rest {
		rest[idx] = b.Clone()
	}
	return &intersectionOp{first: i.first.Clone(), rest: rest}
}
func (i *intersectionOp) String() string {
	parts := make([]string, 0, len(i.rest)+1)
	parts = append(parts, i.first.String())
	for _, b := range i.rest {
		parts = append(parts, b.String())
	}
	return "intersection(" + strings.Join(parts, ", ") + ")"
}

// IntersectionFactory recognises `intersection(source, source, ...)`.
type IntersectionFactory struct{}

func NewIntersectionFactory() *IntersectionFactory { return &IntersectionFactory{} }

func (f *IntersectionFactory) Name() string { return "intersection" }

func (f *IntersectionFactory) Build(d *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	list, next, err := parseSourceList(d, tokens, pos)
	if err != nil {
		return nil, next, err
	}
	if len(list) < 2 {
		return nil, next, dict.Error(tokens, pos, "intersection(a, b, ...) takes at least two sources")
	}
	return &intersectionOp{first: list[0], rest: list[1:]}, next, nil
}
