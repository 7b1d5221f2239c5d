package filter

import (
	"fmt"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/value"
)

// predicateFilter keeps every upstream item for which pred matches,
// covering field predicates, nonempty, and their `||` compositions.
type predicateFilter struct {
	ops.Unary
	pred Predicate
}

func (f *predicateFilter) Advance() (ops.Result, bool) {
	for {
		res, ok := f.Upstream.Advance()
		if !ok {
			return ops.Result{}, false
		}
		if res.Err != nil {
			return res, true
		}
		f.Ctx.PushItem(res.Item)
		matched, err := f.pred.Match(f.Ctx, res.Item)
		f.Ctx.PopItem()
		if err != nil {
			if f.Latch() {
				return ops.Result{}, false
			}
			return ops.Fail(err), true
		}
		if matched {
			return res, true
		}
	}
}

func (f *predicateFilter) SizeHint() ops.SizeHint { return ops.SizeHint{Upper: f.Upstream.SizeHint().Upper} }
func (f *predicateFilter) Clone() ops.Op {
	return &predicateFilter{Unary: ops.Unary{Upstream: f.Upstream.Clone()}, pred: f.pred}
}
func (f *predicateFilter) String() string { return fmt.Sprintf("%s.(%s)", f.Upstream, f.pred) }

// indexFilter keeps only the n-th (0-based) upstream item.
type indexFilter struct {
	ops.Unary
	n   uint64
	idx uint64
	hit bool
}

func (f *indexFilter) Advance() (ops.Result, bool) {
	if f.hit {
		return ops.Result{}, false
	}
	for {
		res, ok := f.Upstream.Advance()
		if !ok {
			return ops.Result{}, false
		}
		if res.Err != nil {
			f.hit = true
			return res, true
		}
		if f.idx == f.n {
			f.hit = true
			return res, true
		}
		f.idx++
	}
}

func (f *indexFilter) SizeHint() ops.SizeHint {
	if f.hit {
		return ops.Exactly(0)
	}
	one := 1
	return ops.SizeHint{Upper: &one}
}
func (f *indexFilter) IsResetable() bool { return f.Unary.IsResetable() }
func (f *indexFilter) Reset() error {
	f.idx, f.hit = 0, false
	return f.Unary.Reset()
}
func (f *indexFilter) Clone() ops.Op {
	return &indexFilter{Unary: ops.Unary{Upstream: f.Upstream.Clone()}, n: f.n}
}
func (f *indexFilter) String() string { return fmt.Sprintf("%s.(%d)", f.Upstream, f.n) }

// indexDropFilter drops the n-th (0-based) upstream item, passing every
// other item through.
type indexDropFilter struct {
	ops.Unary
	n   uint64
	idx uint64
}

func (f *indexDropFilter) Advance() (ops.Result, bool) {
	for {
		res, ok := f.Upstream.Advance()
		if !ok {
			return ops.Result{}, false
		}
		skip := f.idx == f.n
		f.idx++
		if res.Err != nil {
			return res, true
		}
		if skip {
			continue
		}
		return res, true
	}
}

func (f *indexDropFilter) SizeHint() ops.SizeHint { return ops.SizeHint{Upper: f.Upstream.SizeHint().Upper} }
func (f *indexDropFilter) Reset() error {
	f.idx = 0
	return f.Unary.Reset()
}
func (f *indexDropFilter) Clone() ops.Op {
	return &indexDropFilter{Unary: ops.Unary{Upstream: f.Upstream.Clone()}, n: f.n}
}
func (f *indexDropFilter) String() string { return fmt.Sprintf("%s.(!%d)", f.Upstream, f.n) }

// rangeFilter keeps upstream items whose 0-based position falls in
// [lower, upper) or [lower, upper] when inclusive; nil bounds mean
// unbounded. Positions past upper stop pulling upstream entirely.
type rangeFilter struct {
	ops.Unary
	lower, upper *uint64
	inclusive    bool
	idx          uint64
}

func (f *rangeFilter) inRange() bool {
	if f.lower != nil && f.idx < *f.lower {
		return false
	}
	if f.upper == nil {
		return true
	}
	if f.inclusive {
		return f.idx <= *f.upper
	}
	return f.idx < *f.upper
}

func (f *rangeFilter) pastRange() bool {
	if f.upper == nil {
		return false
	}
	if f.inclusive {
		return f.idx > *f.upper
	}
	return f.idx >= *f.upper
}

func (f *rangeFilter) Advance() (ops.Result, bool) {
	for {
		if f.pastRange() {
			return ops.Result{}, false
		}
		res, ok := f.Upstream.Advance()
		if !ok {
			return ops.Result{}, false
		}
		if res.Err != nil {
			return res, true
		}
		take := f.inRange()
		f.idx++
		if take {
			return res, true
		}
	}
}

func (f *rangeFilter) SizeHint() ops.SizeHint {
	if f.upper == nil {
		return ops.SizeHint{Upper: f.Upstream.SizeHint().Upper}
	}
	lower := uint64(0)
	if f.lower != nil {
		lower = *f.lower
	}
	n := int(*f.upper - lower)
	if f.inclusive {
		n++
	}
	if n < 0 {
		n = 0
	}
	return ops.SizeHint{Upper: &n}
}
func (f *rangeFilter) Reset() error {
	f.idx = 0
	return f.Unary.Reset()
}
func (f *rangeFilter) Clone() ops.Op {
	return &rangeFilter{Unary: ops.Unary{Upstream: f.Upstream.Clone()}, lower: f.lower, upper: f.upper, inclusive: f.inclusive}
}
func (f *rangeFilter) String() string { return fmt.Sprintf("%s.(range)", f.Upstream) }

// uniqueFilter keeps the first occurrence of each distinct item
// (by full field-set dedupe key), dropping later duplicates.
type uniqueFilter struct {
	ops.Unary
	seen map[[16]byte]bool
}

func (f *uniqueFilter) Advance() (ops.Result, bool) {
	for {
		res, ok := f.Upstream.Advance()
		if !ok {
			return ops.Result{}, false
		}
		if res.Err != nil {
			return res, true
		}
		key := res.Item.DedupeKey()
		if f.seen[key] {
			continue
		}
		f.seen[key] = true
		return res, true
	}
}

func (f *uniqueFilter) SizeHint() ops.SizeHint { return ops.SizeHint{Upper: f.Upstream.SizeHint().Upper} }
func (f *uniqueFilter) Reset() error {
	f.seen = make(map[[16]byte]bool)
	return f.Unary.Reset()
}
func (f *uniqueFilter) Clone() ops.Op {
	return &uniqueFilter{Unary: ops.Unary{Upstream: f.Upstream.Clone()}, seen: make(map[[16]byte]bool)}
}
func (f *uniqueFilter) String() string { return fmt.Sprintf("%s.(unique)", f.Upstream) }

// uniqueFieldFilter keeps the first item seen for each distinct value of
// one field, dropping later items with the same value.
type uniqueFieldFilter struct {
	ops.Unary
	field string
	seen  map[string]bool
}

func (f *uniqueFieldFilter) Advance() (ops.Result, bool) {
	for {
		res, ok := f.Upstream.Advance()
		if !ok {
			return ops.Result{}, false
		}
		if res.Err != nil {
			return res, true
		}
		v, _ := res.Item.Get(f.field)
		key := value.FieldKey(v)
		if f.seen[key] {
			continue
		}
		f.seen[key] = true
		return res, true
	}
}

func (f *uniqueFieldFilter) SizeHint() ops.SizeHint {
	return ops.SizeHint{Upper: f.Upstream.SizeHint().Upper}
}
func (f *uniqueFieldFilter) Reset() error {
	f.seen = make(map[string]bool)
	return f.Unary.Reset()
}
func (f *uniqueFieldFilter) Clone() ops.Op {
	return &uniqueFieldFilter{Unary: ops.Unary{Upstream: f.Upstream.Clone()}, field: f.field, seen: make(map[string]bool)}
}
func (f *uniqueFieldFilter) String() string { return fmt.Sprintf("%s.(unique %s)", f.Upstream, f.field) }

// replaceFilter implements `.(if p: q else r)`: for each upstream item,
// it lazily drains either q or r (cloned fresh per item, item pushed as
// the current item for the branch's own item-block evaluation), falling
// back to yielding the item unchanged when r is omitted and p is false.
type replaceFilter struct {
	base     ops.Base
	upstream ops.Op
	pred     Predicate
	then     ops.Op
	elseOp   ops.Op // nil means "pass the item through unchanged"

	active ops.Op
}

func (f *replaceFilter) Advance() (ops.Result, bool) {
	for {
		if f.active != nil {
			res, ok := f.active.Advance()
			if ok {
				return res, true
			}
			f.active.TakeContext()
			f.active = nil
			f.base.Ctx.PopItem()
			continue
		}
		res, ok := f.upstream.Advance()
		if !ok {
			return ops.Result{}, false
		}
		if res.Err != nil {
			return res, true
		}
		item := res.Item
		f.base.Ctx.PushItem(item)
		matched, err := f.pred.Match(f.base.Ctx, item)
		if err != nil {
			f.base.Ctx.PopItem()
			if f.base.Latch() {
				return ops.Result{}, false
			}
			return ops.Fail(err), true
		}
		if !matched && f.elseOp == nil {
			f.base.Ctx.PopItem()
			return ops.Ok(item), true
		}
		branch := f.elseOp
		if matched {
			branch = f.then
		}
		cloned := branch.Clone()
		cloned.GiveContext(f.base.Ctx)
		f.active = cloned
	}
}

func (f *replaceFilter) SizeHint() ops.SizeHint { return ops.AtLeast(0) }
func (f *replaceFilter) IsResetable() bool {
	if !f.upstream.IsResetable() || !f.then.IsResetable() {
		return false
	}
	return f.elseOp == nil || f.elseOp.IsResetable()
}
func (f *replaceFilter) Reset() error {
	f.active = nil
	if err := f.upstream.Reset(); err != nil {
		return err
	}
	if err := f.then.Reset(); err != nil {
		return err
	}
	if f.elseOp != nil {
		return f.elseOp.Reset()
	}
	return nil
}
func (f *replaceFilter) GiveContext(ctx *context.Context) {
	f.base.GiveContext(ctx)
	f.upstream.GiveContext(ctx)
}
func (f *replaceFilter) TakeContext() *context.Context {
	c := f.base.TakeContext()
	f.upstream.TakeContext()
	return c
}
func (f *replaceFilter) Clone() ops.Op {
	cp := &replaceFilter{upstream: f.upstream.Clone(), pred: f.pred, then: f.then.Clone()}
	if f.elseOp != nil {
		cp.elseOp = f.elseOp.Clone()
	}
	return cp
}
func (f *replaceFilter) String() string {
	return fmt.Sprintf("%s.(if %s: %s else %s)", f.upstream, f.pred, f.then, f.elseOp)
}
