// Package sort implements the postfix `~( ... )`/`.sort( ... )` sorter
// grammar of §4.5: identity, shuffle, stable ascending field sort with
// missing-last, and the bliss_first/bliss_next acoustic-distance
// sorters. Every sorter buffers its upstream in full on first Advance
// (sorting is inherently non-lazy) but does not pull upstream at parse
// time.
package sort

import (
	"fmt"
	"sort"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// Parse parses the contents of a `~( ... )` or `.sort( ... )` starting
// right after the opening "(" and returns upstream wrapped in the
// sorter it describes, plus the position just past the closing ")".
func Parse(tokens []token.Token, pos int, upstream ops.Op) (ops.Op, int, error) {
	if peek(tokens, pos) == token.CLOSE_BRACKET {
		return upstream, pos + 1, nil
	}
	if peek(tokens, pos) != token.NAME {
		return nil, pos, unexpected(tokens, pos)
	}

	word := value.FoldCase(tokens[pos].Text)
	next := pos + 1
	switch word {
	case "random":
		if peek(tokens, next) != token.NAME || value.FoldCase(tokens[next].Text) != "shuffle" {
			return nil, next, unexpected(tokens, next)
		}
		next++
		final, err := expectClose(tokens, next)
		return newShuffleSort(upstream), final, err
	case "shuffle":
		final, err := expectClose(tokens, next)
		return newShuffleSort(upstream), final, err
	case "bliss_first", "bliss_next":
		final, err := expectClose(tokens, next)
		return newBlissSort(upstream, word == "bliss_next"), final, err
	case "advanced":
		if peek(tokens, next) != token.NAME {
			return nil, next, unexpected(tokens, next)
		}
		inner := value.FoldCase(tokens[next].Text)
		if inner != "bliss_first" && inner != "bliss_next" {
			return nil, next, unexpected(tokens, next)
		}
		next++
		final, err := expectClose(tokens, next)
		return newBlissSort(upstream, inner == "bliss_next"), final, err
	default:
		field := tokens[pos].Text
		final, err := expectClose(tokens, next)
		return newFieldSort(upstream, field), final, err
	}
}

func peek(tokens []token.Token, pos int) token.Type {
	if pos < 0 || pos >= len(tokens) {
		return token.EOF
	}
	return tokens[pos].Type
}

func expectClose(tokens []token.Token, pos int) (int, error) {
	if peek(tokens, pos) != token.CLOSE_BRACKET {
		return pos, unexpected(tokens, pos)
	}
	return pos + 1, nil
}

func unexpected(tokens []token.Token, pos int) error {
	if pos < len(tokens) {
		return &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokens[pos]}
	}
	line := 0
	if len(tokens) > 0 {
		line = tokens[len(tokens)-1].Pos.Line
	}
	return &langerr.SyntaxError{Line: line, Token: token.New(token.EOF, "", line, 0)}
}

// drainAll buffers every item of op, stopping at (and returning) the
// first error.
func drainAll(ctx *context.Context, op ops.Op) ([]*value.Item, error) {
	op.GiveContext(ctx)
	defer op.TakeContext()
	var out []*value.Item
	for {
		res, ok := op.Advance()
		if !ok {
			return out, nil
		}
		if res.Err != nil {
			return out, res.Err
		}
		out = append(out, res.Item)
	}
}

// bufferedSort is the shared buffer/replay plumbing every sorter here
// uses: it drains upstream once on first Advance, reorders the buffer
// in place via order, then replays it. order is re-derived by each
// concrete sorter's Clone, since a cloned sorter must not share buffer
// state with its source.
type bufferedSort struct {
	ops.Unary
	buf     []*value.Item
	idx     int
	started bool
	order   func(ctx *context.Context, items []*value.Item) error
}

func (s *bufferedSort) fill() error {
	if s.started {
		return nil
	}
	s.started = true
	items, err := drainAll(s.Ctx, s.Upstream)
	s.buf = items
	if err != nil {
		return err
	}
	return s.order(s.Ctx, s.buf)
}

func (s *bufferedSort) Advance() (ops.Result, bool) {
	if err := s.fill(); err != nil {
		if s.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(err), true
	}
	if s.idx >= len(s.buf) {
		return ops.Result{}, false
	}
	item := s.buf[s.idx]
	s.idx++
	return ops.Ok(item), true
}

func (s *bufferedSort) SizeHint() ops.SizeHint { return s.Unary.Upstream.SizeHint() }
func (s *bufferedSort) IsResetable() bool      { return s.Unary.IsResetable() }
func (s *bufferedSort) Reset() error {
	s.buf, s.idx, s.started = nil, 0, false
	return s.Unary.Reset()
}

// shuffleSort implements `~(shuffle)`/`~(random shuffle)` using the
// Context's seeded random source so a run is reproducible under a fixed
// ShuffleSeed.
type shuffleSort struct{ bufferedSort }

func newShuffleSort(upstream ops.Op) *shuffleSort {
	s := &shuffleSort{}
	s.Unary = ops.Unary{Upstream: upstream}
	s.order = func(ctx *context.Context, items []*value.Item) error {
		ctx.Rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		return nil
	}
	return s
}
func (s *shuffleSort) Clone() ops.Op { return newShuffleSort(s.Upstream.Clone()) }
func (s *shuffleSort) String() string { return fmt.Sprintf("%s~(shuffle)", s.Upstream) }

// fieldSort implements the stable ascending field sort `~(field)`/
// `.sort(field)`: items missing the field sort last, in their original
// relative order, the way items present for the field are ordered
// stably among themselves.
type fieldSort struct {
	bufferedSort
	field string
}

func newFieldSort(upstream ops.Op, field string) *fieldSort {
	s := &fieldSort{field: field}
	s.Unary = ops.Unary{Upstream: upstream}
	s.order = func(_ *context.Context, items []*value.Item) error {
		present := make([]*value.Item, 0, len(items))
		missing := make([]*value.Item, 0)
		for _, it := range items {
			if _, ok := it.Get(field); ok {
				present = append(present, it)
			} else {
				missing = append(missing, it)
			}
		}
		var sortErr error
		sort.SliceStable(present, func(i, j int) bool {
			vi, _ := present[i].Get(field)
			vj, _ := present[j].Get(field)
			cmp, err := vi.Compare(vj)
			if err != nil && sortErr == nil {
				sortErr = langerr.NewRuntime(field, "%s", err)
			}
			return cmp < 0
		})
		if sortErr != nil {
			return sortErr
		}
		copy(items, append(present, missing...))
		return nil
	}
	return s
}
func (s *fieldSort) Clone() ops.Op { return newFieldSort(s.Upstream.Clone(), s.field) }
func (s *fieldSort) String() string { return fmt.Sprintf("%s~(%s)", s.Upstream, s.field) }

// blissSort implements bliss_first/bliss_next: a greedy nearest-neighbour
// reordering driven by an acoustic-distance collaborator. bliss_first
// starts the chain from the first buffered item; bliss_next continues it
// from the Context's current item when one is set (e.g. "what should
// play after this"), falling back to bliss_first's behaviour otherwise.
type blissSort struct {
	bufferedSort
	continuation bool
}

func newBlissSort(upstream ops.Op, continuation bool) *blissSort {
	s := &blissSort{continuation: continuation}
	s.Unary = ops.Unary{Upstream: upstream}
	s.order = func(ctx *context.Context, items []*value.Item) error {
		if len(items) < 2 {
			return nil
		}
		if ctx.Bliss == nil {
			return langerr.NewRuntime("bliss", "no bliss distance provider configured on this context")
		}
		startIdx := 0
		if s.continuation {
			if cur := ctx.CurrentItem(); cur != nil {
				best, bestIdx := -1.0, -1
				for i, it := range items {
					d, err := ctx.Bliss.Distance(cur, it)
					if err != nil {
						return err
					}
					if bestIdx == -1 || d < best {
						best, bestIdx = d, i
					}
				}
				startIdx = bestIdx
			}
		}
		ordered := make([]*value.Item, 0, len(items))
		remaining := append([]*value.Item(nil), items...)
		cur := remaining[startIdx]
		remaining = append(remaining[:startIdx], remaining[startIdx+1:]...)
		ordered = append(ordered, cur)
		for len(remaining) > 0 {
			bestIdx, best := -1, -1.0
			for i, cand := range remaining {
				d, err := ctx.Bliss.Distance(cur, cand)
				if err != nil {
					return err
				}
				if bestIdx == -1 || d < best {
					best, bestIdx = d, i
				}
			}
			cur = remaining[bestIdx]
			remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
			ordered = append(ordered, cur)
		}
		copy(items, ordered)
		return nil
	}
	return s
}
func (s *blissSort) Clone() ops.Op { return newBlissSort(s.Upstream.Clone(), s.continuation) }
func (s *blissSort) String() string {
	if s.continuation {
		return fmt.Sprintf("%s~(bliss_next)", s.Upstream)
	}
	return fmt.Sprintf("%s~(bliss_first)", s.Upstream)
}
