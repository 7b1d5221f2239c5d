package sort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

type sliceOp struct {
	ops.Base
	items []*value.Item
	idx   int
}

func newSliceOp(items ...*value.Item) *sliceOp { return &sliceOp{items: items} }

func (s *sliceOp) Advance() (ops.Result, bool) {
	if s.idx >= len(s.items) {
		return ops.Result{}, false
	}
	it := s.items[s.idx]
	s.idx++
	return ops.Ok(it), true
}
func (s *sliceOp) SizeHint() ops.SizeHint { return ops.Exactly(len(s.items) - s.idx) }
func (s *sliceOp) IsResetable() bool      { return true }
func (s *sliceOp) Reset() error           { s.idx = 0; return nil }
func (s *sliceOp) Clone() ops.Op          { return &sliceOp{items: s.items} }
func (s *sliceOp) String() string         { return "slice(...)" }

type errOp struct {
	ops.Base
	err error
}

func (e *errOp) Advance() (ops.Result, bool) { return ops.Fail(e.err), true }
func (e *errOp) SizeHint() ops.SizeHint      { return ops.AtLeast(0) }
func (e *errOp) IsResetable() bool           { return true }
func (e *errOp) Reset() error                { return nil }
func (e *errOp) Clone() ops.Op               { return &errOp{err: e.err} }
func (e *errOp) String() string              { return "err(...)" }

func item(fields map[string]value.Primitive) *value.Item {
	it := value.NewItem()
	for k, v := range fields {
		it.Set(k, v)
	}
	return it
}

func drain(t *testing.T, op ops.Op) ([]*value.Item, error) {
	t.Helper()
	ctx := context.New(context.Options{}, nil, nil, nil, nil)
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

func TestEmptySortIsIdentity(t *testing.T) {
	up := newSliceOp(item(map[string]value.Primitive{"title": value.Str("a")}))
	tokens := []token.Token{token.New(token.CLOSE_BRACKET, ")", 1, 0)}
	op, next, err := Parse(tokens, 0, up)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	assert.Same(t, ops.Op(up), op)
}

func TestFieldSortAscendingStable(t *testing.T) {
	up := newSliceOp(
		item(map[string]value.Primitive{"track": value.UInt(3), "pos": value.Str("a")}),
		item(map[string]value.Primitive{"track": value.UInt(1), "pos": value.Str("b")}),
		item(map[string]value.Primitive{"track": value.UInt(1), "pos": value.Str("c")}),
		item(map[string]value.Primitive{"track": value.UInt(2), "pos": value.Str("d")}),
	)
	tokens := []token.Token{
		token.New(token.NAME, "track", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := Parse(tokens, 0, up)
	require.NoError(t, err)
	items, err := drain(t, op)
	require.NoError(t, err)
	require.Len(t, items, 4)

	var pos []string
	for _, it := range items {
		v, _ := it.Get("pos")
		pos = append(pos, v.String())
	}
	assert.Equal(t, []string{"b", "c", "d", "a"}, pos)
}

func TestFieldSortMissingFieldSortsLast(t *testing.T) {
	up := newSliceOp(
		item(map[string]value.Primitive{"pos": value.Str("no-track")}),
		item(map[string]value.Primitive{"track": value.UInt(2), "pos": value.Str("b")}),
		item(map[string]value.Primitive{"track": value.UInt(1), "pos": value.Str("a")}),
	)
	tokens := []token.Token{
		token.New(token.NAME, "track", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := Parse(tokens, 0, up)
	require.NoError(t, err)
	items, err := drain(t, op)
	require.NoError(t, err)
	require.Len(t, items, 3)
	var pos []string
	for _, it := range items {
		v, _ := it.Get("pos")
		pos = append(pos, v.String())
	}
	assert.Equal(t, []string{"a", "b", "no-track"}, pos)
}

func TestShuffleSortIsDeterministicWithSeed(t *testing.T) {
	items := []*value.Item{
		item(map[string]value.Primitive{"i": value.UInt(0)}),
		item(map[string]value.Primitive{"i": value.UInt(1)}),
		item(map[string]value.Primitive{"i": value.UInt(2)}),
		item(map[string]value.Primitive{"i": value.UInt(3)}),
		item(map[string]value.Primitive{"i": value.UInt(4)}),
	}
	tokens := []token.Token{
		token.New(token.NAME, "shuffle", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}

	run := func() []string {
		op, _, err := Parse(tokens, 0, newSliceOp(items...))
		require.NoError(t, err)
		seed := int64(42)
		ctx := context.New(context.Options{ShuffleSeed: &seed}, nil, nil, nil, nil)
		op.GiveContext(ctx)
		defer op.TakeContext()
		var out []string
		for {
			res, ok := op.Advance()
			if !ok {
				break
			}
			require.NoError(t, res.Err)
			v, _ := res.Item.Get("i")
			out = append(out, v.String())
		}
		return out
	}

	first := run()
	second := run()
	require.Len(t, first, 5)
	assert.Equal(t, first, second)
}

func TestRandomShuffleAliasRequiresShuffleKeyword(t *testing.T) {
	up := newSliceOp()
	tokens := []token.Token{
		token.New(token.NAME, "random", 1, 0),
		token.New(token.NAME, "shuffle", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	_, next, err := Parse(tokens, 0, up)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestUnknownSorterNameIsSyntaxError(t *testing.T) {
	up := newSliceOp()
	tokens := []token.Token{
		token.New(token.NUMBER, "1", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	_, _, err := Parse(tokens, 0, up)
	require.Error(t, err)
}

func TestBlissSortWithoutProviderIsRuntimeError(t *testing.T) {
	up := newSliceOp(
		item(map[string]value.Primitive{"i": value.UInt(0)}),
		item(map[string]value.Primitive{"i": value.UInt(1)}),
	)
	tokens := []token.Token{
		token.New(token.NAME, "bliss_first", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := Parse(tokens, 0, up)
	require.NoError(t, err)
	_, err = drain(t, op)
	require.Error(t, err)
}

func TestAdvancedPrefixReachesBlissSorters(t *testing.T) {
	up := newSliceOp(
		item(map[string]value.Primitive{"i": value.UInt(0)}),
		item(map[string]value.Primitive{"i": value.UInt(1)}),
	)
	tokens := []token.Token{
		token.New(token.NAME, "advanced", 1, 0),
		token.New(token.NAME, "bliss_first", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, next, err := Parse(tokens, 0, up)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
	_, err = drain(t, op)
	require.Error(t, err) // no bliss provider configured, but it parsed and ran
}

func TestAdvancedPrefixRejectsUnknownSorterName(t *testing.T) {
	up := newSliceOp()
	tokens := []token.Token{
		token.New(token.NAME, "advanced", 1, 0),
		token.New(token.NAME, "shuffle", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	_, _, err := Parse(tokens, 0, up)
	require.Error(t, err)
}

func TestFieldSortPropagatesUpstreamError(t *testing.T) {
	up := &errOp{err: assertErr("boom")}
	tokens := []token.Token{
		token.New(token.NAME, "track", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := Parse(tokens, 0, up)
	require.NoError(t, err)
	_, err = drain(t, op)
	require.Error(t, err)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
