package source

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NGnius/mps/internal/collab"
	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// fakeSQL is an in-memory collab.SQL: Query ignores its arguments and
// always returns the fixed rows it's built with, recording the last
// query/args it was called with for assertions.
type fakeSQL struct {
	rows       []*value.Item
	err        error
	lastQuery  string
	lastArgs   []any
	initCalled bool
	initErr    error
}

func (f *fakeSQL) Query(query string, args ...any) ([]*value.Item, error) {
	f.lastQuery, f.lastArgs = query, args
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}
func (f *fakeSQL) InitLibrary(generate bool, folder string) error {
	f.initCalled = true
	return f.initErr
}
func (f *fakeSQL) Close() error { return nil }

type fakeMPD struct {
	rows      []*value.Item
	err       error
	lastAddr  string
	lastTerms []collab.TermValue
}

func (f *fakeMPD) Search(addr string, params []collab.TermValue) ([]*value.Item, error) {
	f.lastAddr, f.lastTerms = addr, params
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakeFiles struct {
	paths []string
	err   error
}

func (f *fakeFiles) List(folder, pattern string, recursive bool) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.paths, nil
}
func (f *fakeFiles) Watch(folder string, recursive bool, onChange func()) (func(), error) {
	return nil, nil
}

type fakeTags struct {
	byPath map[string]map[string]value.Primitive
	err    error
}

func (f *fakeTags) Probe(path string) (map[string]value.Primitive, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byPath[path], nil
}

func newCtx(sql collab.SQL, mpd collab.MPD, tags collab.TagProbe, files collab.FileWalker) *context.Context {
	return context.New(context.Options{MusicRoot: "/music"}, sql, mpd, tags, files)
}

func drain(t *testing.T, ctx *context.Context, op ops.Op) ([]*value.Item, error) {
	t.Helper()
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

func item(fields map[string]value.Primitive) *value.Item {
	it := value.NewItem()
	for k, v := range fields {
		it.Set(k, v)
	}
	return it
}

func TestEmptyFactoryYieldsNothing(t *testing.T) {
	f := NewEmptyFactory()
	assert.Equal(t, "empty", f.Name())
	tokens := []token.Token{token.New(token.CLOSE_BRACKET, ")", 1, 0)}
	op, next, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	items, err := drain(t, newCtx(nil, nil, nil, nil), op)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUnderscoreFactoryIsEmptyAlias(t *testing.T) {
	assert.Equal(t, "_", NewUnderscoreFactory().Name())
}

func TestEmptiesFactoryYieldsNEmptyItems(t *testing.T) {
	f := NewEmptiesFactory()
	tokens := []token.Token{
		token.New(token.NAME, "count", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.NUMBER, "3", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)
	items, err := drain(t, newCtx(nil, nil, nil, nil), op)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, it := range items {
		assert.Equal(t, 0, it.Len())
	}
}

func TestEmptiesFactoryRequiresCount(t *testing.T) {
	f := NewEmptiesFactory()
	tokens := []token.Token{token.New(token.CLOSE_BRACKET, ")", 1, 0)}
	_, _, err := f.Build(nil, tokens, 0)
	require.Error(t, err)
}

func TestItemFactoryBuildsOneItemFromNamedArgs(t *testing.T) {
	f := NewItemFactory()
	tokens := []token.Token{
		token.New(token.NAME, "title", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.LITERAL, "song name", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)
	items, err := drain(t, newCtx(nil, nil, nil, nil), op)
	require.NoError(t, err)
	require.Len(t, items, 1)
	v, ok := items[0].Get("title")
	require.True(t, ok)
	assert.Equal(t, "song name", v.String())
}

func TestResetOpBuffersAndReplaysAfterFullDrain(t *testing.T) {
	d := dict.New().Add(NewEmptiesFactory())
	tokens := []token.Token{
		token.New(token.NAME, "reset", 1, 0),
		token.New(token.OPEN_BRACKET, "(", 1, 0),
		token.New(token.NAME, "empties", 1, 0),
		token.New(token.OPEN_BRACKET, "(", 1, 0),
		token.New(token.NAME, "count", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.NUMBER, "2", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	rf := NewResetFactory()
	op, _, err := rf.Build(d, tokens, 2)
	require.NoError(t, err)

	ctx := newCtx(nil, nil, nil, nil)
	op.GiveContext(ctx)
	var first []*value.Item
	for {
		res, ok := op.Advance()
		if !ok {
			break
		}
		require.NoError(t, res.Err)
		first = append(first, res.Item)
	}
	require.Len(t, first, 2)

	require.True(t, op.IsResetable())
	require.NoError(t, op.Reset())
	var second []*value.Item
	for {
		res, ok := op.Advance()
		if !ok {
			break
		}
		require.NoError(t, res.Err)
		second = append(second, res.Item)
	}
	op.TakeContext()
	assert.Len(t, second, 2)
}

func TestUnionConcatenatesBranchesInOrder(t *testing.T) {
	left := &fixedOp{items: []*value.Item{item(map[string]value.Primitive{"i": value.UInt(0)})}}
	right := &fixedOp{items: []*value.Item{
		item(map[string]value.Primitive{"i": value.UInt(1)}),
		item(map[string]value.Primitive{"i": value.UInt(2)}),
	}}
	u := &unionOp{branches: []ops.Op{left, right}}
	items, err := drain(t, newCtx(nil, nil, nil, nil), u)
	require.NoError(t, err)
	require.Len(t, items, 3)
	var vals []string
	for _, it := range items {
		v, _ := it.Get("i")
		vals = append(vals, v.String())
	}
	assert.Equal(t, []string{"0", "1", "2"}, vals)
}

func TestIntersectionKeepsLeftItemsWithMatchingFilename(t *testing.T) {
	left := &fixedOp{items: []*value.Item{
		item(map[string]value.Primitive{"filename": value.Str("a.mp3")}),
		item(map[string]value.Primitive{"filename": value.Str("b.mp3")}),
	}}
	right := &fixedOp{items: []*value.Item{
		item(map[string]value.Primitive{"filename": value.Str("b.mp3")}),
	}}
	op := &intersectionOp{first: left, rest: []ops.Op{right}}
	items, err := drain(t, newCtx(nil, nil, nil, nil), op)
	require.NoError(t, err)
	require.Len(t, items, 1)
	v, _ := items[0].Get("filename")
	assert.Equal(t, "b.mp3", v.String())
}

func TestIntersectionIsVariadic(t *testing.T) {
	first := &fixedOp{items: []*value.Item{
		item(map[string]value.Primitive{"filename": value.Str("a.mp3")}),
		item(map[string]value.Primitive{"filename": value.Str("b.mp3")}),
		item(map[string]value.Primitive{"filename": value.Str("c.mp3")}),
	}}
	second := &fixedOp{items: []*value.Item{
		item(map[string]value.Primitive{"filename": value.Str("a.mp3")}),
		item(map[string]value.Primitive{"filename": value.Str("b.mp3")}),
	}}
	third := &fixedOp{items: []*value.Item{
		item(map[string]value.Primitive{"filename": value.Str("b.mp3")}),
	}}
	op := &intersectionOp{first: first, rest: []ops.Op{second, third}}
	items, err := drain(t, newCtx(nil, nil, nil, nil), op)
	require.NoError(t, err)
	require.Len(t, items, 1)
	v, _ := items[0].Get("filename")
	assert.Equal(t, "b.mp3", v.String())
}

func TestRepeatFactoryWithCountReplaysInnerNTimes(t *testing.T) {
	inner := &fixedOp{items: []*value.Item{item(map[string]value.Primitive{"x": value.UInt(1)})}}
	op := &repeatOp{inner: inner, count: constExpr{v: value.UInt(3)}}
	items, err := drain(t, newCtx(nil, nil, nil, nil), op)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestRepeatWithoutCountKeepsProducing(t *testing.T) {
	inner := &fixedOp{items: []*value.Item{item(map[string]value.Primitive{"x": value.UInt(1)})}}
	op := &repeatOp{inner: inner}
	ctx := newCtx(nil, nil, nil, nil)
	op.GiveContext(ctx)
	defer op.TakeContext()
	for i := 0; i < 25; i++ {
		res, ok := op.Advance()
		require.True(t, ok)
		require.NoError(t, res.Err)
	}
}

func TestAssignFactoryStoresEvaluatedValue(t *testing.T) {
	f := NewAssignFactory()
	tokens := []token.Token{
		token.New(token.NAME, "x", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.NUMBER, "7", 1, 0),
	}
	op, next, err := f.BuildAssign(nil, tokens, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	ctx := newCtx(nil, nil, nil, nil)
	_, err = drain(t, ctx, op)
	require.NoError(t, err)
	v, ok := ctx.GetVar("x")
	require.True(t, ok)
	assert.Equal(t, "7", v.Value.String())
}

func TestSQLFactoryForwardsQueryAndParams(t *testing.T) {
	f := NewSQLFactory()
	tokens := []token.Token{
		token.New(token.NAME, "query", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.LITERAL, "select * from songs where year = ?", 1, 0),
		token.New(token.COMMA, ",", 1, 0),
		token.New(token.NUMBER, "2016", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)

	sql := &fakeSQL{rows: []*value.Item{item(map[string]value.Primitive{"title": value.Str("song")})}}
	items, err := drain(t, newCtx(sql, nil, nil, nil), op)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "select * from songs where year = ?", sql.lastQuery)
	require.Len(t, sql.lastArgs, 1)
	assert.Equal(t, uint64(2016), sql.lastArgs[0])
}

func TestSQLFactoryRequiresQuery(t *testing.T) {
	f := NewSQLFactory()
	tokens := []token.Token{token.New(token.CLOSE_BRACKET, ")", 1, 0)}
	_, _, err := f.Build(nil, tokens, 0)
	require.Error(t, err)
}

func TestSongFactoryBuildsWhereClauseFromNamedArgs(t *testing.T) {
	f := NewSongFactory()
	tokens := []token.Token{
		token.New(token.NAME, "artist", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.LITERAL, "Artist Name", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)

	sql := &fakeSQL{rows: []*value.Item{item(map[string]value.Primitive{"title": value.Str("t")})}}
	items, err := drain(t, newCtx(sql, nil, nil, nil), op)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, sql.lastQuery, "artists.name = ?")
	require.Len(t, sql.lastArgs, 1)
	assert.Equal(t, "Artist Name", sql.lastArgs[0])
}

func TestSongFactoryPositionalArgIsTitleFragmentSubstring(t *testing.T) {
	f := NewSongFactory()
	tokens := []token.Token{
		token.New(token.LITERAL, "lov", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)

	sql := &fakeSQL{rows: []*value.Item{item(map[string]value.Primitive{"title": value.Str("Love Song")})}}
	items, err := drain(t, newCtx(sql, nil, nil, nil), op)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, sql.lastQuery, "LIKE")
	assert.Contains(t, sql.lastQuery, "LOWER(songs.title)")
	require.Len(t, sql.lastArgs, 1)
	assert.Equal(t, "lov", sql.lastArgs[0])
}

func TestSongFactoryRejectsUnknownNamedArg(t *testing.T) {
	f := NewSongFactory()
	tokens := []token.Token{
		token.New(token.NAME, "titel", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.LITERAL, "x", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	_, _, err := f.Build(nil, tokens, 0)
	require.Error(t, err)
}

func TestSQLInitFactoryDefaultsGenerateFalseAndFolderFromContext(t *testing.T) {
	f := NewSQLInitFactory()
	tokens := []token.Token{token.New(token.CLOSE_BRACKET, ")", 1, 0)}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)

	sql := &fakeSQL{}
	_, err = drain(t, newCtx(sql, nil, nil, nil), op)
	require.NoError(t, err)
	assert.True(t, sql.initCalled)
}

func TestSQLInitFactoryRejectsUnknownNamedArg(t *testing.T) {
	f := NewSQLInitFactory()
	tokens := []token.Token{
		token.New(token.NAME, "bogus", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.NAME, "true", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	_, _, err := f.Build(nil, tokens, 0)
	require.Error(t, err)
}

func TestFilesFactoryProbesEachListedFile(t *testing.T) {
	f := NewFilesFactory()
	tokens := []token.Token{token.New(token.CLOSE_BRACKET, ")", 1, 0)}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)

	files := &fakeFiles{paths: []string{"/music/a.mp3", "/music/b.mp3"}}
	tags := &fakeTags{byPath: map[string]map[string]value.Primitive{
		"/music/a.mp3": {"title": value.Str("A")},
		"/music/b.mp3": {"title": value.Str("B")},
	}}
	items, err := drain(t, newCtx(nil, nil, tags, files), op)
	require.NoError(t, err)
	require.Len(t, items, 2)
	v0, _ := items[0].Get("title")
	assert.Equal(t, "A", v0.String())
	fn0, _ := items[0].Get("filename")
	assert.Equal(t, "/music/a.mp3", fn0.String())
}

func TestFilesFactoryAcceptsReNamedArg(t *testing.T) {
	f := NewFilesFactory()
	tokens := []token.Token{
		token.New(token.NAME, "re", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.LITERAL, `\.mp3$`, 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)

	files := &fakeFiles{paths: []string{"/music/a.mp3"}}
	tags := &fakeTags{byPath: map[string]map[string]value.Primitive{
		"/music/a.mp3": {"title": value.Str("A")},
	}}
	items, err := drain(t, newCtx(nil, nil, tags, files), op)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestFilesFactoryRejectsUnknownNamedArg(t *testing.T) {
	f := NewFilesFactory()
	tokens := []token.Token{
		token.New(token.NAME, "path", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.LITERAL, "/x", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	_, _, err := f.Build(nil, tokens, 0)
	require.Error(t, err)
}

func TestMPDFactoryForwardsTermsAndAddr(t *testing.T) {
	f := NewMPDFactory()
	tokens := []token.Token{
		token.New(token.NAME, "addr", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.LITERAL, "localhost:6600", 1, 0),
		token.New(token.COMMA, ",", 1, 0),
		token.New(token.NAME, "artist", 1, 0),
		token.New(token.EQUALS, "=", 1, 0),
		token.New(token.LITERAL, "Some Artist", 1, 0),
		token.New(token.CLOSE_BRACKET, ")", 1, 0),
	}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)

	mpd := &fakeMPD{rows: []*value.Item{item(map[string]value.Primitive{"title": value.Str("t")})}}
	items, err := drain(t, newCtx(nil, mpd, nil, nil), op)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "localhost:6600", mpd.lastAddr)
	require.Len(t, mpd.lastTerms, 1)
	assert.Equal(t, "artist", mpd.lastTerms[0].Term)
	assert.Equal(t, "Some Artist", mpd.lastTerms[0].Value)
}

func TestMPDFactoryDefaultsAddrFromContext(t *testing.T) {
	f := NewMPDFactory()
	tokens := []token.Token{token.New(token.CLOSE_BRACKET, ")", 1, 0)}
	op, _, err := f.Build(nil, tokens, 0)
	require.NoError(t, err)

	ctx := context.New(context.Options{DefaultMPD: "mpd.local:6600"}, nil, &fakeMPD{}, nil, nil)
	_, err = drain(t, ctx, op)
	require.NoError(t, err)
	mpd := ctx.MPD.(*fakeMPD)
	assert.Equal(t, "mpd.local:6600", mpd.lastAddr)
}

// fixedOp yields exactly the items it's built with, for source-level
// tests that compose union/intersection/repeat directly.
type fixedOp struct {
	ops.Base
	items []*value.Item
	idx   int
}

func (f *fixedOp) Advance() (ops.Result, bool) {
	if f.idx >= len(f.items) {
		return ops.Result{}, false
	}
	it := f.items[f.idx]
	f.idx++
	return ops.Ok(it), true
}
func (f *fixedOp) SizeHint() ops.SizeHint { return ops.Exactly(len(f.items) - f.idx) }
func (f *fixedOp) IsResetable() bool      { return true }
func (f *fixedOp) Reset() error           { f.idx = 0; return nil }
func (f *fixedOp) Clone() ops.Op          { return &fixedOp{items: f.items} }
func (f *fixedOp) String() string         { return "fixed(...)" }

// constExpr is a fixture block.Expr that always evaluates to v, standing
// in for repeat()'s count argument without needing the block parser.
type constExpr struct{ v value.Primitive }

func (c constExpr) Eval(_ *context.Context) (value.Primitive, error) { return c.v, nil }
func (c constExpr) String() string                                  { return fmt.Sprintf("%v", c.v) }
