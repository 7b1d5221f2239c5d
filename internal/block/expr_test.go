package block

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/lexer"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

type fakeItemOp struct {
	ops.Base
	items []*value.Item
	idx   int
}

func (f *fakeItemOp) Advance() (ops.Result, bool) {
	if f.idx >= len(f.items) {
		return ops.Result{}, false
	}
	it := f.items[f.idx]
	f.idx++
	return ops.Ok(it), true
}
func (f *fakeItemOp) SizeHint() ops.SizeHint { return ops.Exactly(len(f.items) - f.idx) }
func (f *fakeItemOp) IsResetable() bool      { return true }
func (f *fakeItemOp) Reset() error           { f.idx = 0; return nil }
func (f *fakeItemOp) Clone() ops.Op          { return &fakeItemOp{items: f.items} }
func (f *fakeItemOp) String() string         { return "fake(...)" }

func lex(t *testing.T, src string) []token.Token {
	t.Helper()
	l := lexer.New(strings.NewReader(src))
	var q []token.Token
	err := l.ReadLine(&q)
	require.NoError(t, err)
	// drop trailing EOL for expr-only parsing convenience
	return q[:len(q)-1]
}

func TestExprArithmeticAndCompare(t *testing.T) {
	tokens := lex(t, "1 + 2 == 3")
	expr, pos, err := ParseExpr(tokens, 0)
	require.NoError(t, err)
	require.Equal(t, len(tokens), pos)

	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	out, err := expr.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, out.Truthy())
}

func TestExprLogicalShortCircuitAnd(t *testing.T) {
	tokens := lex(t, "false && item.missing")
	expr, _, err := ParseExpr(tokens, 0)
	require.NoError(t, err)

	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	out, err := expr.Eval(ctx)
	require.NoError(t, err)
	assert.False(t, out.Truthy())
}

func TestExprFieldRef(t *testing.T) {
	tokens := lex(t, "item.year >= 2000")
	expr, _, err := ParseExpr(tokens, 0)
	require.NoError(t, err)

	it := value.NewItem()
	it.Set("year", value.UInt(2010))
	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	ctx.PushItem(it)
	out, err := expr.Eval(ctx)
	require.NoError(t, err)
	assert.True(t, out.Truthy())
}

func TestExprUndefinedVariableErrors(t *testing.T) {
	tokens := lex(t, "unknown_var")
	expr, _, err := ParseExpr(tokens, 0)
	require.NoError(t, err)

	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	_, err = expr.Eval(ctx)
	require.Error(t, err)
}

func TestExprAssignStoresAndEvaluatesToValue(t *testing.T) {
	tokens := lex(t, "x = 5")
	expr, pos, err := ParseExpr(tokens, 0)
	require.NoError(t, err)
	require.Equal(t, len(tokens), pos)

	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	out, err := expr.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5", out.String())
	bound, ok := ctx.GetVar("x")
	require.True(t, ok)
	assert.Equal(t, "5", bound.Value.String())
}

func TestExprRemoveDeletesVariable(t *testing.T) {
	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	ctx.SetVar("x", value.UInt(1))

	tokens := lex(t, "remove x")
	expr, _, err := ParseExpr(tokens, 0)
	require.NoError(t, err)
	_, err = expr.Eval(ctx)
	require.NoError(t, err)

	_, ok := ctx.GetVar("x")
	assert.False(t, ok)
}

func TestExprRemoveNameStillUsableAsVariable(t *testing.T) {
	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	ctx.SetVar("remove", value.UInt(9))

	tokens := lex(t, "remove")
	expr, pos, err := ParseExpr(tokens, 0)
	require.NoError(t, err)
	require.Equal(t, len(tokens), pos)
	out, err := expr.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, "9", out.String())
}

func TestExprIfBranchesOnCondition(t *testing.T) {
	ctx := context.New(context.Options{}, nil, nil, nil, nil)

	tokens := lex(t, "if true : 1 else 2")
	expr, pos, err := ParseExpr(tokens, 0)
	require.NoError(t, err)
	require.Equal(t, len(tokens), pos)
	out, err := expr.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", out.String())

	tokens = lex(t, "if false : 1 else 2")
	expr, _, err = ParseExpr(tokens, 0)
	require.NoError(t, err)
	out, err = expr.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", out.String())
}

func TestExprIterDrivesBoundOperatorAndCounts(t *testing.T) {
	items := []*value.Item{value.NewItem(), value.NewItem()}
	items[0].Set("n", value.UInt(1))
	items[1].Set("n", value.UInt(2))

	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	ctx.SetVarOp("xs", ops.Op(&fakeItemOp{items: items}))

	tokens := lex(t, "iter xs { item.n }")
	expr, pos, err := ParseExpr(tokens, 0)
	require.NoError(t, err)
	require.Equal(t, len(tokens), pos)

	out, err := expr.Eval(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", out.String())
}

func TestExprIterUnboundVariableErrors(t *testing.T) {
	ctx := context.New(context.Options{}, nil, nil, nil, nil)
	ctx.SetVar("xs", value.UInt(1))

	tokens := lex(t, "iter xs { item.n }")
	expr, _, err := ParseExpr(tokens, 0)
	require.NoError(t, err)
	_, err = expr.Eval(ctx)
	require.Error(t, err)
}
