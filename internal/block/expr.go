// Package block implements the item-block mini-expression language
// (§4.6): constants, variables, `item.field` access, unary/binary
// arithmetic, comparisons, short-circuiting logical operators,
// in-block assignment/removal, branching, and nested iteration over a
// previously `let`-bound operator. Every node is an Expr, evaluated
// against a Context's current variables and current item.
package block

import (
	"fmt"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/value"
)

// Expr is one node of the item-block expression tree.
type Expr interface {
	Eval(ctx *context.Context) (value.Primitive, error)
	String() string
}

// Const is a literal value (§4.6 precedence level 1).
type Const struct{ Val value.Primitive }

func (c *Const) Eval(*context.Context) (value.Primitive, error) { return c.Val, nil }
func (c *Const) String() string                                 { return c.Val.String() }

// VarRef reads a `let`-bound variable.
type VarRef struct{ Name string }

func (v *VarRef) Eval(ctx *context.Context) (value.Primitive, error) {
	bound, ok := ctx.GetVar(v.Name)
	if !ok {
		return value.Primitive{}, langerr.NewRuntime(v.String(), "undefined variable %q", v.Name)
	}
	if bound.Op != nil {
		return value.Primitive{}, langerr.NewRuntime(v.String(), "%q is bound to an operator, not a value", v.Name)
	}
	return bound.Value, nil
}
func (v *VarRef) String() string { return v.Name }

// FieldRef reads a field off the current item (the explicit `item.field`
// form; the bare-name form used by filter predicates is parsed
// separately by the filter package, which targets the field directly
// rather than through this expression grammar).
type FieldRef struct{ Field string }

func (f *FieldRef) Eval(ctx *context.Context) (value.Primitive, error) {
	cur := ctx.CurrentItem()
	if cur == nil {
		return value.Primitive{}, langerr.NewRuntime(f.String(), "item.%s referenced outside item evaluation", f.Field)
	}
	val, ok := cur.Get(f.Field)
	if !ok {
		return value.Empty(), nil
	}
	return val, nil
}
func (f *FieldRef) String() string { return "item." + f.Field }

// UnaryOp is `-x` or `!x` (§4.6 precedence level 2).
type UnaryOp struct {
	Not bool // true: logical not; false: numeric negate
	X   Expr
}

func (u *UnaryOp) Eval(ctx *context.Context) (value.Primitive, error) {
	x, err := u.X.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	if u.Not {
		return x.Not(), nil
	}
	out, err := x.Negate()
	if err != nil {
		return value.Primitive{}, langerr.NewRuntime(u.String(), "%s", err)
	}
	return out, nil
}
func (u *UnaryOp) String() string {
	if u.Not {
		return "!" + u.X.String()
	}
	return "-" + u.X.String()
}

// BinaryAdd is `x + y` (§4.6 precedence level 3).
type BinaryAdd struct{ X, Y Expr }

func (b *BinaryAdd) Eval(ctx *context.Context) (value.Primitive, error) {
	x, err := b.X.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	y, err := b.Y.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	out, err := x.Add(y)
	if err != nil {
		return value.Primitive{}, langerr.NewRuntime(b.String(), "%s", err)
	}
	return out, nil
}
func (b *BinaryAdd) String() string { return fmt.Sprintf("(%s + %s)", b.X, b.Y) }

// BinarySub is `x - y`.
type BinarySub struct{ X, Y Expr }

func (b *BinarySub) Eval(ctx *context.Context) (value.Primitive, error) {
	x, err := b.X.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	y, err := b.Y.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	out, err := x.Sub(y)
	if err != nil {
		return value.Primitive{}, langerr.NewRuntime(b.String(), "%s", err)
	}
	return out, nil
}
func (b *BinarySub) String() string { return fmt.Sprintf("(%s - %s)", b.X, b.Y) }

// CompareOp is `x == y`, `x < y`, etc. (§4.6 precedence level 4).
type CompareOp struct {
	Op   string // "==", "!=", "<", "<=", ">", ">="
	X, Y Expr
}

func (c *CompareOp) Eval(ctx *context.Context) (value.Primitive, error) {
	x, err := c.X.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	y, err := c.Y.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	if c.Op == "==" {
		return value.Bool(x.Equal(y)), nil
	}
	if c.Op == "!=" {
		return value.Bool(!x.Equal(y)), nil
	}
	cmp, err := x.Compare(y)
	if err != nil {
		return value.Primitive{}, langerr.NewRuntime(c.String(), "%s", err)
	}
	switch c.Op {
	case "<":
		return value.Bool(cmp < 0), nil
	case "<=":
		return value.Bool(cmp <= 0), nil
	case ">":
		return value.Bool(cmp > 0), nil
	case ">=":
		return value.Bool(cmp >= 0), nil
	default:
		return value.Primitive{}, langerr.NewRuntime(c.String(), "unknown comparison %q", c.Op)
	}
}
func (c *CompareOp) String() string { return fmt.Sprintf("(%s %s %s)", c.X, c.Op, c.Y) }

// LogicalAnd is `x && y` (§4.6 precedence level 5), short-circuiting.
type LogicalAnd struct{ X, Y Expr }

func (l *LogicalAnd) Eval(ctx *context.Context) (value.Primitive, error) {
	x, err := l.X.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	if !x.Truthy() {
		return value.Bool(false), nil
	}
	y, err := l.Y.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	return value.Bool(y.Truthy()), nil
}
func (l *LogicalAnd) String() string { return fmt.Sprintf("(%s && %s)", l.X, l.Y) }

// LogicalOr is `x || y` (§4.6 precedence level 6), short-circuiting.
type LogicalOr struct{ X, Y Expr }

func (l *LogicalOr) Eval(ctx *context.Context) (value.Primitive, error) {
	x, err := l.X.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	if x.Truthy() {
		return value.Bool(true), nil
	}
	y, err := l.Y.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	return value.Bool(y.Truthy()), nil
}
func (l *LogicalOr) String() string { return fmt.Sprintf("(%s || %s)", l.X, l.Y) }

// Assign is `name = expr` (§4.6 precedence level 7): stores Value under
// Name in the Context, evaluating to the stored value itself so
// assignments can appear mid-expression.
type Assign struct {
	Name  string
	Value Expr
}

func (a *Assign) Eval(ctx *context.Context) (value.Primitive, error) {
	val, err := a.Value.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	ctx.SetVar(a.Name, val)
	return val, nil
}
func (a *Assign) String() string { return fmt.Sprintf("%s = %s", a.Name, a.Value) }

// Remove is `remove name` (§4.6 precedence level 7): deletes a binding,
// evaluating to Empty.
type Remove struct{ Name string }

func (r *Remove) Eval(ctx *context.Context) (value.Primitive, error) {
	ctx.RemoveVar(r.Name)
	return value.Empty(), nil
}
func (r *Remove) String() string { return "remove " + r.Name }

// IfExpr is `if cond : then else else` (§4.6 precedence level 8):
// evaluates Cond and then whichever of Then/Else applies.
type IfExpr struct {
	Cond, Then, Else Expr
}

func (i *IfExpr) Eval(ctx *context.Context) (value.Primitive, error) {
	cond, err := i.Cond.Eval(ctx)
	if err != nil {
		return value.Primitive{}, err
	}
	if cond.Truthy() {
		return i.Then.Eval(ctx)
	}
	return i.Else.Eval(ctx)
}
func (i *IfExpr) String() string {
	return fmt.Sprintf("if %s : %s else %s", i.Cond, i.Then, i.Else)
}

// Iter is `iter op { body }` (§4.6 precedence level 9): drives the
// operator previously `let`-bound to OpVar to exhaustion, evaluating
// Body once per yielded item with that item as the current item, and
// evaluates to the count of items iterated.
type Iter struct {
	OpVar string
	Body  Expr
}

func (i *Iter) Eval(ctx *context.Context) (value.Primitive, error) {
	bound, ok := ctx.GetVar(i.OpVar)
	if !ok {
		return value.Primitive{}, langerr.NewRuntime(i.String(), "undefined variable %q", i.OpVar)
	}
	op, ok := bound.Op.(ops.Op)
	if !ok || op == nil {
		return value.Primitive{}, langerr.NewRuntime(i.String(), "%q is not bound to an operator", i.OpVar)
	}
	op.GiveContext(ctx)
	defer op.TakeContext()
	var count uint64
	for {
		res, ok := op.Advance()
		if !ok {
			break
		}
		if res.Err != nil {
			return value.Primitive{}, res.Err
		}
		ctx.PushItem(res.Item)
		_, err := i.Body.Eval(ctx)
		ctx.PopItem()
		if err != nil {
			return value.Primitive{}, err
		}
		count++
	}
	return value.UInt(count), nil
}
func (i *Iter) String() string { return fmt.Sprintf("iter %s { %s }", i.OpVar, i.Body) }
