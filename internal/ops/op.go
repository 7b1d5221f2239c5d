// Package ops defines the Op capability set (§3 Operator node): every AST
// node — source, filter, sorter, or item-block sub-operator — implements
// Op and is a lazy producer of Result.
package ops

import (
	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/value"
)

// Result is one yielded element of an Op's lazy sequence: either an item
// or a runtime error. Advance distinguishes "a Result was produced" from
// "the sequence is exhausted" via its second return value, so a Result
// with a non-nil Err is still a single produced element (the terminal
// one — see the single-error invariant).
type Result struct {
	Item *value.Item
	Err  error
}

// Ok wraps a successfully produced item.
func Ok(item *value.Item) Result { return Result{Item: item} }

// Fail wraps a runtime error as a produced (terminal) result.
func Fail(err error) Result { return Result{Err: err} }

// SizeHint never over-promises; Upper of nil means unknown.
type SizeHint struct {
	Lower int
	Upper *int
}

func Exactly(n int) SizeHint { return SizeHint{Lower: n, Upper: &n} }
func AtLeast(n int) SizeHint { return SizeHint{Lower: n} }

// Op is the capability set every Language node exposes (§3, §9): lazy
// advance, conservative reset, and explicit context ownership transfer so
// exactly one operator borrows the shared Context at a time.
type Op interface {
	// Advance pulls the next Result, or reports ok=false when the
	// sequence is exhausted. After the first Err is yielded, every
	// subsequent call must return ok=false (single-error invariant).
	Advance() (res Result, ok bool)

	// SizeHint estimates remaining output.
	SizeHint() SizeHint

	// IsResetable reports whether Reset can rewind this operator.
	// Conservatively false where an upstream collaborator can't be
	// rewound (e.g. sql() or song() before its query has run).
	IsResetable() bool

	// Reset rewinds a resetable operator to its initial state.
	Reset() error

	// GiveContext installs the shared Context this operator (and its
	// children) will use until TakeContext is called.
	GiveContext(ctx *context.Context)

	// TakeContext relinquishes ownership of the Context to the caller,
	// e.g. so a parent can hand it to the next child in a pipeline.
	TakeContext() *context.Context

	// Clone returns an independent copy sharing no mutable state
	// (used by repeat() and by sorters that must re-run upstream).
	Clone() Op

	// String is the operator's printable form, used as the `op`
	// reference on RuntimeError.
	String() string
}
