package ops

import "github.com/NGnius/mps/internal/context"

// Unary is embedded by every single-upstream wrapper (filters, sorters):
// it forwards context ownership and reset delegation to Upstream, since
// Go has no borrow checker to enforce the original's move-typed
// ownership — a pipeline's Context is instead a single shared pointer
// toggled to nil at the pipeline boundary by Give/TakeContext, which is
// equivalent for a single-threaded, cooperatively-lazy engine (§5).
type Unary struct {
	Base
	Upstream Op
}

func (u *Unary) GiveContext(ctx *context.Context) {
	u.Base.GiveContext(ctx)
	u.Upstream.GiveContext(ctx)
}

func (u *Unary) TakeContext() *context.Context {
	c := u.Base.TakeContext()
	u.Upstream.TakeContext()
	return c
}

func (u *Unary) IsResetable() bool { return u.Upstream.IsResetable() }
func (u *Unary) Reset() error      { return u.Upstream.Reset() }
