package ops

import "github.com/NGnius/mps/internal/context"

// Base implements the ctx-ownership plumbing and the single-error latch
// shared by nearly every Op, the way the original implementation's
// enter/escape pair did. Concrete operators embed Base and only need to
// implement Advance, SizeHint, Clone, String, and (when resetable)
// IsResetable/Reset.
type Base struct {
	Ctx     *context.Context
	Errored bool
}

func (b *Base) GiveContext(ctx *context.Context) { b.Ctx = ctx }
func (b *Base) TakeContext() *context.Context    { c := b.Ctx; b.Ctx = nil; return c }

// IsResetable defaults to false; operators backed by a rewindable
// upstream override this.
func (b *Base) IsResetable() bool { return false }

// Reset defaults to returning nil without rewinding anything; callers
// must check IsResetable first.
func (b *Base) Reset() error { return nil }

// Latch marks the single-error boundary: returns false (and records the
// error) the first time it is called, so the caller yields that error,
// and true on every subsequent call so the caller knows to stop yielding.
func (b *Base) Latch() (alreadyErrored bool) {
	if b.Errored {
		return true
	}
	b.Errored = true
	return false
}
