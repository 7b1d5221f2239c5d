package source

import (
	"github.com/NGnius/mps/internal/block"
	"github.com/NGnius/mps/internal/collab"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// mpdOp is `mpd(term=value, ...)`: a one-shot search against the
// Context's MPD collaborator, run on first Advance. Its results are
// materialised in a single network round trip (the MPD wire protocol
// returns the whole result set at once), so replay after that point is
// cheap and IsResetable is simply true.
type mpdOp struct {
	ops.Base
	addrExpr block.Expr
	terms    []termArg
	ran      bool
	rows     []*value.Item
	idx      int
}

type termArg struct {
	term string
	expr block.Expr
}

func (o *mpdOp) Advance() (ops.Result, bool) {
	if !o.ran {
		o.ran = true
		addr := o.Ctx.Opts.DefaultMPD
		if o.addrExpr != nil {
			v, err := o.addrExpr.Eval(o.Ctx)
			if err != nil {
				if o.Latch() {
					return ops.Result{}, false
				}
				return ops.Fail(err), true
			}
			addr = v.String()
		}
		params := make([]collab.TermValue, 0, len(o.terms))
		for _, t := range o.terms {
			v, err := t.expr.Eval(o.Ctx)
			if err != nil {
				if o.Latch() {
					return ops.Result{}, false
				}
				return ops.Fail(err), true
			}
			params = append(params, collab.TermValue{Term: t.term, Value: v.String()})
		}
		rows, err := o.Ctx.MPD.Search(addr, params)
		if err != nil {
			if o.Latch() {
				return ops.Result{}, false
			}
			return ops.Fail(err), true
		}
		o.rows = rows
	}
	if o.idx >= len(o.rows) {
		return ops.Result{}, false
	}
	item := o.rows[o.idx]
	o.idx++
	return ops.Ok(item), true
}

func (o *mpdOp) SizeHint() ops.SizeHint {
	if o.ran {
		return ops.Exactly(len(o.rows) - o.idx)
	}
	return ops.AtLeast(0)
}
func (o *mpdOp) IsResetable() bool { return true }
func (o *mpdOp) Reset() error      { o.idx = 0; return nil }
func (o *mpdOp) Clone() ops.Op     { return &mpdOp{addrExpr: o.addrExpr, terms: o.terms} }
func (o *mpdOp) String() string    { return "mpd(...)" }

// MPDFactory recognises `mpd(addr, term=value, ...)`: every named
// argument other than "addr" is forwarded as a search term/value pair,
// matching the original vocabulary's term names (any, file, base,
// lastmod, or a tag name).
type MPDFactory struct{}

func NewMPDFactory() *MPDFactory { return &MPDFactory{} }

func (f *MPDFactory) Name() string { return "mpd" }

func (f *MPDFactory) Build(_ *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	args, next, err := ParseArgs(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	addrExpr, _ := Named(args, 0, "addr")
	var terms []termArg
	for _, a := range args {
		if a.Name == "" || a.Name == "addr" {
			continue
		}
		terms = append(terms, termArg{term: a.Name, expr: a.Expr})
	}
	return &mpdOp{addrExpr: addrExpr, terms: terms}, next, nil
}
