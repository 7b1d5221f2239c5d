package source

import (
	"github.com/NGnius/mps/internal/argschema"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
)

var sqlInitSchema = argschema.MustCompile("sql_init", `{
	"type": "object",
	"properties": {
		"generate": {"type": "boolean"},
		"folder": {"type": "boolean"}
	},
	"additionalProperties": false
}`)

// sqlInitOp is `sql_init(generate, folder)`: a side-effecting, empty
// stream that opens (and optionally (re)populates) the music database,
// performed the first time it's advanced.
type sqlInitOp struct {
	ops.Base
	generateExpr Arg
	folderExpr   Arg
	done         bool
}

func (o *sqlInitOp) Advance() (ops.Result, bool) {
	if o.done {
		return ops.Result{}, false
	}
	o.done = true
	generate := false
	if o.generateExpr.Expr != nil {
		val, err := o.generateExpr.Expr.Eval(o.Ctx)
		if err != nil {
			if o.Latch() {
				return ops.Result{}, false
			}
			return ops.Fail(err), true
		}
		generate = val.Truthy()
	}
	folder := o.Ctx.Opts.MusicRoot
	if o.folderExpr.Expr != nil {
		val, err := o.folderExpr.Expr.Eval(o.Ctx)
		if err != nil {
			if o.Latch() {
				return ops.Result{}, false
			}
			return ops.Fail(err), true
		}
		folder = val.String()
	}
	if err := o.Ctx.SQL.InitLibrary(generate, folder); err != nil {
		if o.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(err), true
	}
	return ops.Result{}, false
}

func (o *sqlInitOp) SizeHint() ops.SizeHint { return ops.Exactly(0) }
func (o *sqlInitOp) IsResetable() bool      { return true }
func (o *sqlInitOp) Reset() error           { o.done = false; return nil }
func (o *sqlInitOp) Clone() ops.Op {
	return &sqlInitOp{generateExpr: o.generateExpr, folderExpr: o.folderExpr}
}
func (o *sqlInitOp) String() string { return "sql_init(...)" }

// SQLInitFactory recognises `sql_init(generate, folder)`, both arguments
// optional: generate defaults to false, folder defaults to the
// Context's configured music root.
type SQLInitFactory struct{}

func NewSQLInitFactory() *SQLInitFactory { return &SQLInitFactory{} }

func (f *SQLInitFactory) Name() string { return "sql_init" }

func (f *SQLInitFactory) Build(_ *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	args, next, err := ParseArgs(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	if err := ValidateNames(sqlInitSchema, args); err != nil {
		return nil, next, dict.Error(tokens, pos, err.Error())
	}
	genExpr, _ := Named(args, 0, "generate")
	folderExpr, _ := Named(args, 1, "folder")
	return &sqlInitOp{generateExpr: Arg{Expr: genExpr}, folderExpr: Arg{Expr: folderExpr}}, next, nil
}
