package source

import (
	"github.com/NGnius/mps/internal/argschema"
	"github.com/NGnius/mps/internal/block"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

var filesSchema = argschema.MustCompile("files", `{
	"type": "object",
	"properties": {
		"folder": {"type": "boolean"},
		"re": {"type": "boolean"},
		"recursive": {"type": "boolean"}
	},
	"additionalProperties": false
}`)

// filesOp is `files(folder, re, recursive)`: lists matching audio
// files under folder and tag-probes each lazily as it's yielded. A
// filesystem watch is armed on first listing; if the watcher reports a
// change, the next Reset re-lists instead of replaying the stale list.
type filesOp struct {
	ops.Base
	folderExpr    block.Expr
	reExpr        block.Expr
	recursiveExpr block.Expr

	listed    bool
	paths     []string
	idx       int
	stale     bool
	stopWatch func()
}

func (o *filesOp) list() error {
	if o.listed {
		return nil
	}
	o.stale = false
	folder, err := o.evalStr(o.folderExpr, o.Ctx.Opts.MusicRoot)
	if err != nil {
		return err
	}
	re, err := o.evalStr(o.reExpr, "")
	if err != nil {
		return err
	}
	recursive := true
	if o.recursiveExpr != nil {
		v, err := o.recursiveExpr.Eval(o.Ctx)
		if err != nil {
			return err
		}
		recursive = v.Truthy()
	}
	paths, err := o.Ctx.Files.List(folder, re, recursive)
	if err != nil {
		return err
	}
	o.paths, o.idx, o.listed = paths, 0, true
	if o.stopWatch == nil {
		stop, werr := o.Ctx.Files.Watch(folder, recursive, func() { o.stale = true })
		if werr == nil && stop != nil {
			o.stopWatch = stop
		}
	}
	return nil
}

func (o *filesOp) evalStr(e block.Expr, def string) (string, error) {
	if e == nil {
		return def, nil
	}
	v, err := e.Eval(o.Ctx)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (o *filesOp) Advance() (ops.Result, bool) {
	if err := o.list(); err != nil {
		if o.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(err), true
	}
	if o.idx >= len(o.paths) {
		return ops.Result{}, false
	}
	path := o.paths[o.idx]
	o.idx++
	tags, err := o.Ctx.Tags.Probe(path)
	if err != nil {
		if o.Latch() {
			return ops.Result{}, false
		}
		return ops.Fail(err), true
	}
	item := value.NewItem()
	item.Set("filename", value.Str(path))
	for k, v := range tags {
		item.Set(k, v)
	}
	return ops.Ok(item), true
}

func (o *filesOp) SizeHint() ops.SizeHint {
	if o.listed {
		return ops.Exactly(len(o.paths) - o.idx)
	}
	return ops.AtLeast(0)
}
func (o *filesOp) IsResetable() bool { return true }
func (o *filesOp) Reset() error {
	o.idx = 0
	if o.stale {
		o.listed = false
	}
	return nil
}
func (o *filesOp) Clone() ops.Op {
	return &filesOp{folderExpr: o.folderExpr, reExpr: o.reExpr, recursiveExpr: o.recursiveExpr}
}
func (o *filesOp) String() string { return "files(...)" }

// FilesFactory recognises `files(folder, re, recursive)`, all
// arguments optional (folder defaults to the Context's music root).
type FilesFactory struct{}

func NewFilesFactory() *FilesFactory { return &FilesFactory{} }

func (f *FilesFactory) Name() string { return "files" }

func (f *FilesFactory) Build(_ *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	args, next, err := ParseArgs(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	if err := ValidateNames(filesSchema, args); err != nil {
		return nil, next, dict.Error(tokens, pos, err.Error())
	}
	folderExpr, _ := Named(args, 0, "folder")
	reExpr, _ := Named(args, 1, "re")
	recursiveExpr, _ := Named(args, 2, "recursive")
	return &filesOp{folderExpr: folderExpr, reExpr: reExpr, recursiveExpr: recursiveExpr}, next, nil
}
