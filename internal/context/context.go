// Package context implements the per-program mutable environment (§3
// Context) threaded through every operator: variables, collaborator
// handles, the current-item stack used by item-block evaluation, and
// initialisation options.
package context

import (
	"math/rand"

	"github.com/NGnius/mps/internal/collab"
	"github.com/NGnius/mps/internal/value"
)

// Options carries the initialisation flags a program's Context is built
// with: the music root directory consumed by sql_init() and files(), a
// generate-database flag (carried here but not read by sql_init(), whose
// generate argument defaults to false), the default MPD address, plus an
// optional deterministic shuffle seed.
type Options struct {
	MusicRoot   string
	GenerateDB  bool
	DefaultMPD  string
	ShuffleSeed *int64
}

// Variable is a stored `let` binding: exactly one of a Primitive value or
// a stashed operator (opaque to this package — the block/iter evaluator
// that stores it is the one that knows how to advance it again).
type Variable struct {
	Value Primitive
	Op    any // holds an ops.Op when the binding is an operator, nil otherwise
}

// Primitive aliases value.Primitive so callers don't need two imports
// for the common case of reading a variable's scalar value.
type Primitive = value.Primitive

// Context is single-threaded and exclusively borrowed by one operator at
// a time; ownership moves via the Op capability set's GiveContext/
// TakeContext (§3 invariants).
type Context struct {
	Vars map[string]Variable

	SQL   collab.SQL
	MPD   collab.MPD
	Tags  collab.TagProbe
	Files collab.FileWalker
	Bliss collab.BlissProvider // nil unless the embedder configures audio-distance sorting

	Opts Options
	Rand *rand.Rand

	itemStack []*value.Item
}

// New builds a fresh Context from the given collaborators and options.
func New(opts Options, sqlc collab.SQL, mpd collab.MPD, tags collab.TagProbe, files collab.FileWalker) *Context {
	var rng *rand.Rand
	if opts.ShuffleSeed != nil {
		rng = rand.New(rand.NewSource(*opts.ShuffleSeed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Context{
		Vars:  make(map[string]Variable),
		SQL:   sqlc,
		MPD:   mpd,
		Tags:  tags,
		Files: files,
		Opts:  opts,
		Rand:  rng,
	}
}

// SetVar stores a scalar `let` binding.
func (c *Context) SetVar(name string, v value.Primitive) {
	c.Vars[name] = Variable{Value: v}
}

// SetVarOp stores an operator `let` binding (the assignment source
// factory stashes an un-advanced operator tree rather than a value).
func (c *Context) SetVarOp(name string, op any) {
	c.Vars[name] = Variable{Op: op}
}

// RemoveVar implements the item-block's `remove name`.
func (c *Context) RemoveVar(name string) {
	delete(c.Vars, name)
}

// GetVar looks up a binding by name.
func (c *Context) GetVar(name string) (Variable, bool) {
	v, ok := c.Vars[name]
	return v, ok
}

// PushItem makes item the "current item" for nested item-block
// evaluation (field access, iter blocks).
func (c *Context) PushItem(item *value.Item) {
	c.itemStack = append(c.itemStack, item)
}

// PopItem restores the previous current item.
func (c *Context) PopItem() {
	if len(c.itemStack) > 0 {
		c.itemStack = c.itemStack[:len(c.itemStack)-1]
	}
}

// CurrentItem returns the innermost active item, or nil outside any
// item-block evaluation.
func (c *Context) CurrentItem() *value.Item {
	if len(c.itemStack) == 0 {
		return nil
	}
	return c.itemStack[len(c.itemStack)-1]
}
