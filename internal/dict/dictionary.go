// Package dict implements the Dictionary (§4.2): a registry of
// source-statement factories keyed by name. ParseSource looks up the
// factory registered under a statement's leading Name by exact match and
// commits to building from it (propagating any syntax error). Factories
// are not tried in turn, so registration order plays no part in the
// lookup; a factory added under an already-registered name replaces the
// earlier one.
package dict

import (
	"fmt"

	"github.com/NGnius/mps/internal/filter"
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/sort"
	"github.com/NGnius/mps/internal/token"
)

// Factory recognises and builds one kind of source statement.
type Factory interface {
	// Name is the bare identifier this factory claims, e.g. "sql".
	Name() string

	// Build consumes "(" [args] ")" starting at pos (pos itself is the
	// token right after the matched Name) and returns the built
	// operator and the position just past the closing ")".
	Build(d *Dictionary, tokens []token.Token, pos int) (ops.Op, int, error)
}

// AssignFactory builds the `let NAME = expr` statement, the one
// vocabulary entry that isn't shaped like `Name "(" args ")"`. It is
// registered separately from the ordinary Factory set since ParseSource
// must recognise it by its leading LET token rather than by name lookup.
type AssignFactory interface {
	// BuildAssign consumes `NAME "=" expr` starting right after the
	// `let` keyword and returns the built operator and the position
	// just past the assignment expression.
	BuildAssign(d *Dictionary, tokens []token.Token, pos int) (ops.Op, int, error)
}

// Dictionary holds the ordered factory list and is also where postfix
// filter/sort wrapping is applied, since both are grammatically
// `source { postfix }` regardless of which factory built the source.
type Dictionary struct {
	factories []Factory
	byName    map[string]Factory
	assign    AssignFactory
}

// New returns an empty Dictionary.
func New() *Dictionary {
	return &Dictionary{byName: make(map[string]Factory)}
}

// Add registers f, returning the Dictionary for chaining (mirrors the
// vocabulary-building style of the teacher's decorator registry and the
// original implementation's fluent `.add(...)` builder).
func (d *Dictionary) Add(f Factory) *Dictionary {
	d.factories = append(d.factories, f)
	d.byName[f.Name()] = f
	return d
}

// AddAssign registers the `let` statement factory, returning the
// Dictionary for chaining.
func (d *Dictionary) AddAssign(f AssignFactory) *Dictionary {
	d.assign = f
	return d
}

// ParseSource parses one `source { postfix }` starting at pos: either
// `let NAME = expr` or a `Name "(" args ")"` recognised by a registered
// factory, followed by zero or more `.( filter )`, `~( sort )`, or
// `.sort( sort )` wraps.
func (d *Dictionary) ParseSource(tokens []token.Token, pos int) (ops.Op, int, error) {
	if pos < len(tokens) && tokens[pos].Type == token.LET {
		if d.assign == nil {
			return nil, pos, unexpected(tokens, pos)
		}
		op, next, err := d.assign.BuildAssign(d, tokens, pos+1)
		if err != nil {
			return nil, next, err
		}
		return d.parsePostfixes(op, tokens, next)
	}

	if pos >= len(tokens) || tokens[pos].Type != token.NAME {
		return nil, pos, unexpected(tokens, pos)
	}
	f, ok := d.byName[tokens[pos].Text]
	if !ok {
		return nil, pos, unexpected(tokens, pos)
	}
	if pos+1 >= len(tokens) || tokens[pos+1].Type != token.OPEN_BRACKET {
		return nil, pos, unexpected(tokens, pos+1)
	}

	op, next, err := f.Build(d, tokens, pos+2)
	if err != nil {
		return nil, next, err
	}
	return d.parsePostfixes(op, tokens, next)
}

func (d *Dictionary) parsePostfixes(op ops.Op, tokens []token.Token, pos int) (ops.Op, int, error) {
	for pos < len(tokens) {
		switch {
		case tokens[pos].Type == token.DOT && peekAt(tokens, pos+1) == token.NAME && tokens[pos+1].Text == "sort" && peekAt(tokens, pos+2) == token.OPEN_BRACKET:
			wrapped, next, err := sort.Parse(tokens, pos+3, op)
			if err != nil {
				return nil, next, err
			}
			op, pos = wrapped, next
		case tokens[pos].Type == token.DOT && peekAt(tokens, pos+1) == token.OPEN_BRACKET:
			wrapped, next, err := filter.Parse(tokens, pos+2, op, d.ParseSource)
			if err != nil {
				return nil, next, err
			}
			op, pos = wrapped, next
		case tokens[pos].Type == token.TILDE && peekAt(tokens, pos+1) == token.OPEN_BRACKET:
			wrapped, next, err := sort.Parse(tokens, pos+2, op)
			if err != nil {
				return nil, next, err
			}
			op, pos = wrapped, next
		default:
			return op, pos, nil
		}
	}
	return op, pos, nil
}

func peekAt(tokens []token.Token, pos int) token.Type {
	if pos < 0 || pos >= len(tokens) {
		return token.EOF
	}
	return tokens[pos].Type
}

func unexpected(tokens []token.Token, pos int) error {
	if pos < len(tokens) {
		return &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokens[pos]}
	}
	line := 0
	if len(tokens) > 0 {
		line = tokens[len(tokens)-1].Pos.Line
	}
	return &langerr.SyntaxError{Line: line, Token: token.New(token.EOF, "", line, 0)}
}

// ExpectComma consumes a COMMA token, used between args.
func ExpectComma(tokens []token.Token, pos int) (int, error) {
	if pos >= len(tokens) || tokens[pos].Type != token.COMMA {
		return pos, unexpected(tokens, pos)
	}
	return pos + 1, nil
}

// ExpectClose consumes a CLOSE_BRACKET.
func ExpectClose(tokens []token.Token, pos int) (int, error) {
	if pos >= len(tokens) || tokens[pos].Type != token.CLOSE_BRACKET {
		return pos, unexpected(tokens, pos)
	}
	return pos + 1, nil
}

// Error is a small helper for building a syntax error with an extra
// explanation from within a factory (e.g. an unknown named argument); the
// returned error wraps a *langerr.SyntaxError.
func Error(tokens []token.Token, pos int, why string) error {
	base := unexpected(tokens, pos).(*langerr.SyntaxError)
	return fmt.Errorf("%w (%s)", base, why)
}
