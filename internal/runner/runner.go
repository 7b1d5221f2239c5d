// Package runner drives a program: tokenizing one statement at a time
// (spanning physical lines as needed when brackets are left open),
// parsing it against a Dictionary, and draining the resulting operator
// against a shared Context, line-tagging any runtime error that reaches
// the surface with line 0 still on it (§4.7, §7).
package runner

import (
	"errors"
	"io"

	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/lexer"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// Runner executes statements one at a time against a shared Context.
type Runner struct {
	lex  *lexer.Lexer
	dict *dict.Dictionary
	ctx  *context.Context
}

// New builds a Runner reading statements from src.
func New(src io.Reader, d *dict.Dictionary, ctx *context.Context) *Runner {
	return &Runner{lex: lexer.New(src), dict: d, ctx: ctx}
}

// Context returns the Context statements are run against, so a caller
// can inspect variables bound by earlier statements.
func (r *Runner) Context() *context.Context { return r.ctx }

// nextStatementTokens accumulates tokens until a top-level EOL (bracket
// depth zero), spanning physical lines as needed; it returns the
// statement's tokens (EOL dropped) and its starting line, or io.EOF when
// the input is exhausted with no more statements.
func (r *Runner) nextStatementTokens() ([]token.Token, int, error) {
	var stmt []token.Token
	depth := 0
	startLine := -1
	for {
		var line []token.Token
		err := r.lex.ReadLine(&line)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, err
		}
		atEOF := errors.Is(err, io.EOF)
		if len(line) == 0 {
			if atEOF {
				if len(stmt) == 0 {
					return nil, 0, io.EOF
				}
				return stmt, startLine, nil
			}
			continue
		}
		for _, t := range line {
			if t.Type == token.EOL {
				continue
			}
			if startLine == -1 {
				startLine = t.Pos.Line
			}
			switch t.Type {
			case token.OPEN_BRACKET:
				depth++
			case token.CLOSE_BRACKET:
				depth--
			}
			stmt = append(stmt, t)
		}
		if atEOF || (depth <= 0 && len(stmt) > 0) {
			return stmt, startLine, nil
		}
	}
}

// Next parses and fully drains the next statement, returning its yielded
// items (if any) and the first error encountered (syntax or runtime),
// with line 0 runtime errors tagged to the statement's starting line.
// ok is false once the input is exhausted.
func (r *Runner) Next() (items []*value.Item, err error, ok bool) {
	tokens, line, rerr := r.nextStatementTokens()
	if rerr != nil {
		if errors.Is(rerr, io.EOF) {
			return nil, nil, false
		}
		return nil, rerr, true
	}

	op, _, perr := r.dict.ParseSource(tokens, 0)
	if perr != nil {
		return nil, tagLine(perr, line), true
	}

	op.GiveContext(r.ctx)
	defer op.TakeContext()
	for {
		res, more := op.Advance()
		if !more {
			break
		}
		if res.Err != nil {
			return items, tagLine(res.Err, line), true
		}
		items = append(items, res.Item)
	}
	return items, nil, true
}

// RunAll drains every statement in order, stopping at the first error.
func (r *Runner) RunAll() ([][]*value.Item, error) {
	var all [][]*value.Item
	for {
		items, err, ok := r.Next()
		if !ok {
			return all, nil
		}
		if err != nil {
			return all, err
		}
		all = append(all, items)
	}
}

func tagLine(err error, line int) error {
	var rt *langerr.RuntimeError
	if errors.As(err, &rt) && rt.Line == 0 {
		return rt.WithLine(line)
	}
	return err
}
