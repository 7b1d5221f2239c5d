// Package filter implements the postfix `.( ... )` filter grammar of
// §4.4: field predicates (with optional/required-field modifiers, like,
// matches, and the supplemented fuzzy predicate), unique and unique-by-
// field dedupe, index and range stream slicing, nonempty, and the
// if/else item replace form. Parse wraps an already-built upstream
// operator the way the dictionary's postfix loop calls it.
package filter

import (
	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// SourceParser parses one full `source { postfix }` tree starting at
// pos, returning the built operator and the position just past it. The
// dictionary's ParseSource method satisfies this without filter needing
// to import dict (which already imports filter).
type SourceParser func(tokens []token.Token, pos int) (ops.Op, int, error)

// Predicate is a per-item boolean test used by field predicates, the
// or-composition `||` grammar, and the replace filter's condition.
type Predicate interface {
	Match(ctx *context.Context, item *value.Item) (bool, error)
	String() string
}

// orPredicate evaluates its terms left to right, short-circuiting on the
// first match, the way `||` does in the item-block expression grammar.
type orPredicate struct{ terms []Predicate }

func (o *orPredicate) Match(ctx *context.Context, item *value.Item) (bool, error) {
	for _, t := range o.terms {
		ok, err := t.Match(ctx, item)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (o *orPredicate) String() string {
	s := ""
	for i, t := range o.terms {
		if i > 0 {
			s += " || "
		}
		s += t.String()
	}
	return s
}

// Parse parses the contents of a `.( ... )` starting right after the
// opening "(" and returns upstream wrapped in the filter it describes,
// plus the position just past the closing ")".
func Parse(tokens []token.Token, pos int, upstream ops.Op, parseSource SourceParser) (ops.Op, int, error) {
	if peek(tokens, pos) == token.CLOSE_BRACKET {
		// x.() ≡ x: no wrapping at all.
		return upstream, pos + 1, nil
	}
	if peek(tokens, pos) == token.IF {
		return parseReplace(tokens, pos+1, upstream, parseSource)
	}

	pred, exclusive, next, err := parseTerm(tokens, pos, upstream)
	if err != nil {
		return nil, next, err
	}
	if exclusive != nil {
		final, err := expectClose(tokens, next)
		return exclusive, final, err
	}

	terms := []Predicate{pred}
	for peek(tokens, next) == token.PIPE && peek(tokens, next+1) == token.PIPE {
		next2, p2, _, err := parseOrOperand(tokens, next+2, upstream)
		if err != nil {
			return nil, next2, err
		}
		terms = append(terms, p2)
		next = next2
	}
	final, err := expectClose(tokens, next)
	if err != nil {
		return nil, final, err
	}
	var combined Predicate
	if len(terms) == 1 {
		combined = terms[0]
	} else {
		combined = &orPredicate{terms: terms}
	}
	return &predicateFilter{Unary: ops.Unary{Upstream: upstream}, pred: combined}, final, nil
}

// parseOrOperand parses one `||`-joined operand, rejecting exclusive
// forms (unique, index, range) that can't be combined
// into a boolean predicate.
func parseOrOperand(tokens []token.Token, pos int, upstream ops.Op) (int, Predicate, ops.Op, error) {
	pred, exclusive, next, err := parseTerm(tokens, pos, upstream)
	if err != nil {
		return next, nil, nil, err
	}
	if exclusive != nil {
		return next, nil, nil, &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokens[pos]}
	}
	return next, pred, nil, nil
}

func parseReplace(tokens []token.Token, pos int, upstream ops.Op, parseSource SourceParser) (ops.Op, int, error) {
	pred, exclusive, next, err := parseTerm(tokens, pos, upstream)
	if err != nil {
		return nil, next, err
	}
	for peek(tokens, next) == token.PIPE && peek(tokens, next+1) == token.PIPE {
		next2, p2, _, err := parseOrOperand(tokens, next+2, upstream)
		if err != nil {
			return nil, next2, err
		}
		pred = &orPredicate{terms: []Predicate{pred, p2}}
		next = next2
	}
	if exclusive != nil {
		return nil, next, &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokens[pos]}
	}
	next, err = expect(tokens, next, token.COLON)
	if err != nil {
		return nil, next, err
	}
	thenOp, next, err := parseSource(tokens, next)
	if err != nil {
		return nil, next, err
	}
	var elseOp ops.Op
	if peek(tokens, next) == token.ELSE {
		elseOp, next, err = parseSource(tokens, next+1)
		if err != nil {
			return nil, next, err
		}
	}
	final, err := expectClose(tokens, next)
	if err != nil {
		return nil, final, err
	}
	return &replaceFilter{
		base:     ops.Base{},
		upstream: upstream,
		pred:     pred,
		then:     thenOp,
		elseOp:   elseOp,
	}, final, nil
}

func peek(tokens []token.Token, pos int) token.Type {
	if pos < 0 || pos >= len(tokens) {
		return token.EOF
	}
	return tokens[pos].Type
}

func expect(tokens []token.Token, pos int, want token.Type) (int, error) {
	if peek(tokens, pos) != want {
		return pos, unexpected(tokens, pos)
	}
	return pos + 1, nil
}

func expectClose(tokens []token.Token, pos int) (int, error) {
	return expect(tokens, pos, token.CLOSE_BRACKET)
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
