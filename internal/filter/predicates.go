package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/NGnius/mps/internal/block"
	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// parseTerm parses one filter term: either a Predicate usable inside an
// or-composition, or an exclusive op (unique, index, range) that can
// only stand alone.
func parseTerm(tokens []token.Token, pos int, upstream ops.Op) (Predicate, ops.Op, int, error) {
	switch peek(tokens, pos) {
	case token.EXCLAMATION:
		n, next, err := parseUint(tokens, pos+1)
		if err != nil {
			return nil, nil, next, err
		}
		return nil, &indexDropFilter{Unary: ops.Unary{Upstream: upstream}, n: n}, next, nil
	case token.NUMBER:
		n, next, err := parseUint(tokens, pos)
		if err != nil {
			return nil, nil, next, err
		}
		if peek(tokens, next) == token.RANGE || peek(tokens, next) == token.RANGE_INCL {
			lower := n
			return parseRangeFrom(tokens, next, &lower, upstream)
		}
		return nil, &indexFilter{Unary: ops.Unary{Upstream: upstream}, n: n}, next, nil
	case token.RANGE, token.RANGE_INCL:
		return parseRangeFrom(tokens, pos, nil, upstream)
	case token.NAME:
		text := value.FoldCase(tokens[pos].Text)
		switch text {
		case "unique":
			return parseUnique(tokens, pos+1, upstream)
		case "nonempty":
			next, err := expect(tokens, pos+1, token.NAME)
			if err != nil {
				return nil, nil, next, err
			}
			field := tokens[pos+1].Text
			return &nonemptyPredicate{field: field}, nil, next, nil
		default:
			return parseFieldPredicate(tokens, pos)
		}
	default:
		return nil, nil, pos, unexpected(tokens, pos)
	}
}

func parseUint(tokens []token.Token, pos int) (uint64, int, error) {
	if peek(tokens, pos) != token.NUMBER {
		return 0, pos, unexpected(tokens, pos)
	}
	n, err := strconv.ParseUint(tokens[pos].Text, 10, 64)
	if err != nil {
		return 0, pos, unexpected(tokens, pos)
	}
	return n, pos + 1, nil
}

func parseRangeFrom(tokens []token.Token, pos int, lower *uint64, upstream ops.Op) (Predicate, ops.Op, int, error) {
	inclusive := tokens[pos].Type == token.RANGE_INCL
	pos++
	var upper *uint64
	if peek(tokens, pos) == token.NUMBER {
		u, next, err := parseUint(tokens, pos)
		if err != nil {
			return nil, nil, next, err
		}
		upper = &u
		pos = next
	}
	return nil, &rangeFilter{Unary: ops.Unary{Upstream: upstream}, lower: lower, upper: upper, inclusive: inclusive}, pos, nil
}

func parseUnique(tokens []token.Token, pos int, upstream ops.Op) (Predicate, ops.Op, int, error) {
	if peek(tokens, pos) == token.NAME {
		field := tokens[pos].Text
		return nil, &uniqueFieldFilter{Unary: ops.Unary{Upstream: upstream}, field: field, seen: make(map[string]bool)}, pos + 1, nil
	}
	return nil, &uniqueFilter{Unary: ops.Unary{Upstream: upstream}, seen: make(map[[16]byte]bool)}, pos, nil
}

var compareOps = map[token.Type]string{
	token.EQUALS_EQ:  "==",
	token.NOT_EQ:     "!=",
	token.LESS:       "<",
	token.LESS_EQ:    "<=",
	token.GREATER:    ">",
	token.GREATER_EQ: ">=",
}

func parseFieldPredicate(tokens []token.Token, pos int) (Predicate, ops.Op, int, error) {
	if peek(tokens, pos) != token.NAME {
		return nil, nil, pos, unexpected(tokens, pos)
	}
	field := tokens[pos].Text
	pos++

	optional := false
	switch peek(tokens, pos) {
	case token.INTERROGATION:
		optional = true
		pos++
	case token.EXCLAMATION:
		pos++
	}

	if peek(tokens, pos) == token.CLOSE_BRACKET || (peek(tokens, pos) == token.PIPE && peek(tokens, pos+1) == token.PIPE) {
		return &truthyPredicate{field: field, optional: optional}, nil, pos, nil
	}

	// Cut the rhs at a top-level `||`, which belongs to the or-composition.
	end, depth := pos, 0
	for ; end < len(tokens) && depth >= 0; end++ {
		if t := tokens[end].Type; t == token.OPEN_BRACKET {
			depth++
		} else if t == token.CLOSE_BRACKET {
			depth--
		} else if depth == 0 && t == token.PIPE && peek(tokens, end+1) == token.PIPE {
			break
		}
	}
	tokens = tokens[:end]

	if opSym, ok := compareOps[tokens[pos].Type]; ok {
		rhs, next, err := block.ParseExpr(tokens, pos+1)
		if err != nil {
			return nil, nil, next, err
		}
		return &fieldPredicate{field: field, op: opSym, rhs: rhs, optional: optional}, nil, next, nil
	}

	if peek(tokens, pos) == token.NAME {
		word := value.FoldCase(tokens[pos].Text)
		switch word {
		case "like":
			rhs, next, err := block.ParseExpr(tokens, pos+1)
			if err != nil {
				return nil, nil, next, err
			}
			return &fieldPredicate{field: field, op: "like", rhs: rhs, optional: optional}, nil, next, nil
		case "fuzzy":
			rhs, next, err := block.ParseExpr(tokens, pos+1)
			if err != nil {
				return nil, nil, next, err
			}
			return &fieldPredicate{field: field, op: "fuzzy", rhs: rhs, optional: optional}, nil, next, nil
		case "matches":
			if peek(tokens, pos+1) != token.LITERAL {
				return nil, nil, pos + 1, unexpected(tokens, pos+1)
			}
			re, err := regexp.Compile(tokens[pos+1].Text)
			if err != nil {
				return nil, nil, pos + 1, langerr.NewRuntime(field+" matches", "invalid regular expression: %s", err)
			}
			return &regexPredicate{field: field, pattern: re, optional: optional}, nil, pos + 2, nil
		}
	}
	return nil, nil, pos, unexpected(tokens, pos)
}

// fieldValue fetches field from item, honoring optional/required
// modifiers; matched=false with nil error means "silently excluded",
// the default (neither suffix) and `!` both erroring on a missing field.
func fieldValue(item *value.Item, field string, optional bool, predStr string) (value.Primitive, bool, error) {
	v, ok := item.Get(field)
	if ok {
		return v, true, nil
	}
	if optional {
		return value.Primitive{}, false, nil
	}
	return value.Primitive{}, false, langerr.NewRuntime(predStr, "field %q not present on item", field)
}

type truthyPredicate struct {
	field    string
	optional bool
}

func (p *truthyPredicate) Match(_ *context.Context, item *value.Item) (bool, error) {
	v, ok, err := fieldValue(item, p.field, p.optional, p.String())
	if err != nil || !ok {
		return false, err
	}
	return v.Truthy(), nil
}
func (p *truthyPredicate) String() string { return p.field }

type nonemptyPredicate struct{ field string }

func (p *nonemptyPredicate) Match(_ *context.Context, item *value.Item) (bool, error) {
	v, ok := item.Get(p.field)
	return ok && !v.IsEmpty(), nil
}
func (p *nonemptyPredicate) String() string { return "nonempty " + p.field }

type fieldPredicate struct {
	field    string
	op       string
	rhs      block.Expr
	optional bool
}

func (p *fieldPredicate) Match(ctx *context.Context, item *value.Item) (bool, error) {
	v, ok, err := fieldValue(item, p.field, p.optional, p.String())
	if err != nil || !ok {
		return false, err
	}
	rhs, err := p.rhs.Eval(ctx)
	if err != nil {
		return false, err
	}
	switch p.op {
	case "like":
		return strings.Contains(value.FoldCase(v.String()), value.FoldCase(rhs.String())), nil
	case "fuzzy":
		return fuzzy.MatchFold(rhs.String(), v.String()), nil
	case "==":
		return v.Equal(rhs), nil
	case "!=":
		return !v.Equal(rhs), nil
	default:
		cmp, err := v.Compare(rhs)
		if err != nil {
			return false, langerr.NewRuntime(p.String(), "%s", err)
		}
		switch p.op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		}
		return false, langerr.NewRuntime(p.String(), "unknown operator %q", p.op)
	}
}
func (p *fieldPredicate) String() string { return p.field + " " + p.op + " " + p.rhs.String() }

type regexPredicate struct {
	field    string
	pattern  *regexp.Regexp
	optional bool
}

func (p *regexPredicate) Match(_ *context.Context, item *value.Item) (bool, error) {
	v, ok, err := fieldValue(item, p.field, p.optional, p.String())
	if err != nil || !ok {
		return false, err
	}
	// Unanchored, matching the regex crate's own default rather than
	// requiring a full-string match.
	return p.pattern.MatchString(v.String()), nil
}
func (p *regexPredicate) String() string { return p.field + " matches `" + p.pattern.String() + "`" }
