package block

import (
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

// ParseExpr parses the lowest-precedence level (iter) starting at pos
// and returns the resulting Expr and the position just past it.
func ParseExpr(tokens []token.Token, pos int) (Expr, int, error) {
	return parseIter(tokens, pos)
}

// parseIter handles `iter op { body }` (§4.6 precedence level 9).
func parseIter(tokens []token.Token, pos int) (Expr, int, error) {
	if pos < len(tokens) && tokens[pos].Type == token.NAME && value.FoldCase(tokens[pos].Text) == "iter" {
		if peekType(tokens, pos+1) != token.NAME {
			return nil, pos + 1, unexpectedEOF(tokens, pos+1)
		}
		opVar := tokens[pos+1].Text
		if peekType(tokens, pos+2) != token.OPEN_BRACE {
			return nil, pos + 2, &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokenAt(tokens, pos+2)}
		}
		body, next, err := parseIter(tokens, pos+3)
		if err != nil {
			return nil, next, err
		}
		if peekType(tokens, next) != token.CLOSE_BRACE {
			return nil, next, &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokenAt(tokens, next)}
		}
		return &Iter{OpVar: opVar, Body: body}, next + 1, nil
	}
	return parseIf(tokens, pos)
}

// parseIf handles `if cond : then else else` (§4.6 precedence level 8).
func parseIf(tokens []token.Token, pos int) (Expr, int, error) {
	if pos < len(tokens) && tokens[pos].Type == token.IF {
		cond, next, err := parseStmt(tokens, pos+1)
		if err != nil {
			return nil, next, err
		}
		if peekType(tokens, next) != token.COLON {
			return nil, next, &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokenAt(tokens, next)}
		}
		thenExpr, next, err := parseIter(tokens, next+1)
		if err != nil {
			return nil, next, err
		}
		if peekType(tokens, next) != token.ELSE {
			return nil, next, &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokenAt(tokens, next)}
		}
		elseExpr, next, err := parseIter(tokens, next+1)
		if err != nil {
			return nil, next, err
		}
		return &IfExpr{Cond: cond, Then: thenExpr, Else: elseExpr}, next, nil
	}
	return parseStmt(tokens, pos)
}

// parseStmt handles `name = expr` and `remove name` (§4.6 precedence
// level 7). A bare NAME not followed by "=" and not the "remove"
// keyword text falls through to the existing level-6 chain, so an
// ordinary variable reference named e.g. "remove" still resolves as a
// VarRef.
func parseStmt(tokens []token.Token, pos int) (Expr, int, error) {
	if pos < len(tokens) && tokens[pos].Type == token.NAME {
		if value.FoldCase(tokens[pos].Text) == "remove" && peekType(tokens, pos+1) == token.NAME {
			return &Remove{Name: tokens[pos+1].Text}, pos + 2, nil
		}
		if peekType(tokens, pos+1) == token.EQUALS {
			name := tokens[pos].Text
			rhs, next, err := parseIter(tokens, pos+2)
			if err != nil {
				return nil, next, err
			}
			return &Assign{Name: name, Value: rhs}, next, nil
		}
	}
	return parseOr(tokens, pos)
}

func parseOr(tokens []token.Token, pos int) (Expr, int, error) {
	left, pos, err := parseAnd(tokens, pos)
	if err != nil {
		return nil, pos, err
	}
	for pos < len(tokens) && tokens[pos].Type == token.PIPE && peekType(tokens, pos+1) == token.PIPE {
		right, next, err := parseAnd(tokens, pos+2)
		if err != nil {
			return nil, next, err
		}
		left, pos = &LogicalOr{X: left, Y: right}, next
	}
	return left, pos, nil
}

func parseAnd(tokens []token.Token, pos int) (Expr, int, error) {
	left, pos, err := parseCompare(tokens, pos)
	if err != nil {
		return nil, pos, err
	}
	for pos < len(tokens) && tokens[pos].Type == token.AMPERSAND && peekType(tokens, pos+1) == token.AMPERSAND {
		right, next, err := parseCompare(tokens, pos+2)
		if err != nil {
			return nil, next, err
		}
		left, pos = &LogicalAnd{X: left, Y: right}, next
	}
	return left, pos, nil
}

var compareOps = map[token.Type]string{
	token.EQUALS_EQ:  "==",
	token.NOT_EQ:     "!=",
	token.LESS:       "<",
	token.LESS_EQ:    "<=",
	token.GREATER:    ">",
	token.GREATER_EQ: ">=",
}

func parseCompare(tokens []token.Token, pos int) (Expr, int, error) {
	left, pos, err := parseAdditive(tokens, pos)
	if err != nil {
		return nil, pos, err
	}
	if pos < len(tokens) {
		if op, ok := compareOps[tokens[pos].Type]; ok {
			right, next, err := parseAdditive(tokens, pos+1)
			if err != nil {
				return nil, next, err
			}
			return &CompareOp{Op: op, X: left, Y: right}, next, nil
		}
	}
	return left, pos, nil
}

func parseAdditive(tokens []token.Token, pos int) (Expr, int, error) {
	left, pos, err := parseUnary(tokens, pos)
	if err != nil {
		return nil, pos, err
	}
	for pos < len(tokens) {
		switch tokens[pos].Symbol() {
		case "+":
			right, next, err := parseUnary(tokens, pos+1)
			if err != nil {
				return nil, next, err
			}
			left, pos = &BinaryAdd{X: left, Y: right}, next
			continue
		case "-":
			right, next, err := parseUnary(tokens, pos+1)
			if err != nil {
				return nil, next, err
			}
			left, pos = &BinarySub{X: left, Y: right}, next
			continue
		}
		break
	}
	return left, pos, nil
}

func parseUnary(tokens []token.Token, pos int) (Expr, int, error) {
	if pos >= len(tokens) {
		return nil, pos, unexpectedEOF(tokens, pos)
	}
	switch tokens[pos].Symbol() {
	case "-":
		x, next, err := parseUnary(tokens, pos+1)
		if err != nil {
			return nil, next, err
		}
		return &UnaryOp{Not: false, X: x}, next, nil
	case "!":
		x, next, err := parseUnary(tokens, pos+1)
		if err != nil {
			return nil, next, err
		}
		return &UnaryOp{Not: true, X: x}, next, nil
	}
	return parsePrimary(tokens, pos)
}

func parsePrimary(tokens []token.Token, pos int) (Expr, int, error) {
	if pos >= len(tokens) {
		return nil, pos, unexpectedEOF(tokens, pos)
	}
	t := tokens[pos]
	switch t.Type {
	case token.OPEN_BRACKET:
		inner, next, err := ParseExpr(tokens, pos+1)
		if err != nil {
			return nil, next, err
		}
		if peekType(tokens, next) != token.CLOSE_BRACKET {
			return nil, next, &langerr.SyntaxError{Line: t.Pos.Line, Token: tokenAt(tokens, next)}
		}
		return inner, next + 1, nil

	case token.NUMBER:
		return &Const{Val: numberPrimitive(t.Text)}, pos + 1, nil

	case token.LITERAL:
		return &Const{Val: value.Str(t.Text)}, pos + 1, nil

	case token.ITEM:
		if peekType(tokens, pos+1) != token.DOT || peekType(tokens, pos+2) != token.NAME {
			return nil, pos, &langerr.SyntaxError{Line: t.Pos.Line, Token: tokenAt(tokens, pos+1)}
		}
		return &FieldRef{Field: tokens[pos+2].Text}, pos + 3, nil

	case token.NAME:
		switch value.FoldCase(t.Text) {
		case "true":
			return &Const{Val: value.Bool(true)}, pos + 1, nil
		case "false":
			return &Const{Val: value.Bool(false)}, pos + 1, nil
		}
		return &VarRef{Name: t.Text}, pos + 1, nil
	}
	return nil, pos, &langerr.SyntaxError{Line: t.Pos.Line, Token: t}
}

func numberPrimitive(text string) value.Primitive {
	for _, c := range text {
		if c == '.' {
			return value.ParseLiteral(text)
		}
	}
	return value.ParseLiteral(text)
}

func peekType(tokens []token.Token, pos int) token.Type {
	if pos < 0 || pos >= len(tokens) {
		return token.EOF
	}
	return tokens[pos].Type
}

func tokenAt(tokens []token.Token, pos int) token.Token {
	if pos < len(tokens) {
		return tokens[pos]
	}
	return token.New(token.EOF, "", 0, 0)
}

func unexpectedEOF(tokens []token.Token, pos int) error {
	line := 0
	if len(tokens) > 0 {
		line = tokens[len(tokens)-1].Pos.Line
	}
	return &langerr.SyntaxError{Line: line, Token: tokenAt(tokens, pos)}
}
