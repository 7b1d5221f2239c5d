// Package source implements the Source factories of §4.3: sql, song,
// sql_init, files, mpd, repeat, empty/empties, reset, union,
// intersection, and the `let` assignment. Every factory accepts both
// positional and named argument forms, defaulting missing named fields.
package source

import (
	"github.com/NGnius/mps/internal/argschema"
	"github.com/NGnius/mps/internal/block"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/langerr"
	"github.com/NGnius/mps/internal/token"
)

// Arg is one parsed `[Name "="] expr` argument.
type Arg struct {
	Name string // "" for a positional argument
	Expr block.Expr
}

// ParseArgs parses a comma-separated scalar argument list up to and
// including the closing ")".
func ParseArgs(tokens []token.Token, pos int) ([]Arg, int, error) {
	if peekType(tokens, pos) == token.CLOSE_BRACKET {
		return nil, pos + 1, nil
	}
	var args []Arg
	for {
		name := ""
		if peekType(tokens, pos) == token.NAME && peekType(tokens, pos+1) == token.EQUALS {
			name = tokens[pos].Text
			pos += 2
		}
		expr, next, err := block.ParseExpr(tokens, pos)
		if err != nil {
			return nil, next, err
		}
		args = append(args, Arg{Name: name, Expr: expr})
		pos = next
		if peekType(tokens, pos) == token.COMMA {
			pos++
			continue
		}
		break
	}
	next, err := dict.ExpectClose(tokens, pos)
	return args, next, err
}

// Named returns the argument called name if one is present, else the
// index-th positional (unnamed) argument; an index of -1 matches by name
// only. Named forms may appear in any order, and missing ones report false.
func Named(args []Arg, index int, name string) (block.Expr, bool) {
	for _, a := range args {
		if a.Name == name {
			return a.Expr, true
		}
	}
	positional := 0
	for _, a := range args {
		if a.Name != "" {
			continue
		}
		if positional == index {
			return a.Expr, true
		}
		positional++
	}
	return nil, false
}

// ValidateNames checks that every named argument actually present in args
// is one this factory's schema declares, catching a misspelled named
// argument (e.g. song(titel=...)) as a schema violation rather than
// silently defaulting it away.
func ValidateNames(schema *argschema.Schema, args []Arg) error {
	present := make(map[string]any, len(args))
	for _, a := range args {
		if a.Name != "" {
			present[a.Name] = true
		}
	}
	return schema.Validate(present)
}

func peekType(tokens []token.Token, pos int) token.Type {
	if pos < 0 || pos >= len(tokens) {
		return token.EOF
	}
	return tokens[pos].Type
}

func syntaxErr(tokens []token.Token, pos int) error {
	if pos < len(tokens) {
		return &langerr.SyntaxError{Line: tokens[pos].Pos.Line, Token: tokens[pos]}
	}
	return &langerr.SyntaxError{Line: 0, Token: token.New(token.EOF, "", 0, 0)}
}
