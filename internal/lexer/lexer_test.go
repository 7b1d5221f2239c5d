package lexer

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NGnius/mps/internal/token"
)

func readAll(t *testing.T, src string) [][]token.Token {
	t.Helper()
	l := New(strings.NewReader(src))
	var lines [][]token.Token
	for {
		var line []token.Token
		err := l.ReadLine(&line)
		if len(line) > 0 {
			lines = append(lines, line)
		}
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			return lines
		}
	}
}

func types(line []token.Token) []token.Type {
	out := make([]token.Type, len(line))
	for i, tok := range line {
		out[i] = tok.Type
	}
	return out
}

func TestTokenizeSourceCall(t *testing.T) {
	lines := readAll(t, "sql(`select 1`)\n")
	require.Len(t, lines, 1)
	assert.Equal(t, []token.Type{
		token.NAME, token.OPEN_BRACKET, token.LITERAL, token.CLOSE_BRACKET, token.EOL,
	}, types(lines[0]))
	assert.Equal(t, "select 1", lines[0][2].Text)
}

func TestTokenizeKeywordsAndOperators(t *testing.T) {
	lines := readAll(t, "let x = 1\n")
	require.Len(t, lines, 1)
	assert.Equal(t, token.LET, lines[0][0].Type)
	assert.Equal(t, token.NAME, lines[0][1].Type)
	assert.Equal(t, token.EQUALS, lines[0][2].Type)
	assert.Equal(t, token.NUMBER, lines[0][3].Type)
}

func TestTokenizeCompareAndRangeOperators(t *testing.T) {
	lines := readAll(t, "a>=1 b..=2 c..d\n")
	got := types(lines[0])
	assert.Contains(t, got, token.GREATER_EQ)
	assert.Contains(t, got, token.RANGE_INCL)
	assert.Contains(t, got, token.RANGE)
}

func TestTokenizeCommentIsDropped(t *testing.T) {
	lines := readAll(t, "sql() # a trailing comment\n")
	require.Len(t, lines, 1)
	for _, tok := range lines[0] {
		assert.NotEqual(t, "comment", tok.Text)
	}
}

func TestBacktickEscapeSequence(t *testing.T) {
	lines := readAll(t, "sql(`a\\`b`)\n")
	require.Len(t, lines, 1)
	require.Equal(t, token.LITERAL, lines[0][2].Type)
	assert.Equal(t, "a`b", lines[0][2].Text)
}

func TestUnterminatedLiteralIsSyntaxError(t *testing.T) {
	l := New(strings.NewReader("sql(`unterminated\n"))
	var line []token.Token
	err := l.ReadLine(&line)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Empty(t, line)
}

func TestReadLineOnFinalLineWithoutTrailingNewline(t *testing.T) {
	l := New(strings.NewReader("empty()"))
	var line []token.Token
	err := l.ReadLine(&line)
	require.ErrorIs(t, err, io.EOF)
	require.NotEmpty(t, line, "tokens from the final unterminated line must still be returned")
	assert.Equal(t, token.NAME, line[0].Type)
}

func TestReadLineTrueEOFLeavesQueueUntouched(t *testing.T) {
	l := New(strings.NewReader(""))
	var line []token.Token
	err := l.ReadLine(&line)
	require.ErrorIs(t, err, io.EOF)
	assert.Empty(t, line)
}
