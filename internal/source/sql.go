package source

import (
	"fmt"

	"github.com/NGnius/mps/internal/argschema"
	"github.com/NGnius/mps/internal/block"
	"github.com/NGnius/mps/internal/dict"
	"github.com/NGnius/mps/internal/ops"
	"github.com/NGnius/mps/internal/token"
	"github.com/NGnius/mps/internal/value"
)

var songSchema = argschema.MustCompile("song", `{
	"type": "object",
	"properties": {
		"title": {"type": "boolean"},
		"artist": {"type": "boolean"},
		"album": {"type": "boolean"},
		"genre": {"type": "boolean"}
	},
	"additionalProperties": false
}`)

// queryOp runs one SQL query against the Context's SQL collaborator on
// first Advance and streams its rows. It reports IsResetable only once
// the query has run; Reset then replays the buffered rows without
// re-running the query.
type queryOp struct {
	ops.Base
	label   string
	buildSQ func(ctx *ops.Base) (string, []any, error)
	rows    []*value.Item
	idx     int
	ran     bool
}

func (q *queryOp) Advance() (ops.Result, bool) {
	if !q.ran {
		q.ran = true
		sqlText, args, err := q.buildSQ(&q.Base)
		if err != nil {
			if q.Latch() {
				return ops.Result{}, false
			}
			return ops.Fail(err), true
		}
		rows, err := q.Ctx.SQL.Query(sqlText, args...)
		if err != nil {
			if q.Latch() {
				return ops.Result{}, false
			}
			return ops.Fail(err), true
		}
		q.rows = rows
	}
	if q.idx >= len(q.rows) {
		return ops.Result{}, false
	}
	item := q.rows[q.idx]
	q.idx++
	return ops.Ok(item), true
}

func (q *queryOp) SizeHint() ops.SizeHint {
	if q.ran {
		return ops.Exactly(len(q.rows) - q.idx)
	}
	return ops.AtLeast(0)
}
func (q *queryOp) IsResetable() bool { return q.ran }
func (q *queryOp) Reset() error {
	if !q.ran {
		return fmt.Errorf("%s: cannot reset before it has run once", q.label)
	}
	q.idx = 0
	return nil
}
func (q *queryOp) Clone() ops.Op {
	return &queryOp{label: q.label, buildSQ: q.buildSQ}
}
func (q *queryOp) String() string { return q.label }

// SQLFactory recognises `sql(query)`: query evaluates to the literal SQL
// text to run, with any further positional arguments forwarded as bound
// parameters.
type SQLFactory struct{}

func NewSQLFactory() *SQLFactory { return &SQLFactory{} }

func (f *SQLFactory) Name() string { return "sql" }

func (f *SQLFactory) Build(_ *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	args, next, err := ParseArgs(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	queryExpr, ok := Named(args, 0, "query")
	if !ok {
		return nil, next, dict.Error(tokens, pos, "sql(query) requires a query argument")
	}
	queryNamed := false
	for _, a := range args {
		queryNamed = queryNamed || a.Name == "query"
	}
	paramExprs := restPositional(args, "query")
	if !queryNamed {
		paramExprs = paramExprs[1:] // the first positional argument is the query itself
	}
	return &queryOp{
		label: "sql(...)",
		buildSQ: func(b *ops.Base) (string, []any, error) {
			qv, err := queryExpr.Eval(b.Ctx)
			if err != nil {
				return "", nil, err
			}
			params := make([]any, len(paramExprs))
			for i, pe := range paramExprs {
				pv, err := pe.Eval(b.Ctx)
				if err != nil {
					return "", nil, err
				}
				params[i] = sqlParam(pv)
			}
			return qv.String(), params, nil
		},
	}, next, nil
}

// SongFactory recognises `song(title=..., artist=..., album=..., genre=...)`,
// a shorthand over the standard library schema that builds its own WHERE
// clause instead of taking a literal query.
type SongFactory struct{}

func NewSongFactory() *SongFactory { return &SongFactory{} }

func (f *SongFactory) Name() string { return "song" }

func (f *SongFactory) Build(_ *dict.Dictionary, tokens []token.Token, pos int) (ops.Op, int, error) {
	args, next, err := ParseArgs(tokens, pos)
	if err != nil {
		return nil, next, err
	}
	if err := ValidateNames(songSchema, args); err != nil {
		return nil, next, dict.Error(tokens, pos, err.Error())
	}
	fields := []struct {
		name, column string
	}{
		{"artist", "artists.name"},
		{"album", "albums.title"},
		{"genre", "genres.title"},
	}
	return &queryOp{
		label: "song(...)",
		buildSQ: func(b *ops.Base) (string, []any, error) {
			where := ""
			var params []any
			// The positional (or title=) form is a title fragment: a
			// case-insensitive substring match, not an exact match.
			if titleExpr, ok := Named(args, 0, "title"); ok {
				val, err := titleExpr.Eval(b.Ctx)
				if err != nil {
					return "", nil, err
				}
				where += "LOWER(songs.title) LIKE '%' || LOWER(?) || '%'"
				params = append(params, sqlParam(val))
			}
			for _, fld := range fields {
				expr, ok := Named(args, -1, fld.name)
				if !ok {
					continue
				}
				val, err := expr.Eval(b.Ctx)
				if err != nil {
					return "", nil, err
				}
				if where != "" {
					where += " AND "
				}
				where += fld.column + " = ?"
				params = append(params, sqlParam(val))
			}
			q := `SELECT songs.filename, songs.title, artists.name AS artist,
				albums.title AS album, genres.title AS genre,
				metadata.plays, metadata.track AS tracknumber, metadata.disc AS discnumber,
				metadata.duration, metadata.date
				FROM songs
				LEFT JOIN artists ON songs.artist = artists.artist_id
				LEFT JOIN albums ON songs.album = albums.album_id
				LEFT JOIN metadata ON songs.metadata = metadata.meta_id
				LEFT JOIN genres ON artists.genre = genres.genre_id`
			if where != "" {
				q += " WHERE " + where
			}
			return q, params, nil
		},
	}, next, nil
}

func restPositional(args []Arg, skipNamed ...string) []block.Expr {
	skip := make(map[string]bool, len(skipNamed))
	for _, s := range skipNamed {
		skip[s] = true
	}
	var out []block.Expr
	for _, a := range args {
		if a.Name != "" && skip[a.Name] {
			continue
		}
		if a.Name == "" {
			out = append(out, a.Expr)
		}
	}
	return out
}

func sqlParam(v value.Primitive) any {
	switch v.Kind() {
	case value.KindUInt:
		u, _ := v.ToU64()
		return u
	case value.KindInt, value.KindFloat, value.KindBool:
		return v.String()
	default:
		return v.String()
	}
}
