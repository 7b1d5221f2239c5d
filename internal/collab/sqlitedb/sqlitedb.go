// Package sqlitedb implements the SQL collaborator (§6 SQLite
// collaborator) on top of modernc.org/sqlite, a pure-Go SQLite driver —
// the same family of dependency the sqldef-sqldef example pack member
// uses for its own SQLite backend.
package sqlitedb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/NGnius/mps/internal/collab"
	"github.com/NGnius/mps/internal/value"
)

const schema = `
CREATE TABLE IF NOT EXISTS genres (
	genre_id INTEGER PRIMARY KEY,
	title    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS artists (
	artist_id INTEGER PRIMARY KEY,
	name      TEXT NOT NULL,
	genre     INTEGER REFERENCES genres(genre_id)
);
CREATE TABLE IF NOT EXISTS metadata (
	meta_id  INTEGER PRIMARY KEY,
	plays    INTEGER NOT NULL DEFAULT 0,
	track    INTEGER NOT NULL DEFAULT 0,
	disc     INTEGER NOT NULL DEFAULT 1,
	duration INTEGER NOT NULL DEFAULT 0,
	date     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS albums (
	album_id INTEGER PRIMARY KEY,
	title    TEXT NOT NULL,
	metadata INTEGER REFERENCES metadata(meta_id),
	artist   INTEGER REFERENCES artists(artist_id),
	genre    INTEGER REFERENCES genres(genre_id)
);
CREATE TABLE IF NOT EXISTS songs (
	song_id  INTEGER PRIMARY KEY,
	title    TEXT NOT NULL,
	artist   INTEGER REFERENCES artists(artist_id),
	album    INTEGER REFERENCES albums(album_id),
	filename TEXT NOT NULL UNIQUE,
	metadata INTEGER REFERENCES metadata(meta_id),
	genre    INTEGER REFERENCES genres(genre_id)
);
`

// DB is a collab.SQL backed by a single SQLite file.
type DB struct {
	conn    *sql.DB
	walker  collab.FileWalker
	probe   collab.TagProbe
}

// New opens (creating if absent) the SQLite database at path, wiring in
// walker/probe for InitLibrary's one-shot scan.
func New(path string, walker collab.FileWalker, probe collab.TagProbe) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &DB{conn: conn, walker: walker, probe: probe}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// InitLibrary implements collab.SQL: ensures the schema exists, and when
// generate is true walks folder, tag-probing every file found and
// upserting songs/artists/metadata/genres rows for each. The albums
// table is created but never populated.
func (db *DB) InitLibrary(generate bool, folder string) error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if !generate {
		return nil
	}
	paths, err := db.walker.List(folder, "", true)
	if err != nil {
		return fmt.Errorf("scan %s: %w", folder, err)
	}
	for _, p := range paths {
		tags, err := db.probe.Probe(p)
		if err != nil {
			continue // unreadable file: skip, don't abort the whole scan
		}
		if err := db.upsertSong(p, tags); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) upsertSong(path string, tags map[string]value.Primitive) error {
	genreID, err := db.upsertGenre(tagStr(tags, "GENRE", "Unknown Genre"))
	if err != nil {
		return err
	}
	artistID, err := db.upsertArtist(tagStr(tags, "ARTIST", "Unknown Artist"), genreID)
	if err != nil {
		return err
	}
	metaID, err := db.insertMetadata(tags)
	if err != nil {
		return err
	}
	title := tagStr(tags, "TITLE", path)
	_, err = db.conn.Exec(
		`INSERT INTO songs(title, artist, filename, metadata, genre) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET title=excluded.title, artist=excluded.artist, metadata=excluded.metadata, genre=excluded.genre`,
		title, artistID, path, metaID, genreID,
	)
	return err
}

func (db *DB) upsertGenre(name string) (int64, error) {
	var id int64
	err := db.conn.QueryRow(`SELECT genre_id FROM genres WHERE title = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		res, err := db.conn.Exec(`INSERT INTO genres(title) VALUES (?)`, name)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	return id, err
}

func (db *DB) upsertArtist(name string, genreID int64) (int64, error) {
	var id int64
	err := db.conn.QueryRow(`SELECT artist_id FROM artists WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		res, err := db.conn.Exec(`INSERT INTO artists(name, genre) VALUES (?, ?)`, name, genreID)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	return id, err
}

func (db *DB) insertMetadata(tags map[string]value.Primitive) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO metadata(plays, track, disc, duration, date) VALUES (?, ?, ?, ?, ?)`,
		tagUint(tags, "PLAYS", 0), tagUint(tags, "TRACKNUMBER", 0), tagUint(tags, "DISCNUMBER", 1),
		tagUint(tags, "DURATION", 0), tagUint(tags, "DATE", 0),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func tagStr(tags map[string]value.Primitive, key, fallback string) string {
	if v, ok := tags[key]; ok {
		if s := v.String(); s != "" {
			return s
		}
	}
	return fallback
}

func tagUint(tags map[string]value.Primitive, key string, fallback uint64) uint64 {
	if v, ok := tags[key]; ok {
		if u, ok := v.ToU64(); ok {
			return u
		}
	}
	return fallback
}

// Query implements collab.SQL: runs query and maps every result column
// to an item field by name.
func (db *DB) Query(query string, args ...any) ([]*value.Item, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []*value.Item
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		item := value.NewItem()
		for i, col := range cols {
			item.Set(col, sqlValueToPrimitive(raw[i]))
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func sqlValueToPrimitive(v any) value.Primitive {
	switch t := v.(type) {
	case nil:
		return value.Empty()
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case bool:
		return value.Bool(t)
	case string:
		return value.Str(t)
	case []byte:
		return value.Str(string(t))
	default:
		return value.Str(fmt.Sprintf("%v", t))
	}
}
