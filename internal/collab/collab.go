// Package collab declares the boundary interfaces the core consumes from
// out-of-core collaborators (SQLite persistence, MPD networking, the
// filesystem, and audio tag extraction). Per the spec these are external
// concerns; the core only depends on these interfaces, never on a
// concrete implementation. Concrete, minimal implementations live in the
// sibling sqlitedb, mpdclient, tagprobe, and fswalk packages.
package collab

import "github.com/NGnius/mps/internal/value"

// SQL is the database collaborator behind sql(), song(), and sql_init().
type SQL interface {
	// Query runs a parameterised read and maps result columns to item
	// fields by name.
	Query(query string, args ...any) ([]*value.Item, error)

	// InitLibrary performs the one-shot library setup sql_init()
	// triggers: it ensures the schema exists and, when generate is true,
	// walks folder, tag-probes every audio file found, and populates the
	// songs/artists/metadata/genres tables (no album rows are written);
	// when false it only ensures the schema exists.
	InitLibrary(generate bool, folder string) error

	Close() error
}

// TermValue is one (term, value) pair of an MPD search query.
type TermValue struct {
	Term  string
	Value string
}

// MPD is the remote-search collaborator behind mpd().
type MPD interface {
	Search(addr string, params []TermValue) ([]*value.Item, error)
}

// TagProbe extracts audio tags from a filesystem path. Output maps
// UPPERCASE tag name to a Primitive restricted to Bool/I64/U64/Str
// (binary and float tag values are discarded by the probe itself).
type TagProbe interface {
	Probe(path string) (map[string]value.Primitive, error)
}

// FileWalker lists (and optionally watches) audio files under a folder
// for the files() source.
type FileWalker interface {
	// List returns matching file paths in a stable, sorted order.
	List(folder, pattern string, recursive bool) ([]string, error)

	// Watch invokes onChange whenever the folder's contents change,
	// until the returned stop function is called. A FileWalker that
	// cannot support watching returns a nil stop func and a nil error;
	// callers must treat that as "not resettable".
	Watch(folder string, recursive bool, onChange func()) (stop func(), err error)
}

// BlissProvider supplies the acoustic distance between two items for the
// bliss_first/bliss_next sorters, named after the audio-analysis library
// the original implementation sorts with. The core never computes audio
// features itself; a Context without one configured makes bliss_first/
// bliss_next fail at runtime rather than at parse time.
type BlissProvider interface {
	Distance(a, b *value.Item) (float64, error)
}
