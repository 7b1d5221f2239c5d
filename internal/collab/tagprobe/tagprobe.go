// Package tagprobe implements the minimal audio-tag-extraction
// collaborator the spec treats as external: given a path, it yields the
// documented fallback mapping (filename-stem title) and no other tags.
// The Language's core only depends on the
// collab.TagProbe interface, so a real probe backed by an audio metadata
// library can be swapped in without touching the core; no such library
// appears anywhere in the retrieved example pack (see DESIGN.md).
package tagprobe

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/NGnius/mps/internal/value"
)

// Stub is a filesystem-only tag probe: it derives TITLE from the
// filename stem, as the spec's External Interfaces section requires as
// the fallback when no TITLE tag exists, and reports no other tags.
type Stub struct{}

func New() *Stub { return &Stub{} }

// Probe implements collab.TagProbe.
func (s *Stub) Probe(path string) (map[string]value.Primitive, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	title := strings.TrimSuffix(base, ext)
	return map[string]value.Primitive{
		"TITLE": value.Str(title),
	}, nil
}
