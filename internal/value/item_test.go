package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemFieldsLowercasedAndOrdered(t *testing.T) {
	it := NewItem()
	it.Set("Title", Str("Song"))
	it.Set("ARTIST", Str("Band"))

	v, ok := it.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Song", v.String())

	assert.Equal(t, []string{"title", "artist"}, it.Fields())
}

func TestItemEqualIgnoresOrder(t *testing.T) {
	a := NewItem()
	a.Set("x", UInt(1))
	a.Set("y", Str("z"))

	b := NewItem()
	b.Set("y", Str("z"))
	b.Set("x", UInt(1))

	assert.True(t, a.Equal(b))
}

func TestDedupeKeyStableAcrossInsertionOrder(t *testing.T) {
	a := NewItem()
	a.Set("filename", Str("/music/a.mp3"))
	a.Set("title", Str("A"))

	b := NewItem()
	b.Set("title", Str("A"))
	b.Set("filename", Str("/music/a.mp3"))

	if diff := cmp.Diff(a.DedupeKey(), b.DedupeKey()); diff != "" {
		t.Fatalf("dedupe keys differ despite equal fields (-a +b):\n%s", diff)
	}

	c := b.Clone()
	c.Set("title", Str("different"))
	assert.NotEqual(t, a.DedupeKey(), c.DedupeKey())
}
